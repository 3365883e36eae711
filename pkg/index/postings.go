package index

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// PostingsIterator walks one term's postings in docid order.
type PostingsIterator struct {
	term string
	it   roaring.IntPeekable
	wdf  map[uint32]uint32
	cur  uint32
	live bool
}

// emptyPostings backs iterators for unknown terms.
var emptyPostings = roaring.New()

// Postings returns an iterator over the documents containing term,
// positioned before the first posting. Unknown terms yield an empty
// iterator, never nil.
func (idx *Index) Postings(term string) *PostingsIterator {
	if p, ok := idx.postings[term]; ok {
		return &PostingsIterator{term: term, it: p.docs.Iterator(), wdf: p.wdf}
	}
	return &PostingsIterator{term: term, it: emptyPostings.Iterator()}
}

// Next advances to the next posting. Returns false when exhausted.
func (it *PostingsIterator) Next() bool {
	if !it.it.HasNext() {
		it.live = false
		return false
	}
	it.cur = it.it.Next()
	it.live = true
	return true
}

// Seek advances to the first posting with docid >= target and reports
// whether one exists. The posting Seek lands on is current, like Next.
func (it *PostingsIterator) Seek(target uint32) bool {
	it.it.AdvanceIfNeeded(target)
	return it.Next()
}

// Live reports whether the iterator is positioned on a posting.
func (it *PostingsIterator) Live() bool { return it.live }

// Term returns the term this iterator belongs to.
func (it *PostingsIterator) Term() string { return it.term }

// DocID returns the current posting's docid. Only valid after a true
// Next or Seek.
func (it *PostingsIterator) DocID() uint32 { return it.cur }

// Wdf returns the within-document frequency at the current posting.
func (it *PostingsIterator) Wdf() uint32 { return it.wdf[it.cur] }

// Bitmap returns a copy of the docid set for term. Callers may mutate
// the returned bitmap freely.
func (idx *Index) Bitmap(term string) *roaring.Bitmap {
	if p, ok := idx.postings[term]; ok {
		return p.docs.Clone()
	}
	return roaring.New()
}

// Intersect returns the documents containing every given term,
// intersecting smallest-first so a rare term short-circuits early.
func (idx *Index) Intersect(terms []string) *roaring.Bitmap {
	if len(terms) == 0 {
		return roaring.New()
	}

	lists := make([]*termPostings, 0, len(terms))
	for _, t := range terms {
		p, ok := idx.postings[t]
		if !ok {
			return roaring.New()
		}
		lists = append(lists, p)
	}

	sort.Slice(lists, func(i, j int) bool {
		return lists[i].docs.GetCardinality() < lists[j].docs.GetCardinality()
	})

	result := lists[0].docs.Clone()
	for i := 1; i < len(lists) && !result.IsEmpty(); i++ {
		result.And(lists[i].docs)
	}
	return result
}

// Package index is an in-memory inverted index over uint32 docids. It
// supplies the collection and per-document statistics the weighting
// schemes initialize from, and posting iterators for the matcher.
//
// The index is single-writer: build it, then match against it. Writes
// and matches are not safe to interleave from different goroutines.
package index

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/willwinworld/xapian/pkg/query"
	"github.com/willwinworld/xapian/pkg/weight"
)

// DocInfo is the per-document state the index keeps: the raw text for
// highlighting, the token count, and the forward term list.
type DocInfo struct {
	Text   string
	Length uint32            // total indexed token occurrences
	Unique uint32            // distinct indexed terms
	Terms  map[string]uint32 // term -> wdf
}

type termPostings struct {
	docs     *roaring.Bitmap
	wdf      map[uint32]uint32
	wdfUpper uint32 // never decays on removal; stays a safe bound
	collFreq uint64
}

func newTermPostings() *termPostings {
	return &termPostings{
		docs: roaring.New(),
		wdf:  make(map[uint32]uint32),
	}
}

// Index is the inverted index plus running collection aggregates.
type Index struct {
	StopWords map[string]bool // nil means query.DefaultStopWords

	postings map[string]*termPostings
	docs     map[uint32]*DocInfo

	totalLen uint64
	lenLower uint32 // safe lower bound on any live document length
	lenUpper uint32 // safe upper bound
}

func New() *Index {
	return &Index{
		postings: make(map[string]*termPostings),
		docs:     make(map[uint32]*DocInfo),
	}
}

// Add tokenizes text and indexes it under docID. Re-adding an existing
// docID replaces the old document.
func (idx *Index) Add(docID uint32, text string) {
	if _, ok := idx.docs[docID]; ok {
		idx.Remove(docID)
	}

	tokens := query.Tokenize(text, idx.StopWords)

	terms := make(map[string]uint32, len(tokens))
	for _, tok := range tokens {
		terms[tok]++
	}

	info := &DocInfo{
		Text:   text,
		Length: uint32(len(tokens)),
		Unique: uint32(len(terms)),
		Terms:  terms,
	}
	idx.docs[docID] = info

	for term, wdf := range terms {
		p, ok := idx.postings[term]
		if !ok {
			p = newTermPostings()
			idx.postings[term] = p
		}
		p.docs.Add(docID)
		p.wdf[docID] = wdf
		p.collFreq += uint64(wdf)
		if wdf > p.wdfUpper {
			p.wdfUpper = wdf
		}
	}

	idx.totalLen += uint64(info.Length)
	if len(idx.docs) == 1 || info.Length < idx.lenLower {
		idx.lenLower = info.Length
	}
	if info.Length > idx.lenUpper {
		idx.lenUpper = info.Length
	}
}

// Remove deletes a document. Exact counts (postings, collection
// frequency, lengths) are adjusted; the per-term wdf upper bound and the
// document-length bounds are left as they were, which keeps them safe
// if no longer tight.
func (idx *Index) Remove(docID uint32) {
	info, ok := idx.docs[docID]
	if !ok {
		return
	}

	for term, wdf := range info.Terms {
		p := idx.postings[term]
		if p == nil {
			continue
		}
		p.docs.Remove(docID)
		delete(p.wdf, docID)
		p.collFreq -= uint64(wdf)
		if p.docs.IsEmpty() {
			delete(idx.postings, term)
		}
	}

	idx.totalLen -= uint64(info.Length)
	delete(idx.docs, docID)
}

// Doc returns the per-document info for docID.
func (idx *Index) Doc(docID uint32) (*DocInfo, bool) {
	info, ok := idx.docs[docID]
	return info, ok
}

// DocCount returns the number of live documents.
func (idx *Index) DocCount() int { return len(idx.docs) }

// DocIDs returns the live docids in ascending order.
func (idx *Index) DocIDs() []uint32 {
	ids := make([]uint32, 0, len(idx.docs))
	for id := range idx.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AverageLength returns the mean indexed document length.
func (idx *Index) AverageLength() float64 {
	if len(idx.docs) == 0 {
		return 0
	}
	return float64(idx.totalLen) / float64(len(idx.docs))
}

// Wdf returns the within-document frequency of term in docID.
func (idx *Index) Wdf(term string, docID uint32) uint32 {
	if p, ok := idx.postings[term]; ok {
		return p.wdf[docID]
	}
	return 0
}

// DocFreq returns the number of documents containing term.
func (idx *Index) DocFreq(term string) int {
	if p, ok := idx.postings[term]; ok {
		return int(p.docs.GetCardinality())
	}
	return 0
}

// Stats assembles the initialization statistics for one term. A term
// with no postings comes back with zero frequencies, which every scheme
// treats as the degenerate no-contribution case.
func (idx *Index) Stats(term string, wqf float64) weight.CollectionStats {
	stats := weight.CollectionStats{
		CollectionSize: uint32(len(idx.docs)),
		AverageLength:  idx.AverageLength(),
		DocLengthLower: idx.lenLower,
		DocLengthUpper: idx.lenUpper,
		Wqf:            wqf,
	}
	if p, ok := idx.postings[term]; ok {
		stats.CollectionFreq = p.collFreq
		stats.TermFreq = uint32(p.docs.GetCardinality())
		stats.WdfUpper = p.wdfUpper
	}
	return stats
}

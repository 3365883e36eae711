// Package matcher runs ranked top-k retrieval over an index with a
// pluggable weighting scheme. Candidate generation aggregates per-term
// score upper bounds so exact scoring can stop as soon as no remaining
// candidate can enter the top k.
package matcher

import (
	"math"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/willwinworld/xapian/pkg/index"
	"github.com/willwinworld/xapian/pkg/query"
	"github.com/willwinworld/xapian/pkg/weight"
)

// Config holds tuning knobs for a match run.
type Config struct {
	Op           query.Op `json:"op"`           // combination operator for bare terms
	Factor       float64  `json:"factor"`       // external weight factor handed to Init
	RescoreAlpha float64  `json:"rescoreAlpha"` // semantic blend weight, 0 disables
	RescoreScale float64  `json:"rescoreScale"` // scales cosine into text-score range
}

// DefaultConfig returns sane defaults: OR semantics, unit factor, no
// semantic rescoring.
func DefaultConfig() Config {
	return Config{
		Op:           query.OpOr,
		Factor:       1.0,
		RescoreAlpha: 0.0,
		RescoreScale: 20.0,
	}
}

// Result is one scored document.
type Result struct {
	DocID   uint32   `json:"docId"`
	Score   float64  `json:"score"`
	Matched []string `json:"matched"` // query terms present in the document
}

// Matcher executes queries against one index with one scheme.
type Matcher struct {
	Index  *index.Index
	Scheme weight.Scheme
	Config Config
}

func New(idx *index.Index, scheme weight.Scheme, cfg Config) *Matcher {
	return &Matcher{Index: idx, Scheme: scheme, Config: cfg}
}

// termStream is one scoring source in the union merge: a bare term's
// posting iterator, or the word-intersection candidates of a phrase.
type termStream struct {
	term      string
	phrase    bool
	required  bool // document must genuinely contain this term
	tw        weight.TermWeight
	maxScore  float64
	it        *index.PostingsIterator // bare terms
	bm        roaring.IntPeekable     // phrase candidates
	current   uint32
	exhausted bool
}

func (s *termStream) next() {
	if s.it != nil {
		if s.it.Next() {
			s.current = s.it.DocID()
		} else {
			s.exhausted = true
		}
		return
	}
	if s.bm.HasNext() {
		s.current = s.bm.Next()
	} else {
		s.exhausted = true
	}
}

// candidate pairs a docid with the upper bound on its total score.
type candidate struct {
	docID      uint32
	upperBound float64
}

// Run executes one parsed query and returns at most limit results,
// best first, docid-ascending on ties.
func (m *Matcher) Run(parsed query.Parsed, limit int) []Result {
	if limit <= 0 || parsed.Terms.Len() == 0 {
		return nil
	}

	streams, extraTW := m.buildStreams(parsed)
	if len(streams) == 0 {
		return nil
	}

	required := m.requiredDocs(parsed)
	excluded, hatedPhrases := m.excludedDocs(parsed)

	cands := collectCandidates(streams, extraTW.MaxExtra(), required, excluded)
	if len(cands) == 0 {
		return nil
	}

	return m.scoreCandidates(cands, streams, extraTW, hatedPhrases, limit)
}

// buildStreams initializes one term weight per scoring term and wires it
// to its postings. One stream's weight doubles as the provider of the
// per-document extra component, which is term-independent by contract
// and must be counted once; picking the largest MaxExtra skips weights
// degenerated by unknown terms.
func (m *Matcher) buildStreams(parsed query.Parsed) ([]*termStream, weight.TermWeight) {
	hated := query.NewTermSet(parsed.Hated...)
	loved := query.NewTermSet(parsed.Loved...)

	var streams []*termStream
	var extraTW weight.TermWeight

	// Sorted order keeps candidate generation deterministic.
	for _, term := range parsed.Terms.Terms() {
		if hated.Contains(term) {
			continue
		}
		wqf := float64(parsed.Wqf[term])
		if wqf == 0 {
			wqf = 1
		}

		var s *termStream
		if strings.Contains(term, " ") {
			s = m.phraseStream(term, wqf)
		} else {
			stats := m.Index.Stats(term, wqf)
			s = &termStream{
				term: term,
				tw:   m.Scheme.Init(stats, m.Config.Factor),
				it:   m.Index.Postings(term),
			}
		}
		if s == nil {
			continue
		}
		s.maxScore = s.tw.MaxScore()
		s.required = loved.Contains(term) || (s.phrase && m.Config.Op == query.OpAnd)
		if extraTW == nil || s.tw.MaxExtra() > extraTW.MaxExtra() {
			extraTW = s.tw
		}

		s.next()
		if s.exhausted {
			continue
		}
		streams = append(streams, s)
	}

	return streams, extraTW
}

// phraseStream builds the scoring source for a quoted phrase: candidates
// are documents containing every indexable word, statistics are the
// tightest safe bounds the word statistics imply (a phrase occurs at
// most as often as its rarest word). Actual adjacency is verified
// against the document text at scoring time.
func (m *Matcher) phraseStream(phrase string, wqf float64) *termStream {
	words := m.indexWords(phrase)
	if len(words) == 0 {
		return nil
	}

	stats := m.Index.Stats(words[0], wqf)
	for _, w := range words[1:] {
		ws := m.Index.Stats(w, wqf)
		if ws.CollectionFreq < stats.CollectionFreq {
			stats.CollectionFreq = ws.CollectionFreq
		}
		if ws.TermFreq < stats.TermFreq {
			stats.TermFreq = ws.TermFreq
		}
		if ws.WdfUpper < stats.WdfUpper {
			stats.WdfUpper = ws.WdfUpper
		}
	}

	return &termStream{
		term:   phrase,
		phrase: true,
		tw:     m.Scheme.Init(stats, m.Config.Factor),
		bm:     m.Index.Intersect(words).Iterator(),
	}
}

// indexWords splits a term into the words the index actually holds.
func (m *Matcher) indexWords(term string) []string {
	stop := m.Index.StopWords
	if stop == nil {
		stop = query.DefaultStopWords
	}
	var words []string
	for _, w := range strings.Fields(term) {
		if !stop[w] {
			words = append(words, w)
		}
	}
	return words
}

// requiredDocs returns the documents every candidate must be in, or nil
// when nothing is required. AND semantics requires all scoring words;
// loved terms are required under either operator.
func (m *Matcher) requiredDocs(parsed query.Parsed) *roaring.Bitmap {
	hated := query.NewTermSet(parsed.Hated...)

	var words []string
	if m.Config.Op == query.OpAnd {
		for _, term := range parsed.Terms.Terms() {
			if hated.Contains(term) {
				continue
			}
			words = append(words, m.indexWords(term)...)
		}
	}
	for _, term := range parsed.Loved {
		words = append(words, m.indexWords(term)...)
	}

	if len(words) == 0 {
		return nil
	}
	return m.Index.Intersect(words)
}

// excludedDocs returns the union of hated single-word postings plus the
// hated phrases that need text verification.
func (m *Matcher) excludedDocs(parsed query.Parsed) (*roaring.Bitmap, []string) {
	var excluded *roaring.Bitmap
	var phrases []string

	for _, h := range parsed.Hated {
		if strings.Contains(h, " ") {
			phrases = append(phrases, h)
			continue
		}
		bm := m.Index.Bitmap(h)
		if excluded == nil {
			excluded = bm
		} else {
			excluded.Or(bm)
		}
	}
	return excluded, phrases
}

// collectCandidates merges the streams docid-ascending, summing the
// upper bounds of every stream that covers the pivot document. The
// result is unsorted; scoring orders it by bound.
func collectCandidates(streams []*termStream, extraMax float64, required, excluded *roaring.Bitmap) []candidate {
	var cands []candidate

	for {
		sort.Slice(streams, func(i, j int) bool {
			if streams[i].exhausted {
				return false
			}
			if streams[j].exhausted {
				return true
			}
			return streams[i].current < streams[j].current
		})

		if streams[0].exhausted {
			break
		}

		pivot := streams[0].current
		ub := extraMax
		for _, s := range streams {
			if !s.exhausted && s.current == pivot {
				ub += s.maxScore
				s.next()
			} else {
				// Sorted: every stream on the pivot is at the front.
				break
			}
		}

		if required != nil && !required.Contains(pivot) {
			continue
		}
		if excluded != nil && excluded.Contains(pivot) {
			continue
		}
		cands = append(cands, candidate{docID: pivot, upperBound: ub})
	}

	return cands
}

// scoreCandidates walks candidates in descending bound order, scoring
// exactly and pruning once the k-th best exact score exceeds every
// remaining bound.
func (m *Matcher) scoreCandidates(cands []candidate, streams []*termStream, extraTW weight.TermWeight, hatedPhrases []string, limit int) []Result {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].upperBound == cands[j].upperBound {
			return cands[i].docID < cands[j].docID
		}
		return cands[i].upperBound > cands[j].upperBound
	})

	var topScores []float64
	threshold := 0.0
	var results []Result

	for _, cand := range cands {
		if len(topScores) >= limit && cand.upperBound <= threshold {
			break
		}

		info, ok := m.Index.Doc(cand.docID)
		if !ok {
			continue
		}

		// Normalized text is only materialized when a phrase needs it.
		normText := ""
		padded := func() string {
			if normText == "" {
				normText = " " + query.Normalize(info.Text) + " "
			}
			return normText
		}

		if excludedByPhrase(padded, hatedPhrases) {
			continue
		}

		score := 0.0
		var matched []string
		rejected := false
		for _, s := range streams {
			var wdf uint32
			if s.phrase {
				wdf = countPadded(padded(), " "+s.term+" ")
			} else {
				wdf = m.Index.Wdf(s.term, cand.docID)
			}
			if wdf == 0 {
				if s.required {
					rejected = true
					break
				}
				continue
			}
			score += s.tw.Score(wdf, info.Length, info.Unique)
			matched = append(matched, s.term)
		}
		if rejected || len(matched) == 0 {
			continue
		}
		sort.Strings(matched)
		score += extraTW.Extra(info.Length, info.Unique)

		topScores = insertSorted(topScores, score, limit)
		if len(topScores) == limit {
			threshold = topScores[0]
		}

		results = append(results, Result{DocID: cand.docID, Score: score, Matched: matched})
	}

	sort.Slice(results, func(i, j int) bool {
		if math.Abs(results[i].Score-results[j].Score) < 1e-9 {
			return results[i].DocID < results[j].DocID
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func excludedByPhrase(padded func() string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(padded(), " "+p+" ") {
			return true
		}
	}
	return false
}

// countPadded counts space-bounded occurrences of needle, stepping back
// one byte after each hit so one space can close a hit and open the
// next ("cat cat" contains "cat" twice).
func countPadded(haystack, needle string) uint32 {
	var n uint32
	i := 0
	for {
		j := strings.Index(haystack[i:], needle)
		if j < 0 {
			return n
		}
		n++
		i += j + len(needle) - 1
	}
}

// insertSorted keeps the limit highest scores seen so far in ascending
// order; scores[0] is the pruning threshold once full.
func insertSorted(scores []float64, val float64, limit int) []float64 {
	i := sort.SearchFloat64s(scores, val)
	if len(scores) < limit {
		scores = append(scores, 0)
		copy(scores[i+1:], scores[i:])
		scores[i] = val
		return scores
	}
	if i == 0 {
		return scores
	}
	copy(scores[:i-1], scores[1:i])
	scores[i-1] = val
	return scores
}

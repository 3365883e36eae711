// Package expand suggests new query terms from documents the user
// marked relevant. Candidate terms are scored by how often they occur
// in the marked set and how rare they are in the collection.
package expand

import (
	"math"
	"sort"
	"strings"

	"github.com/willwinworld/xapian/pkg/index"
	"github.com/willwinworld/xapian/pkg/query"
)

// Suggestion is one candidate expansion term.
type Suggestion struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Expander scores expansion candidates against one index. Rarity
// weights are cached per term; call Invalidate after index writes.
type Expander struct {
	idx   *index.Index
	cache *rarityCache
}

func NewExpander(idx *index.Index) *Expander {
	return &Expander{
		idx:   idx,
		cache: newRarityCache(4096),
	}
}

// Suggest returns the top n expansion terms for the marked documents,
// heaviest first, term-ascending on equal weight. Terms in exclude are
// skipped; stopwords never reach the index so they cannot appear.
//
// Formula: weight(t) = Σ wdf · ln(1 + (N - df + 0.5)/(df + 0.5)) over
// the marked documents.
func (e *Expander) Suggest(docIDs []uint32, exclude query.TermSet, n int) []Suggestion {
	if n <= 0 || len(docIDs) == 0 {
		return nil
	}

	weights := make(map[string]float64)
	for _, id := range docIDs {
		info, ok := e.idx.Doc(id)
		if !ok {
			continue
		}
		for term, wdf := range info.Terms {
			if exclude.Contains(term) {
				continue
			}
			weights[term] += float64(wdf) * e.rarity(term)
		}
	}

	suggestions := make([]Suggestion, 0, len(weights))
	for term, w := range weights {
		suggestions = append(suggestions, Suggestion{Term: term, Weight: w})
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Weight == suggestions[j].Weight {
			return suggestions[i].Term < suggestions[j].Term
		}
		return suggestions[i].Weight > suggestions[j].Weight
	})
	if len(suggestions) > n {
		suggestions = suggestions[:n]
	}
	return suggestions
}

// Invalidate drops cached rarity weights. Required after documents are
// added or removed.
func (e *Expander) Invalidate() { e.cache.clear() }

func (e *Expander) rarity(term string) float64 {
	if val, ok := e.cache.get(term); ok {
		return val
	}

	N := float64(e.idx.DocCount())
	df := float64(e.idx.DocFreq(term))
	ratio := (N - df + 0.5) / (df + 0.5)
	if ratio < 0 {
		ratio = 0
	}
	val := math.Log(1.0 + ratio)
	e.cache.set(term, val)
	return val
}

// ExcludeTerms collects the terms of a parsed query with phrases broken
// into words, for use as the Suggest exclusion set.
func ExcludeTerms(parsed query.Parsed) query.TermSet {
	out := query.NewTermSet()
	for _, term := range parsed.Terms.Terms() {
		for _, w := range strings.Fields(term) {
			out.Add(w)
		}
	}
	return out
}

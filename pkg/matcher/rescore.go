package matcher

import (
	"math"
	"sort"

	"github.com/willwinworld/xapian/pkg/vector"
)

// Rescore blends semantic similarity into already-ranked results:
// final = (1-alpha)*text + alpha*cosine*scale. Only documents inside
// the nearest-neighbour set of the query vector receive a similarity
// contribution. A nil store, empty query vector, or alpha <= 0 leaves
// the ranking untouched.
func (m *Matcher) Rescore(results []Result, queryVec []float32, store *vector.Store) []Result {
	alpha := m.Config.RescoreAlpha
	if alpha <= 0 || len(results) == 0 || len(queryVec) == 0 || store == nil {
		return results
	}
	scale := m.Config.RescoreScale
	if scale <= 0 {
		scale = DefaultConfig().RescoreScale
	}

	neighbors, err := store.Search(queryVec, len(results))
	if err != nil {
		return results
	}
	near := make(map[uint32]bool, len(neighbors))
	for _, id := range neighbors {
		near[id] = true
	}

	for i := range results {
		sim := 0.0
		if near[results[i].DocID] {
			if vec, ok := store.Vector(results[i].DocID); ok {
				sim = vector.Cosine(queryVec, vec)
				if sim < 0 {
					sim = 0
				}
			}
		}
		results[i].Score = (1.0-alpha)*results[i].Score + alpha*sim*scale
	}

	sort.Slice(results, func(i, j int) bool {
		if math.Abs(results[i].Score-results[j].Score) < 1e-9 {
			return results[i].DocID < results[j].DocID
		}
		return results[i].Score > results[j].Score
	})
	return results
}

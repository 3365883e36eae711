package matcher

import (
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/willwinworld/xapian/pkg/index"
	"github.com/willwinworld/xapian/pkg/query"
	"github.com/willwinworld/xapian/pkg/weight"
)

func buildIndex(docs map[uint32]string) *index.Index {
	ids := make([]uint32, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	idx := index.New()
	for _, id := range ids {
		idx.Add(id, docs[id])
	}
	return idx
}

// generatedIndex builds n documents with hash-derived term frequencies
// so score profiles differ across documents.
func generatedIndex(n int) *index.Index {
	vocab := []string{"ant", "bee", "cow", "dog", "eel", "fox"}
	idx := index.New()
	for id := uint32(1); id <= uint32(n); id++ {
		var words []string
		for v, w := range vocab {
			h := id*2654435761 + uint32(v)*40503
			reps := int(h>>16) % 5
			for r := 0; r < reps; r++ {
				words = append(words, w)
			}
		}
		idx.Add(id, strings.Join(words, " "))
	}
	return idx
}

func mustParse(t *testing.T, raw string) query.Parsed {
	t.Helper()
	parsed, err := query.NewParser().Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	return parsed
}

func resultIDs(results []Result) []uint32 {
	ids := make([]uint32, len(results))
	for i, r := range results {
		ids[i] = r.DocID
	}
	return ids
}

func sameIDs(got, want []uint32) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func sameIDSet(got, want []uint32) bool {
	g := append([]uint32(nil), got...)
	w := append([]uint32(nil), want...)
	sort.Slice(g, func(i, j int) bool { return g[i] < g[j] })
	sort.Slice(w, func(i, j int) bool { return w[i] < w[j] })
	return sameIDs(g, w)
}

// exhaustiveRun scores every document against every term with no
// candidate pruning, mirroring Run's scoring rules for plain OR
// queries. limit 0 keeps everything.
func exhaustiveRun(m *Matcher, parsed query.Parsed, limit int) []Result {
	type initTerm struct {
		term string
		tw   weight.TermWeight
	}
	var tws []initTerm
	var extraTW weight.TermWeight
	for _, term := range parsed.Terms.Terms() {
		wqf := float64(parsed.Wqf[term])
		if wqf == 0 {
			wqf = 1
		}
		tw := m.Scheme.Init(m.Index.Stats(term, wqf), m.Config.Factor)
		if extraTW == nil || tw.MaxExtra() > extraTW.MaxExtra() {
			extraTW = tw
		}
		tws = append(tws, initTerm{term: term, tw: tw})
	}

	var results []Result
	for _, id := range m.Index.DocIDs() {
		info, _ := m.Index.Doc(id)
		score := 0.0
		var matched []string
		for _, it := range tws {
			wdf := m.Index.Wdf(it.term, id)
			if wdf == 0 {
				continue
			}
			score += it.tw.Score(wdf, info.Length, info.Unique)
			matched = append(matched, it.term)
		}
		if len(matched) == 0 {
			continue
		}
		score += extraTW.Extra(info.Length, info.Unique)
		results = append(results, Result{DocID: id, Score: score, Matched: matched})
	}

	sort.Slice(results, func(i, j int) bool {
		if math.Abs(results[i].Score-results[j].Score) < 1e-9 {
			return results[i].DocID < results[j].DocID
		}
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func TestRunRanking(t *testing.T) {
	idx := buildIndex(map[uint32]string{
		1: "cat dog cat bird",
		2: "dog dog dog dog",
		3: "cat cat cat dog",
		4: "fish heron",
		5: "bird bird cat",
	})
	m := New(idx, weight.DLH{}, DefaultConfig())

	results := m.Run(mustParse(t, "cat"), 10)
	if got := resultIDs(results); !sameIDs(got, []uint32{3, 1, 5}) {
		t.Fatalf("ids = %v, want [3 1 5]", got)
	}
	if results[0].Score <= 0 {
		t.Errorf("top score = %g, want > 0", results[0].Score)
	}
	for _, r := range results {
		if len(r.Matched) != 1 || r.Matched[0] != "cat" {
			t.Errorf("doc %d matched = %v, want [cat]", r.DocID, r.Matched)
		}
	}
}

func TestRunMatchesExhaustive(t *testing.T) {
	idx := generatedIndex(40)

	schemes := []weight.Scheme{
		weight.DLH{},
		weight.BM25{K1: 1.2, B: 0.75, K2: 1.0},
	}
	queries := []string{"ant", "ant cow", "ant cow eel", "bee dog fox ant"}
	limits := []int{1, 3, 5, 100}

	for _, scheme := range schemes {
		for _, raw := range queries {
			for _, limit := range limits {
				m := New(idx, scheme, DefaultConfig())
				parsed := mustParse(t, raw)

				got := m.Run(parsed, limit)
				want := exhaustiveRun(m, parsed, limit)

				if len(got) != len(want) {
					t.Fatalf("%s %q limit %d: %d results, want %d",
						scheme.Name(), raw, limit, len(got), len(want))
				}
				for i := range got {
					if math.Abs(got[i].Score-want[i].Score) > 1e-9 {
						t.Errorf("%s %q limit %d: score[%d] = %g, want %g",
							scheme.Name(), raw, limit, i, got[i].Score, want[i].Score)
					}
				}

				// Every returned document must carry its true exact score.
				exact := make(map[uint32]float64)
				for _, r := range exhaustiveRun(m, parsed, 0) {
					exact[r.DocID] = r.Score
				}
				for _, r := range got {
					want, ok := exact[r.DocID]
					if !ok {
						t.Errorf("%s %q limit %d: doc %d returned but does not match",
							scheme.Name(), raw, limit, r.DocID)
						continue
					}
					if math.Abs(r.Score-want) > 1e-9 {
						t.Errorf("%s %q limit %d: doc %d score = %g, want %g",
							scheme.Name(), raw, limit, r.DocID, r.Score, want)
					}
				}
			}
		}
	}
}

func TestRunAndRequiresAllTerms(t *testing.T) {
	idx := buildIndex(map[uint32]string{
		1: "cat dog",
		2: "cat cat",
		3: "dog dog",
		4: "cat dog bird",
	})
	cfg := DefaultConfig()
	cfg.Op = query.OpAnd
	m := New(idx, weight.DLH{}, cfg)

	results := m.Run(mustParse(t, "cat dog"), 10)
	if got := resultIDs(results); !sameIDSet(got, []uint32{1, 4}) {
		t.Fatalf("ids = %v, want {1 4}", got)
	}
}

func TestRunLovedTermRequired(t *testing.T) {
	idx := buildIndex(map[uint32]string{
		1: "cat dog",
		2: "cat cat",
		3: "dog dog",
		4: "cat dog bird",
	})
	m := New(idx, weight.DLH{}, DefaultConfig())

	results := m.Run(mustParse(t, "+bird cat"), 10)
	if got := resultIDs(results); !sameIDs(got, []uint32{4}) {
		t.Fatalf("ids = %v, want [4]", got)
	}
	wantMatched := []string{"bird", "cat"}
	if len(results[0].Matched) != 2 ||
		results[0].Matched[0] != wantMatched[0] || results[0].Matched[1] != wantMatched[1] {
		t.Errorf("matched = %v, want %v", results[0].Matched, wantMatched)
	}
}

func TestRunHatedTermExcluded(t *testing.T) {
	idx := buildIndex(map[uint32]string{
		1: "cat dog",
		2: "cat cat",
		3: "dog dog",
		4: "cat dog bird",
	})
	m := New(idx, weight.DLH{}, DefaultConfig())

	results := m.Run(mustParse(t, "cat -dog"), 10)
	if got := resultIDs(results); !sameIDs(got, []uint32{2}) {
		t.Fatalf("ids = %v, want [2]", got)
	}
}

func TestRunPhraseAdjacency(t *testing.T) {
	idx := buildIndex(map[uint32]string{
		1: "big cat sleeps",
		2: "cat big dreams",
		3: "the big cat",
	})
	m := New(idx, weight.DLH{}, DefaultConfig())

	results := m.Run(mustParse(t, `"big cat"`), 10)
	if got := resultIDs(results); !sameIDSet(got, []uint32{1, 3}) {
		t.Fatalf("ids = %v, want {1 3}", got)
	}
	for _, r := range results {
		if len(r.Matched) != 1 || r.Matched[0] != "big cat" {
			t.Errorf("doc %d matched = %v, want [big cat]", r.DocID, r.Matched)
		}
	}
}

func TestRunHatedPhrase(t *testing.T) {
	idx := buildIndex(map[uint32]string{
		1: "big cat sleeps",
		2: "cat big dreams",
		3: "the big cat",
		4: "cat alone",
	})
	m := New(idx, weight.DLH{}, DefaultConfig())

	results := m.Run(mustParse(t, `cat -"big cat"`), 10)
	if got := resultIDs(results); !sameIDSet(got, []uint32{2, 4}) {
		t.Fatalf("ids = %v, want {2 4}", got)
	}
}

func TestRunEdgeInputs(t *testing.T) {
	idx := buildIndex(map[uint32]string{1: "cat dog"})
	m := New(idx, weight.DLH{}, DefaultConfig())

	if got := m.Run(mustParse(t, "unicorn"), 10); got != nil {
		t.Errorf("unknown term: got %v, want nil", got)
	}
	if got := m.Run(query.Parsed{Terms: query.NewTermSet()}, 10); got != nil {
		t.Errorf("empty query: got %v, want nil", got)
	}
	if got := m.Run(mustParse(t, "cat"), 0); got != nil {
		t.Errorf("limit 0: got %v, want nil", got)
	}
}

func TestRunBoolScheme(t *testing.T) {
	idx := buildIndex(map[uint32]string{
		1: "cat one",
		2: "cat two",
		3: "cat three",
		4: "cat four",
	})
	m := New(idx, weight.Bool{}, DefaultConfig())

	results := m.Run(mustParse(t, "cat"), 2)
	if got := resultIDs(results); !sameIDs(got, []uint32{1, 2}) {
		t.Fatalf("ids = %v, want [1 2]", got)
	}
	for _, r := range results {
		if r.Score != 0 {
			t.Errorf("doc %d score = %g, want 0", r.DocID, r.Score)
		}
	}
}

func TestInsertSorted(t *testing.T) {
	var scores []float64
	for _, v := range []float64{3, 1, 4, 1.5, 9, 2.6} {
		scores = insertSorted(scores, v, 3)
	}
	want := []float64{3, 4, 9}
	if len(scores) != len(want) {
		t.Fatalf("len = %d, want %d", len(scores), len(want))
	}
	for i := range want {
		if scores[i] != want[i] {
			t.Errorf("scores[%d] = %g, want %g", i, scores[i], want[i])
		}
	}
}

func TestCountPadded(t *testing.T) {
	cases := []struct {
		haystack string
		needle   string
		want     uint32
	}{
		{" big cat ", " big cat ", 1},
		{" cat cat cat ", " cat ", 3},
		{" bobcat dogma ", " cat dog ", 0},
		{" big cat big cat ", " big cat ", 2},
		{" dog ", " cat ", 0},
	}
	for _, c := range cases {
		if got := countPadded(c.haystack, c.needle); got != c.want {
			t.Errorf("countPadded(%q, %q) = %d, want %d", c.haystack, c.needle, got, c.want)
		}
	}
}

// Package snippet highlights query terms inside result text. One
// Aho-Corasick automaton is built per query and reused across result
// rows.
package snippet

import (
	"strings"

	aho_corasick "github.com/petar-dambovaliev/aho-corasick"

	"github.com/willwinworld/xapian/pkg/query"
)

// Span is one term occurrence in a text, in byte offsets. End is
// exclusive.
type Span struct {
	Start   int
	End     int
	Pattern string // the query term that matched
}

// Highlighter finds every scoring query term in one pass over the text.
type Highlighter struct {
	ac       aho_corasick.AhoCorasick
	patterns []string
}

// New builds a highlighter for the scoring terms of a parsed query.
// Hated terms never appear in results, so they are not highlighted.
func New(parsed query.Parsed) *Highlighter {
	hated := query.NewTermSet(parsed.Hated...)

	var patterns []string
	for _, term := range parsed.Terms.Terms() {
		if hated.Contains(term) {
			continue
		}
		patterns = append(patterns, term)
	}
	return NewTerms(patterns)
}

// NewTerms builds a highlighter for an explicit pattern list. Patterns
// are expected lowercase; matching is ASCII case-insensitive so raw
// document text can be rendered as stored.
func NewTerms(patterns []string) *Highlighter {
	h := &Highlighter{patterns: patterns}
	if len(patterns) == 0 {
		return h
	}

	b := aho_corasick.NewAhoCorasickBuilder(aho_corasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            aho_corasick.LeftMostLongestMatch,
		DFA:                  false,
	})
	h.ac = b.Build(patterns)
	return h
}

// Spans returns the leftmost-longest term occurrences in text in start
// order. Overlap is resolved toward the longer pattern, so "big cat"
// wins over "cat".
func (h *Highlighter) Spans(text string) []Span {
	if len(h.patterns) == 0 || text == "" {
		return nil
	}

	var spans []Span
	iter := h.ac.Iter(text)
	for {
		m := iter.Next()
		if m == nil {
			break
		}
		pat := m.Pattern()
		if pat >= len(h.patterns) {
			continue
		}
		spans = append(spans, Span{Start: m.Start(), End: m.End(), Pattern: h.patterns[pat]})
	}
	return spans
}

// Render wraps every matched term with pre and post markers.
func (h *Highlighter) Render(text, pre, post string) string {
	spans := h.Spans(text)
	if len(spans) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(spans)*(len(pre)+len(post)))
	last := 0
	for _, s := range spans {
		if s.Start < last {
			continue
		}
		b.WriteString(text[last:s.Start])
		b.WriteString(pre)
		b.WriteString(text[s.Start:s.End])
		b.WriteString(post)
		last = s.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// Package session carries one user's query session through a request:
// the previous term set, the relevance ticks, and the result page. The
// state lives for one request, constructed fresh or restored from the
// store at request start, and is never shared between requests.
package session

import (
	"sort"

	"github.com/willwinworld/xapian/pkg/query"
)

// State is the explicit session context the classifier and driver work
// against. The classifier itself never touches it; Evolve applies the
// transition the classification prescribes.
type State struct {
	ID        string
	RawQuery  string // last raw expression, kept for display
	Terms     query.TermSet
	Ticked    map[uint32]bool // docid -> judged relevant
	DefaultOp query.Op
	Page      int // zero-based result page
}

// New returns an empty session.
func New(id string) *State {
	return &State{
		ID:     id,
		Terms:  query.NewTermSet(),
		Ticked: make(map[uint32]bool),
	}
}

// Evolve parses raw, classifies it against the session's current terms,
// applies the prescribed transition, and returns the classification plus
// the parse result for matching.
//
//	SameQuery: ticks and page survive.
//	ExtendedQuery: ticks survive, page resets.
//	NewQuery: ticks discarded, page resets.
//	BadQuery: parse error returned; state resets as for NewQuery with an
//	empty term set.
func (s *State) Evolve(raw string, p *query.Parser) (query.QueryType, query.Parsed, error) {
	parsed, err := p.Parse(raw)
	if err != nil {
		s.reset(raw, query.NewTermSet())
		return query.BadQuery, query.Parsed{}, err
	}

	qt := query.Classify(s.Terms, parsed.Terms)
	switch qt {
	case query.SameQuery:
		s.RawQuery = raw
	case query.ExtendedQuery:
		s.RawQuery = raw
		s.Terms = parsed.Terms.Clone()
		s.Page = 0
	case query.NewQuery:
		s.reset(raw, parsed.Terms.Clone())
	}
	return qt, parsed, nil
}

func (s *State) reset(raw string, terms query.TermSet) {
	s.RawQuery = raw
	s.Terms = terms
	s.Ticked = make(map[uint32]bool)
	s.Page = 0
}

// Tick marks a document judged relevant.
func (s *State) Tick(docID uint32) {
	if s.Ticked == nil {
		s.Ticked = make(map[uint32]bool)
	}
	s.Ticked[docID] = true
}

// Untick withdraws a judgement.
func (s *State) Untick(docID uint32) {
	delete(s.Ticked, docID)
}

func (s *State) IsTicked(docID uint32) bool {
	return s.Ticked[docID]
}

// TickedDocs returns the judged documents in docid order.
func (s *State) TickedDocs() []uint32 {
	out := make([]uint32, 0, len(s.Ticked))
	for id, on := range s.Ticked {
		if on {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Package query parses query expressions into term sets and classifies
// how a query evolved relative to the previous one in a session.
package query

import "sort"

// TermSet is an unordered collection of unique normalized terms. A quoted
// phrase is a single member containing spaces.
type TermSet map[string]struct{}

// NewTermSet builds a set from the given terms.
func NewTermSet(terms ...string) TermSet {
	s := make(TermSet, len(terms))
	for _, t := range terms {
		s[t] = struct{}{}
	}
	return s
}

func (s TermSet) Add(term string) {
	s[term] = struct{}{}
}

func (s TermSet) Contains(term string) bool {
	_, ok := s[term]
	return ok
}

func (s TermSet) Len() int { return len(s) }

// Equal reports set equality: same members, order-free.
func (s TermSet) Equal(other TermSet) bool {
	if len(s) != len(other) {
		return false
	}
	for t := range s {
		if _, ok := other[t]; !ok {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every member of s is also in other. The empty
// set is a subset of everything.
func (s TermSet) SubsetOf(other TermSet) bool {
	if len(s) > len(other) {
		return false
	}
	for t := range s {
		if _, ok := other[t]; !ok {
			return false
		}
	}
	return true
}

// Terms returns the members sorted, for stable display and storage.
func (s TermSet) Terms() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s TermSet) Clone() TermSet {
	out := make(TermSet, len(s))
	for t := range s {
		out[t] = struct{}{}
	}
	return out
}

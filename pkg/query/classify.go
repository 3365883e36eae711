package query

// QueryType classifies how a query evolved relative to the previous one
// in the same session. The four cases are exhaustive and drive the
// caller's state transition: which of the relevance ticks and the result
// page survive the new query.
type QueryType int

const (
	// NewQuery: at least one previous term was removed. Prior relevance
	// ticks no longer describe the user's need; the caller discards them
	// and starts from the first page.
	NewQuery QueryType = iota

	// SameQuery: identical term set. Ticks and page both survive.
	SameQuery

	// ExtendedQuery: every previous term is still present and at least
	// one was added. Ticks survive, the page resets because the ranking
	// changes.
	ExtendedQuery

	// BadQuery: the raw expression failed to parse. The caller reports
	// the parse message and resets state exactly as for NewQuery.
	BadQuery
)

func (t QueryType) String() string {
	switch t {
	case NewQuery:
		return "new"
	case SameQuery:
		return "same"
	case ExtendedQuery:
		return "extended"
	case BadQuery:
		return "bad"
	}
	return "unknown"
}

// Classify compares the previous and new term sets. Pure and read-only:
// all state transitions are the caller's to apply.
//
// Removing a term signals the information need changed, even if other
// terms were added at the same time. Adding without removing refines the
// same need.
func Classify(prev, next TermSet) QueryType {
	if prev.Equal(next) {
		return SameQuery
	}
	if prev.SubsetOf(next) {
		return ExtendedQuery
	}
	return NewQuery
}

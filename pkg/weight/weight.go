// Package weight implements pluggable relevance weighting schemes.
//
// A Scheme is a named prototype carrying tunable parameters. Init binds the
// prototype to one query term's collection statistics and returns a
// TermWeight: the initialized, immutable scoring state for that term.
// Scoring through an uninitialized scheme is impossible because only Init
// produces a TermWeight.
//
// Every TermWeight pairs exact scoring (Score, Extra) with precomputed
// upper bounds (MaxScore, MaxExtra). The bounds must hold for every
// document consistent with the statistics handed to Init; the matcher
// relies on that to skip candidates without scoring them.
package weight

import "errors"

// ErrSerialization reports a malformed or mismatched parameter blob.
var ErrSerialization = errors.New("weight: bad serialized form")

// CollectionStats carries the per-term and per-collection statistics a
// scheme consumes at initialization time. The index guarantees upper
// bounds are never understated; they may be stale-high after deletions.
type CollectionStats struct {
	CollectionSize uint32  `json:"collectionSize"` // total documents (N)
	CollectionFreq uint64  `json:"collectionFreq"` // total occurrences of the term (F)
	TermFreq       uint32  `json:"termFreq"`       // documents containing the term (df)
	AverageLength  float64 `json:"averageLength"`  // mean document length
	DocLengthLower uint32  `json:"docLengthLower"` // shortest document length
	DocLengthUpper uint32  `json:"docLengthUpper"` // longest document length
	WdfUpper       uint32  `json:"wdfUpper"`       // max within-document frequency of the term
	Wqf            float64 `json:"wqf"`            // within-query frequency
}

// Scheme is a weighting scheme prototype.
type Scheme interface {
	// Name returns the stable identifier used by the registry.
	Name() string

	// Serialize encodes the tunable parameters. Parameter-free schemes
	// return the empty string.
	Serialize() string

	// Unserialize reconstructs a prototype from a Serialize blob.
	// Trailing or malformed content fails with ErrSerialization.
	Unserialize(data string) (Scheme, error)

	// Init binds the prototype to one term's statistics, scaled by
	// factor, and precomputes the score upper bound. The returned
	// TermWeight is immutable.
	Init(stats CollectionStats, factor float64) TermWeight
}

// TermWeight is an initialized per-term scorer. Implementations are
// immutable after Init and safe for concurrent use.
type TermWeight interface {
	// Score returns the term's contribution for one document.
	// Exactly 0 when wdf == 0; never negative.
	Score(wdf, docLen, uniqueTerms uint32) float64

	// MaxScore returns the precomputed upper bound on Score.
	MaxScore() float64

	// Extra returns the document-dependent, term-independent part of
	// the weight (a length prior). Schemes without one return 0.
	Extra(docLen, uniqueTerms uint32) float64

	// MaxExtra returns the upper bound on Extra.
	MaxExtra() float64

	// Clone returns an independent copy of the initialized state.
	Clone() TermWeight
}

package weight

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// BM25 is the classic probabilistic scheme with tunable saturation and
// length normalization.
//
// Score formula (for wdf > 0):
//
//	idf = ln(1 + (N - df + 0.5) / (df + 0.5))
//	score = wqf·factor · idf · (k1+1)·wdf / (k1·(1 - b + b·len/avglen) + wdf)
//
// K2 adds a per-document length prior through Extra:
//
//	extra = factor · k2 / (1 + len/avglen)
//
// K2 = 0 (the default) disables the prior.
type BM25 struct {
	K1 float64 `json:"k1"` // wdf saturation (default 1.2)
	B  float64 `json:"b"`  // length normalization, 0..1 (default 0.75)
	K2 float64 `json:"k2"` // length prior weight (default 0)
}

var _ Scheme = BM25{}

// DefaultBM25 returns the standard parameter set.
func DefaultBM25() BM25 {
	return BM25{K1: 1.2, B: 0.75, K2: 0.0}
}

func (BM25) Name() string { return "bm25" }

// Serialize encodes the parameters as JSON.
func (s BM25) Serialize() string {
	data, _ := json.Marshal(s)
	return string(data)
}

func (BM25) Unserialize(data string) (Scheme, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	var s BM25
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("bm25: bad params %q: %w", data, ErrSerialization)
	}
	if dec.More() {
		return nil, fmt.Errorf("bm25: trailing data in %q: %w", data, ErrSerialization)
	}
	if s.K1 < 0 || s.B < 0 || s.B > 1 || s.K2 < 0 {
		return nil, fmt.Errorf("bm25: parameters out of range in %q: %w", data, ErrSerialization)
	}
	return s, nil
}

// Init precomputes the idf and the score upper bound. The bound plugs in
// the extreme values the formula is monotone in: wdf at its upper bound,
// document length at its lower bound.
func (s BM25) Init(stats CollectionStats, factor float64) TermWeight {
	if stats.CollectionFreq == 0 || stats.WdfUpper == 0 || stats.AverageLength <= 0 {
		return bm25Weight{}
	}

	N := float64(stats.CollectionSize)
	df := float64(stats.TermFreq)
	idf := 0.0
	if df > 0 {
		ratio := (N - df + 0.5) / (df + 0.5)
		if ratio < 0 {
			ratio = 0
		}
		idf = math.Log(1.0 + ratio)
	}

	termFactor := stats.Wqf * factor * idf

	wdfUpper := float64(stats.WdfUpper)
	lenNormLower := 1.0 - s.B + s.B*float64(stats.DocLengthLower)/stats.AverageLength
	upper := termFactor * (s.K1 + 1.0) * wdfUpper / (s.K1*lenNormLower + wdfUpper)
	if upper < 0.0 {
		upper = 0.0
	}

	return bm25Weight{
		k1:         s.K1,
		b:          s.B,
		k2Factor:   s.K2 * factor,
		avgLen:     stats.AverageLength,
		termFactor: termFactor,
		upperBound: upper,
	}
}

// bm25Weight is the initialized per-term state. Zero value is the
// degenerate term.
type bm25Weight struct {
	k1         float64
	b          float64
	k2Factor   float64 // k2 scaled by the external factor, not by wqf
	avgLen     float64
	termFactor float64 // wqf·factor·idf
	upperBound float64
}

var _ TermWeight = bm25Weight{}

func (w bm25Weight) Score(wdf, docLen, _ uint32) float64 {
	if wdf == 0 || w.termFactor == 0 {
		return 0.0
	}

	fwdf := float64(wdf)
	lenNorm := 1.0 - w.b + w.b*float64(docLen)/w.avgLen
	return w.termFactor * (w.k1 + 1.0) * fwdf / (w.k1*lenNorm + fwdf)
}

func (w bm25Weight) MaxScore() float64 { return w.upperBound }

// Extra decays from k2 toward 0 as documents grow past the average
// length, favouring short documents when k2 > 0.
func (w bm25Weight) Extra(docLen, _ uint32) float64 {
	if w.k2Factor == 0 {
		return 0.0
	}
	return w.k2Factor / (1.0 + float64(docLen)/w.avgLen)
}

func (w bm25Weight) MaxExtra() float64 { return w.k2Factor }

func (w bm25Weight) Clone() TermWeight { return w }

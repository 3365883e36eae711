package weight

import (
	"fmt"
	"math"
)

// DLH is the parameter-free DLH scheme from the DFR (divergence from
// randomness) family. All logs are base 2.
//
// Score formula (for wdf > 0):
//
//	wt = wdf·log2((wdf/len)·C) + (len-wdf)·log2(1-wdf/len)
//	     + 0.5·log2(2π·wdf·(1-wdf/len))
//	score = wqf·factor · wt / (wdf + 0.5)
//
// where C = avglen·N/F. Negative wt is clamped to 0 before scaling.
type DLH struct{}

var _ Scheme = DLH{}

func (DLH) Name() string { return "dlh" }

// Serialize returns the empty string: DLH has no tunable parameters.
func (DLH) Serialize() string { return "" }

func (DLH) Unserialize(data string) (Scheme, error) {
	if len(data) != 0 {
		return nil, fmt.Errorf("dlh: %d trailing bytes: %w", len(data), ErrSerialization)
	}
	return DLH{}, nil
}

// Init precomputes the per-term constants and the score upper bound.
//
// The bound follows from maximizing each summand separately: the first
// term at wdf = wdfUpper, the second at wdf = 1 (the smallest wdf that
// scores at all) with len = lenUpper, and the third by bounding
// wdf·(1-wdf/len) two ways and taking the smaller.
func (DLH) Init(stats CollectionStats, factor float64) TermWeight {
	// A term that never occurs contributes nothing; evaluating the
	// formulas would divide by zero or take log of zero.
	if stats.CollectionFreq == 0 || stats.WdfUpper == 0 {
		return dlhWeight{}
	}

	const wdfLower = 1.0
	wdfUpper := float64(stats.WdfUpper)
	lenUpper := float64(stats.DocLengthUpper)

	minWdfToLen := wdfLower / lenUpper

	N := float64(stats.CollectionSize)
	F := float64(stats.CollectionFreq)

	logConstant := stats.AverageLength * N / F
	wqfFactor := stats.Wqf * factor

	// wdf·(1-wdf/len) peaks at wdf = len/2, so plug in the upper length
	// and cap wdf there.
	wdfVar := math.Min(wdfUpper, lenUpper/2.0)
	maxProduct1 := wdfVar * (1.0 - wdfVar/lenUpper)
	// Or bound it with the extreme wdf values directly.
	maxProduct2 := wdfUpper * (1.0 - minWdfToLen)
	maxProduct := math.Min(maxProduct1, maxProduct2)

	upper := wdfUpper*math.Log2(logConstant)/(wdfUpper+0.5) +
		(lenUpper-wdfLower)*math.Log2(1.0-minWdfToLen)/(wdfLower+0.5) +
		0.5*math.Log2(2.0*math.Pi*maxProduct)/(wdfLower+0.5)
	if upper < 0.0 {
		upper = 0.0
	} else {
		upper *= wqfFactor
	}

	return dlhWeight{
		logConstant: logConstant,
		wqfFactor:   wqfFactor,
		upperBound:  upper,
	}
}

// dlhWeight is the initialized per-term state. Zero value is the
// degenerate term (everything scores 0).
type dlhWeight struct {
	logConstant float64 // avglen·N/F
	wqfFactor   float64 // wqf·factor
	upperBound  float64
}

var _ TermWeight = dlhWeight{}

func (w dlhWeight) Score(wdf, docLen, _ uint32) float64 {
	if wdf == 0 {
		return 0.0
	}

	wdfToLen := float64(wdf) / float64(docLen)
	oneMinusWdfToLen := 1.0 - wdfToLen

	fwdf := float64(wdf)
	wt := fwdf*math.Log2(wdfToLen*w.logConstant) +
		(float64(docLen)-fwdf)*math.Log2(oneMinusWdfToLen) +
		0.5*math.Log2(2.0*math.Pi*fwdf*oneMinusWdfToLen)
	// wdf == docLen makes the middle term 0·log2(0) = NaN; out of
	// domain either way, so it scores 0 like any non-positive wt.
	if math.IsNaN(wt) || wt <= 0.0 {
		return 0.0
	}

	return w.wqfFactor * wt / (fwdf + 0.5)
}

func (w dlhWeight) MaxScore() float64 { return w.upperBound }

// Extra is always 0: DLH has no document-length prior.
func (w dlhWeight) Extra(_, _ uint32) float64 { return 0.0 }

func (w dlhWeight) MaxExtra() float64 { return 0.0 }

func (w dlhWeight) Clone() TermWeight { return w }

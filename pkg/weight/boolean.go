package weight

import "fmt"

// Bool assigns every matching document a weight of 0. Useful for pure
// filtering where ranking is irrelevant or supplied elsewhere.
type Bool struct{}

var _ Scheme = Bool{}

func (Bool) Name() string { return "bool" }

func (Bool) Serialize() string { return "" }

func (Bool) Unserialize(data string) (Scheme, error) {
	if len(data) != 0 {
		return nil, fmt.Errorf("bool: %d trailing bytes: %w", len(data), ErrSerialization)
	}
	return Bool{}, nil
}

func (Bool) Init(CollectionStats, float64) TermWeight { return boolWeight{} }

type boolWeight struct{}

var _ TermWeight = boolWeight{}

func (boolWeight) Score(_, _, _ uint32) float64 { return 0.0 }
func (boolWeight) MaxScore() float64            { return 0.0 }
func (boolWeight) Extra(_, _ uint32) float64    { return 0.0 }
func (boolWeight) MaxExtra() float64            { return 0.0 }
func (boolWeight) Clone() TermWeight            { return boolWeight{} }

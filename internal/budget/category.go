package budget

import (
	"fmt"
	"math"
)

// Category is a class of candidate files competing for the token budget.
type Category string

// Categories in priority order.
const (
	Explicit   Category = "explicit"
	Session    Category = "session"
	Git        Category = "git"
	Dependency Category = "dependency"
	Dependent  Category = "dependent"
	Test       Category = "test"
	Type       Category = "type"
)

// Categories lists every category in priority order. The last one absorbs
// all remaining spillover.
var Categories = []Category{Explicit, Session, Git, Dependency, Dependent, Test, Type}

// Rank returns the priority of c; lower is higher priority. Unknown
// categories rank after every known one.
func (c Category) Rank() int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	return len(Categories)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c.Rank() < len(Categories)
}

func (c Category) String() string { return string(c) }

// Weights maps categories to their share of the available budget.
type Weights map[Category]float64

// DefaultWeights returns the baseline split. Weights never increase down
// the priority order: explicit shares the top tier with every category
// but type, which gets the remainder and absorbs spillover anyway.
func DefaultWeights() Weights {
	return Weights{
		Explicit:   0.15,
		Session:    0.15,
		Git:        0.15,
		Dependency: 0.15,
		Dependent:  0.15,
		Test:       0.15,
		Type:       0.10,
	}
}

// weightSumTolerance absorbs float rounding in configured weights.
const weightSumTolerance = 1e-9

// Validate checks that weights name only known categories, are
// non-negative and sum to at most 1.0. Missing categories weigh zero.
func (w Weights) Validate() error {
	sum := 0.0
	for c, v := range w {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s weight %v", ErrInvalidWeights, c, v)
		}
		sum += v
	}
	if sum > 1.0+weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %.4f, must be at most 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

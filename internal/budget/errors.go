package budget

import "errors"

var (
	// ErrInvalidWeights indicates negative weights or a sum above 1.0.
	ErrInvalidWeights = errors.New("invalid budget weights")

	// ErrUnknownCategory indicates a category outside the fixed set.
	ErrUnknownCategory = errors.New("unknown budget category")

	// ErrInvalidCeiling indicates a negative token ceiling.
	ErrInvalidCeiling = errors.New("invalid token ceiling")
)

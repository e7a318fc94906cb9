package anns

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for non-positive parameters, out of range
	// table indices and similar caller mistakes
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDimensionMismatch is returned when a vector does not have the
	// dimension the operation expects
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNoCandidates is returned by GetMajorityCandidate when the query
	// collides with nothing
	ErrNoCandidates = errors.New("no candidates")
)

// DimensionError reports the expected and actual dimension of a vector.
// errors.Is(err, ErrDimensionMismatch) holds for every DimensionError.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is makes DimensionError match ErrDimensionMismatch
func (e *DimensionError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

func checkDimension(v []float64, dim int) error {
	if len(v) != dim {
		return &DimensionError{Expected: dim, Actual: len(v)}
	}
	return nil
}

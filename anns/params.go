package anns

import (
	"fmt"
	"math"
)

// LSHParams encapsulates the parameters used in constructing the LSH-based data structure.
// With BucketSize > 0 a bucket keeps the first ids in dataset order and
// drops the rest, so a dropped point may not be retrieved by its own query.
type LSHParams struct {
	NumFeatures     int     `json:"num_features" yaml:"num_features"`         // dimension d of every data point
	NumTables       int     `json:"num_tables" yaml:"num_tables"`             // number of hash tables L
	NumProjections  int     `json:"num_projections" yaml:"num_projections"`   // number of hash functions K composed per table
	ProjectionWidth float64 `json:"projection_width" yaml:"projection_width"` // bucket width w
	BucketSize      int     `json:"bucket_size" yaml:"bucket_size"`           // max ids kept per bucket (<= 0 for no limit)
}

// Validate checks that K, L, d and w are all positive
func (p *LSHParams) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil parameters", ErrInvalidArgument)
	}
	if p.NumFeatures <= 0 {
		return fmt.Errorf("%w: num_features must be positive, got %d", ErrInvalidArgument, p.NumFeatures)
	}
	if p.NumTables <= 0 {
		return fmt.Errorf("%w: num_tables must be positive, got %d", ErrInvalidArgument, p.NumTables)
	}
	if p.NumProjections <= 0 {
		return fmt.Errorf("%w: num_projections must be positive, got %d", ErrInvalidArgument, p.NumProjections)
	}
	if !(p.ProjectionWidth > 0) || math.IsInf(p.ProjectionWidth, 1) {
		return fmt.Errorf("%w: projection_width must be positive and finite, got %v", ErrInvalidArgument, p.ProjectionWidth)
	}
	return nil
}

func (p *LSHParams) String() string {
	return fmt.Sprintf("(K=%d, L=%d, d=%d, w=%v)", p.NumProjections, p.NumTables, p.NumFeatures, p.ProjectionWidth)
}

package anns

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// GaussianHash is locality sensitive with respect to L2 distance:
// h(v) = floor((a.v + b) / w)
type GaussianHash struct {
	a []float64 // vector of standard gaussian random variables
	b float64   // uniformly random value in the range [0, w)
	w float64
}

// NewGaussianHash generates a new locality sensitive Gaussian hash for L2 distance metric
func NewGaussianHash(rng *rand.Rand, dim int, w float64) *GaussianHash {

	a := make([]float64, dim)
	for i := range a {
		a[i] = rng.NormFloat64()
	}

	// Float64 is in [0, 1) so b stays strictly below w
	b := rng.Float64() * w

	return &GaussianHash{a, b, w}
}

// GetHashParameters returns copies of the gaussian hash parameters (a, b, w)
func (h *GaussianHash) GetHashParameters() ([]float64, float64, float64) {
	a := make([]float64, len(h.a))
	copy(a, h.a)
	return a, h.b, h.w
}

// Raw returns (a.v + b) / w before flooring.
// v must have the same dimension as a.
func (h *GaussianHash) Raw(v []float64) float64 {
	return (floats.Dot(h.a, v) + h.b) / h.w
}

// Digest returns the hash of the vector v
func (h *GaussianHash) Digest(v []float64) int {
	return int(math.Floor(h.Raw(v)))
}

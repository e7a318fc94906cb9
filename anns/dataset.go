package anns

import (
	"fmt"
	"math"
	"math/rand"
)

// NewRandomVector returns a vector of dim values drawn uniformly from [valueMin, valueMax)
func NewRandomVector(rng *rand.Rand, dim int, valueMin, valueMax float64) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = valueMin + rng.Float64()*(valueMax-valueMin)
	}
	return v
}

// GenerateRandomDataWithPlantedQueries generates random data
// with specified parameters and plants datapoints around queries.
//
// num: number of random (non-planted) values to generate
// dim: dimension of the data vectors generated
// valueMin: min value in each component of the vector
// valueMax: max value in each component of the vector
// numQueries: number of queries to generate over the data
// numNN: number of "planted" neighbors for each query
// maxNeighborDistance: maximum euclidean distance between a query and its planted neighbors
//
// returns (data, queries, planted) where planted[q] lists the ids of the
// neighbors planted around queries[q]
func GenerateRandomDataWithPlantedQueries(
	rng *rand.Rand,
	num int,
	dim int,
	valueMin float64,
	valueMax float64,
	numQueries int,
	numNN int,
	maxNeighborDistance float64) ([][]float64, [][]float64, [][]int, error) {

	if num < 0 || dim <= 0 || numQueries < 0 || numNN < 0 {
		return nil, nil, nil, fmt.Errorf("%w: num=%d dim=%d queries=%d neighbors=%d",
			ErrInvalidArgument, num, dim, numQueries, numNN)
	}
	if !(valueMax > valueMin) {
		return nil, nil, nil, fmt.Errorf("%w: empty value range [%v, %v)", ErrInvalidArgument, valueMin, valueMax)
	}
	if maxNeighborDistance < 0 {
		return nil, nil, nil, fmt.Errorf("%w: negative neighbor distance %v", ErrInvalidArgument, maxNeighborDistance)
	}

	values := make([][]float64, num, num+numQueries*numNN)
	for i := range values {
		values[i] = NewRandomVector(rng, dim, valueMin, valueMax)
	}

	queries := make([][]float64, numQueries)
	plantedIdxs := make([][]int, numQueries)

	for j := range queries {
		queries[j] = NewRandomVector(rng, dim, valueMin, valueMax)
		plantedIdxs[j] = make([]int, numNN)

		for k := 0; k < numNN; k++ {
			values = append(values, PerturbVector(rng, queries[j], maxNeighborDistance))
			plantedIdxs[j][k] = len(values) - 1
		}
	}

	return values, queries, plantedIdxs, nil
}

// PerturbVector returns a copy of v shifted by at most maxDistance in L2 norm.
// Every coordinate moves by less than sqrt(maxDistance^2 / dim).
func PerturbVector(rng *rand.Rand, v []float64, maxDistance float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)

	if len(v) == 0 || maxDistance <= 0 {
		return out
	}

	r := math.Sqrt(maxDistance * maxDistance / float64(len(v)))
	for coord := range out {
		// uniform in (-r, r)
		out[coord] += (2*rng.Float64() - 1) * r
	}

	return out
}

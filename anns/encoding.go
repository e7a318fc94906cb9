package anns

import (
	"fmt"
	"math/rand"
	"sort"
)

// Breakpoints split every projected coordinate of one table into regions.
// Breakpoints[j] has numRegions+1 ascending values; region r of
// coordinate j is [Breakpoints[j][r], Breakpoints[j][r+1]).
type Breakpoints [][]float64

// NumRegions returns the number of regions per coordinate
func (bp Breakpoints) NumRegions() int {
	if len(bp) == 0 {
		return 0
	}
	return len(bp[0]) - 1
}

// SelectBreakpoints samples sampleSize of the projected points of one table
// (indexed [point][hash]) without replacement and, for each coordinate,
// picks numRegions+1 breakpoints that split the sorted sample into regions
// holding roughly the same number of points. The first and last breakpoints
// are the sample min and max.
func SelectBreakpoints(rng *rand.Rand, projected [][]float64, sampleSize, numRegions int) (Breakpoints, error) {
	if numRegions <= 0 {
		return nil, fmt.Errorf("%w: num regions must be positive, got %d", ErrInvalidArgument, numRegions)
	}
	if sampleSize <= 0 || sampleSize > len(projected) {
		return nil, fmt.Errorf("%w: sample size %d out of range [1, %d]", ErrInvalidArgument, sampleSize, len(projected))
	}

	k := len(projected[0])
	for i, p := range projected {
		if err := checkDimension(p, k); err != nil {
			return nil, fmt.Errorf("projected point %d: %w", i, err)
		}
	}

	sample := rng.Perm(len(projected))[:sampleSize]

	bp := make(Breakpoints, k)
	values := make([]float64, sampleSize)
	for j := range bp {
		for s, idx := range sample {
			values[s] = projected[idx][j]
		}
		sort.Float64s(values)

		bp[j] = make([]float64, numRegions+1)
		bp[j][0] = values[0]
		for z := 1; z < numRegions; z++ {
			bp[j][z] = values[z*sampleSize/numRegions]
		}
		bp[j][numRegions] = values[sampleSize-1]
	}

	return bp, nil
}

// SelectAllBreakpoints selects breakpoints independently for every table of
// raw, which is indexed [table][point][hash]
func SelectAllBreakpoints(rng *rand.Rand, raw [][][]float64, sampleSize, numRegions int) ([]Breakpoints, error) {
	all := make([]Breakpoints, len(raw))
	for i, table := range raw {
		bp, err := SelectBreakpoints(rng, table, sampleSize, numRegions)
		if err != nil {
			return nil, fmt.Errorf("table %d: %w", i, err)
		}
		all[i] = bp
	}
	return all, nil
}

// Encode returns the region of value among breakpoints. Values outside
// the breakpoint range are clamped to the first or last region.
func Encode(value float64, breakpoints []float64) int {
	numRegions := len(breakpoints) - 1
	if numRegions <= 0 {
		return 0
	}

	// first breakpoint strictly greater than value
	r := sort.Search(len(breakpoints), func(i int) bool { return breakpoints[i] > value }) - 1

	return min(max(r, 0), numRegions-1)
}

// EncodePoint encodes every coordinate of one projected point
func (bp Breakpoints) EncodePoint(projected []float64) ([]int, error) {
	if err := checkDimension(projected, len(bp)); err != nil {
		return nil, err
	}

	code := make([]int, len(projected))
	for j, v := range projected {
		code[j] = Encode(v, bp[j])
	}
	return code, nil
}

// EncodeDataset encodes raw projections indexed [table][point][hash] with
// the breakpoints of the matching table
func EncodeDataset(raw [][][]float64, breakpoints []Breakpoints) ([][][]int, error) {
	if len(raw) != len(breakpoints) {
		return nil, fmt.Errorf("%w: %d projected tables but %d breakpoint sets", ErrInvalidArgument, len(raw), len(breakpoints))
	}

	encoded := make([][][]int, len(raw))
	for i, table := range raw {
		encoded[i] = make([][]int, len(table))
		for p, projected := range table {
			code, err := breakpoints[i].EncodePoint(projected)
			if err != nil {
				return nil, fmt.Errorf("table %d point %d: %w", i, p, err)
			}
			encoded[i][p] = code
		}
	}

	return encoded, nil
}

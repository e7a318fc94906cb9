package anns

import (
	"fmt"
	"math/rand"
)

// DETLSHParams configures the dynamic encoding and DE-Tree stage
type DETLSHParams struct {
	SampleSize  int `json:"sample_size" yaml:"sample_size"`     // points sampled per table to pick breakpoints
	NumRegions  int `json:"num_regions" yaml:"num_regions"`     // regions per projected coordinate
	MaxLeafSize int `json:"max_leaf_size" yaml:"max_leaf_size"` // DE-Tree leaf capacity
}

// DETLSHIndex encodes the raw projections of a dataset into regions and
// indexes the codes of every table in a DE-Tree
type DETLSHIndex struct {
	Data        [][]float64
	Breakpoints []Breakpoints
	Trees       []*DETree

	family *HashFamily
}

// BuildDETLSH projects data through the family, selects breakpoints per
// table, encodes every point and builds one DE-Tree per table
func BuildDETLSH(rng *rand.Rand, family *HashFamily, data [][]float64, params DETLSHParams) (*DETLSHIndex, error) {
	raw, err := family.ProjectDatasetRaw(data)
	if err != nil {
		return nil, err
	}

	breakpoints, err := SelectAllBreakpoints(rng, raw, min(params.SampleSize, len(data)), params.NumRegions)
	if err != nil {
		return nil, err
	}

	codes, err := EncodeDataset(raw, breakpoints)
	if err != nil {
		return nil, err
	}

	trees, err := BuildDETrees(codes, params.MaxLeafSize)
	if err != nil {
		return nil, err
	}

	return &DETLSHIndex{
		Data:        data,
		Breakpoints: breakpoints,
		Trees:       trees,
		family:      family,
	}, nil
}

// Encode returns the code of query in every table
func (idx *DETLSHIndex) Encode(query []float64) ([][]int, error) {
	codes := make([][]int, len(idx.Trees))
	for i := range idx.Trees {
		raw, err := idx.family.ProjectRaw(query, i)
		if err != nil {
			return nil, err
		}
		codes[i], err = idx.Breakpoints[i].EncodePoint(raw)
		if err != nil {
			return nil, fmt.Errorf("table %d: %w", i, err)
		}
	}
	return codes, nil
}

// RangeQuery returns the ids of points whose code is within radius of the
// query's code in at least one table
func (idx *DETLSHIndex) RangeQuery(query []float64, radius float64) ([]int, error) {
	codes, err := idx.Encode(query)
	if err != nil {
		return nil, err
	}
	return RangeQueryAll(idx.Trees, codes, radius)
}

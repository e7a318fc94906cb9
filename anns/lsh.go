package anns

import (
	"encoding/binary"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// LSH is a set of K locality sensitive hash functions whose outputs are
// concatenated into one bucket key
type LSH struct {
	Hset []*GaussianHash
}

// NewEuclideanLSH samples an LSH for L2 norm with dimension dim and parameters:
// w: width parameter for LSH sampled from p-stable distributions
// k: number of concatenated hash functions for amplification
// see Datar et al. Locality-Sensitive Hashing Scheme Based on p-Stable Distributions
// https://dl.acm.org/doi/pdf/10.1145/997817.997857
// for more details on the construction
func NewEuclideanLSH(rng *rand.Rand, dim int, w float64, k int) *LSH {

	hashes := make([]*GaussianHash, k)
	for i := range hashes {
		hashes[i] = NewGaussianHash(rng, dim, w)
	}

	return &LSH{
		Hset: hashes,
	}
}

// GetHashSet returns the set of hashes comprising the LSH
func (lsh *LSH) GetHashSet() []*GaussianHash {
	return lsh.Hset
}

// Project outputs the bucket key of v, one entry per hash function
func (lsh *LSH) Project(v []float64) BucketKey {
	key := make(BucketKey, len(lsh.Hset))
	for i, h := range lsh.Hset {
		key[i] = h.Digest(v)
	}
	return key
}

// ProjectRaw outputs the un-floored projections of v
func (lsh *LSH) ProjectRaw(v []float64) []float64 {
	raw := make([]float64, len(lsh.Hset))
	for i, h := range lsh.Hset {
		raw[i] = h.Raw(v)
	}
	return raw
}

// BucketKey identifies a bucket within one hash table
type BucketKey []int

// String encodes the key as fixed-width little endian words so that two keys
// produce the same string iff they are element-wise equal
func (k BucketKey) String() string {
	buf := make([]byte, 0, 8*len(k))
	for _, h := range k {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(h)))
	}
	return string(buf)
}

// Equal reports whether both keys hold the same values in the same order
func (k BucketKey) Equal(other BucketKey) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// HashFamily holds the parameters of all L hash tables. It is sampled
// once and never modified afterwards.
type HashFamily struct {
	Tables []*LSH

	dim   int
	width float64
}

// NewHashFamily samples L x K gaussian hashes for vectors of dimension d
func NewHashFamily(params *LSHParams, rng *rand.Rand) (*HashFamily, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrInvalidArgument)
	}

	tables := make([]*LSH, params.NumTables)
	for i := range tables {
		tables[i] = NewEuclideanLSH(rng, params.NumFeatures, params.ProjectionWidth, params.NumProjections)
	}

	return &HashFamily{
		Tables: tables,
		dim:    params.NumFeatures,
		width:  params.ProjectionWidth,
	}, nil
}

// Dim returns the vector dimension the family was sampled for
func (f *HashFamily) Dim() int {
	return f.dim
}

// Width returns the bucket width w
func (f *HashFamily) Width() float64 {
	return f.width
}

// NumTables returns L
func (f *HashFamily) NumTables() int {
	return len(f.Tables)
}

func (f *HashFamily) check(v []float64, table int) error {
	if table < 0 || table >= len(f.Tables) {
		return fmt.Errorf("%w: table index %d out of range [0, %d)", ErrInvalidArgument, table, len(f.Tables))
	}
	return checkDimension(v, f.dim)
}

// Project maps v to its bucket key in the given table
func (f *HashFamily) Project(v []float64, table int) (BucketKey, error) {
	if err := f.check(v, table); err != nil {
		return nil, err
	}
	return f.Tables[table].Project(v), nil
}

// ProjectRaw returns the un-floored projections (a.v + b) / w of v in the given table
func (f *HashFamily) ProjectRaw(v []float64, table int) ([]float64, error) {
	if err := f.check(v, table); err != nil {
		return nil, err
	}
	return f.Tables[table].ProjectRaw(v), nil
}

// ProjectAll maps v to its bucket key in every table
func (f *HashFamily) ProjectAll(v []float64) ([]BucketKey, error) {
	if err := checkDimension(v, f.dim); err != nil {
		return nil, err
	}

	keys := make([]BucketKey, len(f.Tables))
	for i, lsh := range f.Tables {
		keys[i] = lsh.Project(v)
	}
	return keys, nil
}

// ProjectDataset returns the L x n matrix of bucket keys for data.
// Tables are projected concurrently.
func (f *HashFamily) ProjectDataset(data [][]float64) ([][]BucketKey, error) {
	for i, point := range data {
		if err := checkDimension(point, f.dim); err != nil {
			return nil, fmt.Errorf("dataset vector %d: %w", i, err)
		}
	}

	projected := make([][]BucketKey, len(f.Tables))

	var g errgroup.Group
	for i, lsh := range f.Tables {
		i, lsh := i, lsh
		g.Go(func() error {
			keys := make([]BucketKey, len(data))
			for j, point := range data {
				keys[j] = lsh.Project(point)
			}
			projected[i] = keys
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return projected, nil
}

// ProjectDatasetRaw is ProjectDataset without flooring; the result is indexed
// [table][point][hash]
func (f *HashFamily) ProjectDatasetRaw(data [][]float64) ([][][]float64, error) {
	for i, point := range data {
		if err := checkDimension(point, f.dim); err != nil {
			return nil, fmt.Errorf("dataset vector %d: %w", i, err)
		}
	}

	projected := make([][][]float64, len(f.Tables))

	var g errgroup.Group
	for i, lsh := range f.Tables {
		i, lsh := i, lsh
		g.Go(func() error {
			raw := make([][]float64, len(data))
			for j, point := range data {
				raw[j] = lsh.ProjectRaw(point)
			}
			projected[i] = raw
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return projected, nil
}

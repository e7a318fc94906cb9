package anns

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Table stores the buckets of one hash table; each bucket holds dataset ids
type Table struct {
	Buckets map[string]*roaring.Bitmap
}

// Index is the set of hash tables built over one dataset. It is read-only
// once Build returns.
type Index struct {
	Data   [][]float64 // the indexed data, addressed by id
	Tables []*Table    // one table per hash table of the family

	family *HashFamily
}

// LSHBasedKNN is a data structure that uses GaussianHash to
// hash a set of points into buckets for nearest neighbor search
type LSHBasedKNN struct {
	Params *LSHParams  // parameters used in constructing the data structure
	Family *HashFamily // hash function for each of the NumTables tables

	logger      zerolog.Logger
	parallelism int
}

type options struct {
	rng         *rand.Rand
	logger      zerolog.Logger
	parallelism int
}

// Option configures an LSHBasedKNN
type Option func(*options)

// WithSeed makes hash family sampling reproducible
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.rng = rand.New(rand.NewSource(seed))
	}
}

// WithRand samples the hash family from rng
func WithRand(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithLogger sets the logger used for build summaries
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithParallelism limits the number of tables built concurrently (<= 0 for no limit)
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// NewLSHBased generates a new KNN datastructure based on LSH
// using the specified parameters
func NewLSHBased(params *LSHParams, opts ...Option) (*LSHBasedKNN, error) {
	o := options{
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	family, err := NewHashFamily(params, o.rng)
	if err != nil {
		return nil, err
	}

	p := *params
	return &LSHBasedKNN{
		Params:      &p,
		Family:      family,
		logger:      o.logger,
		parallelism: o.parallelism,
	}, nil
}

// Build hashes every point of data into each of the hash tables.
// The ids stored in the buckets are positions in data.
func (knn *LSHBasedKNN) Build(data [][]float64) (*Index, error) {

	if uint64(len(data)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: dataset of %d vectors exceeds 32-bit ids", ErrInvalidArgument, len(data))
	}

	// the dataset must match the configured dimension before anything is hashed
	for i, point := range data {
		if err := checkDimension(point, knn.Params.NumFeatures); err != nil {
			return nil, fmt.Errorf("%w: dataset vector %d: %w", ErrInvalidArgument, i, err)
		}
	}

	start := time.Now()

	index := &Index{
		Data:   data,
		Tables: make([]*Table, knn.Params.NumTables),
		family: knn.Family,
	}

	var g errgroup.Group
	if knn.parallelism > 0 {
		g.SetLimit(knn.parallelism)
	}

	// each goroutine is the only writer of its table
	for i := range index.Tables {
		i := i
		g.Go(func() error {
			index.Tables[i] = knn.buildTable(i, data)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	knn.logger.Debug().
		Int("points", len(data)).
		Int("tables", len(index.Tables)).
		Int("buckets_table0", len(index.Tables[0].Buckets)).
		Dur("elapsed", time.Since(start)).
		Msg("built lsh index")

	return index, nil
}

func (knn *LSHBasedKNN) buildTable(i int, data [][]float64) *Table {
	t := &Table{
		Buckets: make(map[string]*roaring.Bitmap),
	}

	lsh := knn.Family.Tables[i]
	for j, point := range data {
		digest := lsh.Project(point).String()

		bucket, ok := t.Buckets[digest]
		if !ok {
			bucket = roaring.New()
			t.Buckets[digest] = bucket
		}

		// add the id to the bucket unless it is full
		if knn.Params.BucketSize <= 0 || bucket.GetCardinality() < uint64(knn.Params.BucketSize) {
			bucket.Add(uint32(j))
		}
	}

	return t
}

// Query returns the ids of all points that share a bucket with query
// in at least one hash table
func (knn *LSHBasedKNN) Query(query []float64, index *Index) (*Candidates, error) {
	return knn.QueryTables(query, index, knn.Params.NumTables)
}

// QueryTables is Query restricted to the first numTables hash tables
func (knn *LSHBasedKNN) QueryTables(query []float64, index *Index, numTables int) (*Candidates, error) {
	if err := knn.checkQuery(query, index, numTables); err != nil {
		return nil, err
	}

	ids := roaring.New()
	for i := 0; i < numTables; i++ {
		digest := knn.Family.Tables[i].Project(query).String()

		if bucket, ok := index.Tables[i].Buckets[digest]; ok {
			ids.Or(bucket)
		}
	}

	return &Candidates{ids: ids, data: index.Data}, nil
}

// checkQuery validates the arguments shared by every query over index
func (knn *LSHBasedKNN) checkQuery(query []float64, index *Index, numTables int) error {
	if index == nil || index.family != knn.Family {
		return fmt.Errorf("%w: index was not built by this data structure", ErrInvalidArgument)
	}
	if numTables <= 0 || numTables > len(index.Tables) {
		return fmt.Errorf("%w: number of tables %d out of range [1, %d]", ErrInvalidArgument, numTables, len(index.Tables))
	}
	return checkDimension(query, knn.Params.NumFeatures)
}

// Candidates is the deduplicated set of points retrieved for a query
type Candidates struct {
	ids  *roaring.Bitmap
	data [][]float64
}

// Len returns the number of distinct candidates
func (c *Candidates) Len() int {
	return int(c.ids.GetCardinality())
}

// Contains reports whether the point with the given id is a candidate
func (c *Candidates) Contains(id int) bool {
	if id < 0 || uint64(id) > math.MaxUint32 {
		return false
	}
	return c.ids.Contains(uint32(id))
}

// IDs returns the candidate ids in ascending order
func (c *Candidates) IDs() []int {
	ids := make([]int, 0, c.ids.GetCardinality())
	it := c.ids.Iterator()
	for it.HasNext() {
		ids = append(ids, int(it.Next()))
	}
	return ids
}

// Vectors returns the candidate points in ascending id order
func (c *Candidates) Vectors() [][]float64 {
	ids := c.IDs()
	points := make([][]float64, len(ids))
	for i, id := range ids {
		points[i] = c.data[id]
	}
	return points
}

// TableStats summarises the buckets of one table
type TableStats struct {
	NumBuckets    int `json:"num_buckets"`
	MaxBucketSize int `json:"max_bucket_size"`
	NumEntries    int `json:"num_entries"`
}

// GetTableStats returns bucket statistics for each hash table
func (index *Index) GetTableStats() []TableStats {
	stats := make([]TableStats, len(index.Tables))

	for i, t := range index.Tables {
		stats[i].NumBuckets = len(t.Buckets)
		for _, b := range t.Buckets {
			size := int(b.GetCardinality())
			stats[i].NumEntries += size
			stats[i].MaxBucketSize = max(stats[i].MaxBucketSize, size)
		}
	}

	return stats
}

// GetTableMaxBucketSize returns the size of the largest bucket for each hash table
func (index *Index) GetTableMaxBucketSize() []int {
	stats := index.GetTableStats()

	maxBucketSizesPerTable := make([]int, len(stats))
	for i, s := range stats {
		maxBucketSizesPerTable[i] = s.MaxBucketSize
	}

	return maxBucketSizesPerTable
}

// NumTables returns the number of tables in the KNN data structure
func (knn *LSHBasedKNN) NumTables() int {
	return knn.Params.NumTables
}

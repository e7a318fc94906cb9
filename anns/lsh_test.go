package anns

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() *LSHParams {
	return &LSHParams{
		NumFeatures:     NumberOfDims,
		NumTables:       NumberOfTables,
		NumProjections:  NumberOfProjections,
		ProjectionWidth: ProjectionWidth,
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *LSHParams)
		valid  bool
	}{
		{"valid", func(p *LSHParams) {}, true},
		{"zero K", func(p *LSHParams) { p.NumProjections = 0 }, false},
		{"negative L", func(p *LSHParams) { p.NumTables = -1 }, false},
		{"zero d", func(p *LSHParams) { p.NumFeatures = 0 }, false},
		{"zero w", func(p *LSHParams) { p.ProjectionWidth = 0 }, false},
		{"negative w", func(p *LSHParams) { p.ProjectionWidth = -3 }, false},
		{"bucket size is optional", func(p *LSHParams) { p.BucketSize = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(p)

			err := p.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidArgument)

			_, err = NewLSHBased(p, WithSeed(1))
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestHashFamilyShape(t *testing.T) {
	p := testParams()
	family, err := NewHashFamily(p, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	require.Len(t, family.Tables, p.NumTables)
	assert.Equal(t, p.NumTables, family.NumTables())
	assert.Equal(t, p.NumFeatures, family.Dim())
	assert.Equal(t, p.ProjectionWidth, family.Width())

	for _, lsh := range family.Tables {
		require.Len(t, lsh.GetHashSet(), p.NumProjections)
		for _, h := range lsh.GetHashSet() {
			a, b, w := h.GetHashParameters()
			assert.Len(t, a, p.NumFeatures)
			assert.Equal(t, p.ProjectionWidth, w)
			assert.GreaterOrEqual(t, b, 0.0)
			assert.Less(t, b, w)
		}
	}
}

func TestGaussianHashDigest(t *testing.T) {
	h := &GaussianHash{a: []float64{1, 2}, b: 0.5, w: 2}

	// (1*1 + 2*1 + 0.5) / 2 = 1.75
	assert.Equal(t, 1, h.Digest([]float64{1, 1}))
	assert.InDelta(t, 1.75, h.Raw([]float64{1, 1}), 1e-12)

	// (-3 - 4 + 0.5) / 2 = -3.25 floors to -4
	assert.Equal(t, -4, h.Digest([]float64{-3, -2}))
}

func TestProjectDeterministic(t *testing.T) {
	p := testParams()
	family, err := NewHashFamily(p, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		v := NewRandomVector(rng, p.NumFeatures, DataValueRangeMin, DataValueRangeMax)
		for table := 0; table < p.NumTables; table++ {
			k1, err := family.Project(v, table)
			require.NoError(t, err)
			k2, err := family.Project(v, table)
			require.NoError(t, err)

			require.Len(t, k1, p.NumProjections)
			assert.True(t, k1.Equal(k2))
			assert.Equal(t, k1.String(), k2.String())
		}
	}
}

func TestSameSeedSameFamily(t *testing.T) {
	p := testParams()
	f1, err := NewHashFamily(p, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	f2, err := NewHashFamily(p, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	v := NewRandomVector(rand.New(rand.NewSource(8)), p.NumFeatures, -1, 1)
	k1, err := f1.ProjectAll(v)
	require.NoError(t, err)
	k2, err := f2.ProjectAll(v)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	for i := range k1 {
		assert.True(t, k1[i].Equal(k2[i]))
	}

	// an engine sampling from an equally seeded rng has the same family
	knn, err := NewLSHBased(p, WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	k3, err := knn.Family.ProjectAll(v)
	require.NoError(t, err)
	assert.Equal(t, k1, k3)

	knn, err = NewLSHBased(p, WithRand(rand.New(rand.NewSource(70))))
	require.NoError(t, err)
	k4, err := knn.Family.ProjectAll(v)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k4)
}

func TestProjectErrors(t *testing.T) {
	p := testParams()
	family, err := NewHashFamily(p, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	_, err = family.Project(make([]float64, p.NumFeatures+1), 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	var dimErr *DimensionError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, p.NumFeatures, dimErr.Expected)
	assert.Equal(t, p.NumFeatures+1, dimErr.Actual)

	_, err = family.Project(make([]float64, p.NumFeatures), p.NumTables)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = family.Project(make([]float64, p.NumFeatures), -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = family.ProjectAll(make([]float64, 2))
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewHashFamily(p, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestProjectDatasetMatchesProject(t *testing.T) {
	p := testParams()
	family, err := NewHashFamily(p, rand.New(rand.NewSource(4)))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	data := make([][]float64, 50)
	for i := range data {
		data[i] = NewRandomVector(rng, p.NumFeatures, DataValueRangeMin, DataValueRangeMax)
	}

	keys, err := family.ProjectDataset(data)
	require.NoError(t, err)
	raw, err := family.ProjectDatasetRaw(data)
	require.NoError(t, err)

	require.Len(t, keys, p.NumTables)
	require.Len(t, raw, p.NumTables)
	for table := range keys {
		require.Len(t, keys[table], len(data))
		for i, v := range data {
			want, err := family.Project(v, table)
			require.NoError(t, err)
			assert.Equal(t, want, keys[table][i])

			for j := range want {
				assert.LessOrEqual(t, float64(want[j]), raw[table][i][j])
				assert.Greater(t, float64(want[j])+1, raw[table][i][j])
			}
		}
	}

	_, err = family.ProjectDataset([][]float64{make([]float64, 3)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBucketKeyString(t *testing.T) {
	tests := []struct {
		name  string
		a, b  BucketKey
		equal bool
	}{
		{"same", BucketKey{1, -2, 3}, BucketKey{1, -2, 3}, true},
		{"order matters", BucketKey{1, 2}, BucketKey{2, 1}, false},
		{"sign matters", BucketKey{-1}, BucketKey{1}, false},
		{"length matters", BucketKey{0}, BucketKey{0, 0}, false},
		{"large values", BucketKey{1 << 30, -1 << 30}, BucketKey{1 << 30, -1 << 30}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
			assert.Equal(t, tt.equal, tt.a.String() == tt.b.String())
		})
	}
}

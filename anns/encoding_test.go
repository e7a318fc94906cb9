package anns

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	bp := []float64{0, 1, 2, 3}

	tests := []struct {
		value  float64
		region int
	}{
		{-1, 0}, // below the range
		{0, 0},
		{0.5, 0},
		{1, 1},
		{2.9, 2},
		{3, 2}, // the max belongs to the last region
		{10, 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.region, Encode(tt.value, bp), "value %v", tt.value)
	}

	assert.Equal(t, 0, Encode(5, []float64{1}))
}

func TestSelectBreakpoints(t *testing.T) {
	projected := make([][]float64, 100)
	for i := range projected {
		projected[i] = []float64{float64(i), float64(-i)}
	}

	// sampling every point makes the breakpoints deterministic
	bp, err := SelectBreakpoints(rand.New(rand.NewSource(1)), projected, 100, 4)
	require.NoError(t, err)
	require.Len(t, bp, 2)
	assert.Equal(t, 4, bp.NumRegions())

	assert.Equal(t, []float64{0, 25, 50, 75, 99}, bp[0])
	assert.Equal(t, []float64{-99, -74, -49, -24, 0}, bp[1])

	code, err := bp.EncodePoint([]float64{30, -30})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, code)

	_, err = bp.EncodePoint([]float64{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSelectBreakpointsSampled(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	projected := make([][]float64, 200)
	for i := range projected {
		projected[i] = []float64{rng.NormFloat64() * 10}
	}

	bp, err := SelectBreakpoints(rng, projected, 20, 8)
	require.NoError(t, err)
	require.Len(t, bp[0], 9)

	for r := 1; r < len(bp[0]); r++ {
		assert.LessOrEqual(t, bp[0][r-1], bp[0][r])
	}

	// every region index is in range and encoding is monotone
	prev := 0
	for v := -50.0; v <= 50; v += 0.5 {
		r := Encode(v, bp[0])
		assert.GreaterOrEqual(t, r, prev)
		assert.Less(t, r, 8)
		prev = r
	}
}

func TestSelectBreakpointsErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	projected := [][]float64{{1}, {2}, {3}}

	_, err := SelectBreakpoints(rng, projected, 4, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = SelectBreakpoints(rng, projected, 0, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = SelectBreakpoints(rng, projected, 2, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = SelectBreakpoints(rng, [][]float64{{1}, {2, 3}}, 2, 2)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEncodeDataset(t *testing.T) {
	p := &LSHParams{NumFeatures: 4, NumTables: 3, NumProjections: 5, ProjectionWidth: 2}
	family, err := NewHashFamily(p, rand.New(rand.NewSource(5)))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(6))
	data := make([][]float64, 60)
	for i := range data {
		data[i] = NewRandomVector(rng, p.NumFeatures, -5, 5)
	}

	raw, err := family.ProjectDatasetRaw(data)
	require.NoError(t, err)

	bps, err := SelectAllBreakpoints(rng, raw, 30, 4)
	require.NoError(t, err)
	require.Len(t, bps, p.NumTables)

	codes, err := EncodeDataset(raw, bps)
	require.NoError(t, err)
	require.Len(t, codes, p.NumTables)

	for table := range codes {
		require.Len(t, codes[table], len(data))
		for _, code := range codes[table] {
			require.Len(t, code, p.NumProjections)
			for _, r := range code {
				assert.GreaterOrEqual(t, r, 0)
				assert.Less(t, r, 4)
			}
		}
	}

	_, err = EncodeDataset(raw, bps[:1])
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

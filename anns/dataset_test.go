package anns

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomDataWithPlantedQueries(t *testing.T) {
	rng := rand.New(rand.NewSource(Seed))

	values, queries, planted, err := GenerateRandomDataWithPlantedQueries(rng, 200, 12, -5, 5, 10, 3, 1.5)
	require.NoError(t, err)

	require.Len(t, values, 200+10*3)
	require.Len(t, queries, 10)
	require.Len(t, planted, 10)

	for _, v := range values {
		require.Len(t, v, 12)
	}

	for q, ids := range planted {
		require.Len(t, ids, 3)
		for _, id := range ids {
			require.GreaterOrEqual(t, id, 200)
			dist, err := Distance(queries[q], values[id])
			require.NoError(t, err)
			assert.LessOrEqual(t, dist, 1.5)
		}
	}
}

func TestGenerateRandomDataErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, _, _, err := GenerateRandomDataWithPlantedQueries(rng, 10, 0, -1, 1, 1, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, _, _, err = GenerateRandomDataWithPlantedQueries(rng, 10, 2, 1, 1, 1, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, _, _, err = GenerateRandomDataWithPlantedQueries(rng, 10, 2, -1, 1, 1, 1, -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, _, _, err = GenerateRandomDataWithPlantedQueries(rng, -1, 2, -1, 1, 1, 1, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPerturbVector(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	v := NewRandomVector(rng, 50, -1, 1)

	for i := 0; i < 100; i++ {
		p := PerturbVector(rng, v, 0.5)
		dist, err := Distance(v, p)
		require.NoError(t, err)
		assert.LessOrEqual(t, dist, 0.5)
	}

	// zero distance returns an independent copy
	p := PerturbVector(rng, v, 0)
	assert.Equal(t, v, p)
	p[0]++
	assert.NotEqual(t, v[0], p[0])
}

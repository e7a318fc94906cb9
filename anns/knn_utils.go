package anns

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// RerankCandidates brute-forces the k nearest points to query among the
// candidates only. Neighbor indices refer to the indexed dataset.
func RerankCandidates(query []float64, candidates *Candidates, k int) ([]Neighbor, error) {
	return RerankCandidatesWith(query, candidates, k, Distance)
}

// RerankCandidatesWith is RerankCandidates under the given distance function
func RerankCandidatesWith(query []float64, candidates *Candidates, k int, dist DistanceFunction) ([]Neighbor, error) {
	ids := candidates.IDs()

	neighbors, err := KNearestWith(query, candidates.Vectors(), k, dist)
	if err != nil {
		return nil, err
	}

	// map positions in the candidate list back to dataset ids
	for i := range neighbors {
		neighbors[i].Index = ids[neighbors[i].Index]
	}

	return neighbors, nil
}

// Recall returns the fraction of the true neighbors whose index appears in found
func Recall(found []int, truth []Neighbor) float64 {
	if len(truth) == 0 {
		return 1
	}

	seen := make(map[int]bool, len(found))
	for _, id := range found {
		seen[id] = true
	}

	hits := 0
	for _, n := range truth {
		if seen[n.Index] {
			hits++
		}
	}

	return float64(hits) / float64(len(truth))
}

// CosineSimilarity returns u.v / (|u| |v|)
func CosineSimilarity(u, v []float64) (float64, error) {
	if err := checkDimension(v, len(u)); err != nil {
		return 0, err
	}

	nu, nv := floats.Norm(u, 2), floats.Norm(v, 2)
	if nu == 0 || nv == 0 {
		return 0, fmt.Errorf("%w: cosine similarity of a zero vector", ErrInvalidArgument)
	}

	return floats.Dot(u, v) / (nu * nv), nil
}

// Collision is a candidate id and the number of tables in which it shares
// a bucket with the query
type Collision struct {
	Index int `json:"index"`
	Count int `json:"count"`
}

// GetSortedCandidates returns the candidates of query ordered by how many
// tables they collide in, high to low (ties by ascending id)
func (knn *LSHBasedKNN) GetSortedCandidates(query []float64, index *Index) ([]Collision, error) {
	if err := knn.checkQuery(query, index, knn.Params.NumTables); err != nil {
		return nil, err
	}

	counts := make(map[int]int)
	for i, lsh := range knn.Family.Tables {
		bucket, ok := index.Tables[i].Buckets[lsh.Project(query).String()]
		if !ok {
			continue
		}
		it := bucket.Iterator()
		for it.HasNext() {
			counts[int(it.Next())]++
		}
	}

	sorted := make([]Collision, 0, len(counts))
	for id, c := range counts {
		sorted = append(sorted, Collision{Index: id, Count: c})
	}

	slices.SortFunc(sorted, func(a, b Collision) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return a.Index - b.Index
	})

	return sorted, nil
}

// GetMajorityCandidate returns the candidate that collides with query in the
// most tables
func (knn *LSHBasedKNN) GetMajorityCandidate(query []float64, index *Index) (int, error) {
	sorted, err := knn.GetSortedCandidates(query, index)
	if err != nil {
		return 0, err
	}

	if len(sorted) == 0 {
		return 0, ErrNoCandidates
	}

	return sorted[0].Index, nil
}

package anns

import (
	"container/heap"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Neighbor is a dataset id together with its distance to a query
type Neighbor struct {
	Index    int     `json:"index"`
	Distance float64 `json:"distance"`
}

// DistanceFunction returns the distance between p and q
type DistanceFunction func(p, q []float64) (float64, error)

// Distance returns the Euclidean (L2) distance between u and v
func Distance(u, v []float64) (float64, error) {
	if err := checkDimension(v, len(u)); err != nil {
		return 0, err
	}
	return floats.Distance(u, v, 2), nil
}

// neighborHeap is a max-heap on (distance, index): the root is the current
// worst of the k best neighbors
type neighborHeap []Neighbor

func (h neighborHeap) Len() int           { return len(h) }
func (h neighborHeap) Less(i, j int) bool { return farther(h[i], h[j]) }
func (h neighborHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *neighborHeap) Push(x any) { *h = append(*h, x.(Neighbor)) }

func (h *neighborHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// farther orders neighbors by distance, breaking ties by index
func farther(a, b Neighbor) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.Index > b.Index
}

func compareNeighbors(a, b Neighbor) int {
	switch {
	case farther(b, a):
		return -1
	case farther(a, b):
		return 1
	default:
		return 0
	}
}

// KNearest enumerates all points and returns the k closest to query,
// sorted by ascending distance with ties broken by ascending index.
// If k exceeds len(points) all points are returned.
func KNearest(query []float64, points [][]float64, k int) ([]Neighbor, error) {
	return KNearestWith(query, points, k, Distance)
}

// KNearestWith is KNearest under an arbitrary distance function.
// A nil dist falls back to Distance.
func KNearestWith(query []float64, points [][]float64, k int, dist DistanceFunction) ([]Neighbor, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	if dist == nil {
		dist = Distance
	}

	h := make(neighborHeap, 0, min(k, len(points))+1)
	for i, point := range points {
		d, err := dist(query, point)
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}

		n := Neighbor{Index: i, Distance: d}
		if len(h) < k {
			heap.Push(&h, n)
			continue
		}

		// replace the current worst if n is closer
		if farther(h[0], n) {
			h[0] = n
			heap.Fix(&h, 0)
		}
	}

	neighbors := []Neighbor(h)
	slices.SortFunc(neighbors, compareNeighbors)

	return neighbors, nil
}

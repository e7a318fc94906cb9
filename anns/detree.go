package anns

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type detreeEntry struct {
	id   int
	code []int
}

type detreeNode struct {
	leaf       bool
	children   [2]*detreeNode
	points     []detreeEntry // only for leaves
	splitDim   int
	splitValue float64
}

// DETree indexes encoded points of one projected space. Leaves holding more
// than MaxLeafSize points are split on the coordinate with the largest
// variance, at the mean of that coordinate.
type DETree struct {
	MaxLeafSize int

	root *detreeNode
	dim  int
	size int
}

// NewDETree returns an empty tree
func NewDETree(maxLeafSize int) (*DETree, error) {
	if maxLeafSize <= 0 {
		return nil, fmt.Errorf("%w: max leaf size must be positive, got %d", ErrInvalidArgument, maxLeafSize)
	}
	return &DETree{
		MaxLeafSize: maxLeafSize,
		root:        &detreeNode{leaf: true},
		dim:         -1,
	}, nil
}

// Len returns the number of inserted points
func (t *DETree) Len() int {
	return t.size
}

// Insert adds the encoded point code under id
func (t *DETree) Insert(id int, code []int) error {
	if t.dim < 0 {
		t.dim = len(code)
	}
	if len(code) != t.dim {
		return &DimensionError{Expected: t.dim, Actual: len(code)}
	}

	node := t.root
	for !node.leaf {
		if float64(code[node.splitDim]) <= node.splitValue {
			node = node.children[0]
		} else {
			node = node.children[1]
		}
	}

	node.points = append(node.points, detreeEntry{id: id, code: code})
	t.size++

	if len(node.points) > t.MaxLeafSize {
		t.split(node)
	}

	return nil
}

func (t *DETree) split(node *detreeNode) {
	if t.dim == 0 {
		return
	}

	variances := make([]float64, t.dim)
	column := make([]float64, len(node.points))
	for d := range variances {
		for i, p := range node.points {
			column[i] = float64(p.code[d])
		}
		variances[d] = stat.Variance(column, nil)
	}

	dim := floats.MaxIdx(variances)
	if variances[dim] == 0 {
		// all points are identical, no split separates them
		return
	}

	for i, p := range node.points {
		column[i] = float64(p.code[dim])
	}
	value := stat.Mean(column, nil)

	left := &detreeNode{leaf: true}
	right := &detreeNode{leaf: true}
	for _, p := range node.points {
		if float64(p.code[dim]) <= value {
			left.points = append(left.points, p)
		} else {
			right.points = append(right.points, p)
		}
	}

	node.leaf = false
	node.children = [2]*detreeNode{left, right}
	node.splitDim = dim
	node.splitValue = value
	node.points = nil
}

// RangeQuery returns the ids of all points whose code lies within Euclidean
// distance radius of code
func (t *DETree) RangeQuery(code []int, radius float64) ([]int, error) {
	if t.size == 0 {
		return nil, nil
	}
	if len(code) != t.dim {
		return nil, &DimensionError{Expected: t.dim, Actual: len(code)}
	}
	if radius < 0 {
		return nil, fmt.Errorf("%w: negative radius %v", ErrInvalidArgument, radius)
	}

	q := intsToFloats(code)
	ids := make([]int, 0)
	t.rangeQuery(t.root, q, radius, &ids)
	return ids, nil
}

func (t *DETree) rangeQuery(node *detreeNode, q []float64, radius float64, ids *[]int) {
	if node.leaf {
		for _, p := range node.points {
			if floats.Distance(q, intsToFloats(p.code), 2) <= radius {
				*ids = append(*ids, p.id)
			}
		}
		return
	}

	if q[node.splitDim]-radius <= node.splitValue {
		t.rangeQuery(node.children[0], q, radius, ids)
	}
	if q[node.splitDim]+radius > node.splitValue {
		t.rangeQuery(node.children[1], q, radius, ids)
	}
}

func intsToFloats(code []int) []float64 {
	f := make([]float64, len(code))
	for i, c := range code {
		f[i] = float64(c)
	}
	return f
}

// BuildDETrees builds one tree per table from codes indexed
// [table][point][hash]; point ids are positions within each table
func BuildDETrees(codes [][][]int, maxLeafSize int) ([]*DETree, error) {
	trees := make([]*DETree, len(codes))
	for i, table := range codes {
		tree, err := NewDETree(maxLeafSize)
		if err != nil {
			return nil, err
		}
		for id, code := range table {
			if err := tree.Insert(id, code); err != nil {
				return nil, fmt.Errorf("table %d point %d: %w", i, id, err)
			}
		}
		trees[i] = tree
	}
	return trees, nil
}

// RangeQueryAll runs a range query in every tree with the query's code for
// that tree and returns the union of the ids in ascending order
func RangeQueryAll(trees []*DETree, codes [][]int, radius float64) ([]int, error) {
	if len(trees) != len(codes) {
		return nil, fmt.Errorf("%w: %d trees but %d query codes", ErrInvalidArgument, len(trees), len(codes))
	}

	union := roaring.New()
	for i, tree := range trees {
		ids, err := tree.RangeQuery(codes[i], radius)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		for _, id := range ids {
			union.Add(uint32(id))
		}
	}

	out := make([]int, 0, union.GetCardinality())
	it := union.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out, nil
}

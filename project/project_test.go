package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelpart/bintree/binleaf"
	"github.com/voxelpart/bintree/bintree"
	"github.com/voxelpart/bintree/grid"
)

func unitBox2D() []binleaf.Bounds {
	return []binleaf.Bounds{{Min: 0, Max: 1}, {Min: 0, Max: 1}}
}

// A single-leaf tree spreads its total weight evenly across every grid
// cell, since every cell's center resolves to the same (only) leaf.
func TestFillHistogramSingleLeafSpreadsEvenly(t *testing.T) {
	entries := [][]float64{{0.1, 0.1}, {0.5, 0.5}, {0.9, 0.9}}
	weights := []float64{1, 1, 1}

	root := bintree.New(bintree.Config{Bounds: unitBox2D(), Entries: entries, Weights: weights, MinLeafEntries: 100})
	root.Build()
	require.True(t, root.IsLeaf())

	g := grid.NewUniform([]float64{0, 0}, []float64{1, 1}, []int{2, 2})
	hist := FillHistogram(root, g)

	var total float64
	for bx := 0; bx < 2; bx++ {
		for by := 0; by < 2; by++ {
			v := hist.At(Cell{bx, by})
			assert.InDelta(t, 0.75, v, 1e-9)
			total += v
		}
	}
	assert.InDelta(t, 3., total, 1e-9)
}

// A tree split on axis 0 between two clusters (then refined at its outer
// boundary) only spreads each leaf's weight across the grid cells that map
// to it; the total weight across the whole grid still equals the tree's
// total.
func TestFillHistogramTwoLeavesConservesTotalWeight(t *testing.T) {
	var entries [][]float64
	var weights []float64
	for i := 0; i < 4; i++ {
		entries = append(entries, []float64{0.2, 0.5})
		weights = append(weights, 1)
	}
	for i := 0; i < 4; i++ {
		entries = append(entries, []float64{0.8, 0.5})
		weights = append(weights, 1)
	}

	root := bintree.New(bintree.Config{Bounds: unitBox2D(), Entries: entries, Weights: weights, MinLeafEntries: 2})
	root.Build()
	require.False(t, root.IsLeaf())

	g := grid.NewUniform([]float64{0, 0}, []float64{1, 1}, []int{4, 4})
	hist := FillHistogram(root, g)

	var total float64
	for bx := 0; bx < 4; bx++ {
		for by := 0; by < 4; by++ {
			total += hist.At(Cell{bx, by})
		}
	}
	assert.InDelta(t, 8., total, 1e-9)
}

func TestFillHistogramPanicsOnDimMismatch(t *testing.T) {
	root := bintree.New(bintree.Config{Bounds: unitBox2D(), MinLeafEntries: 2})
	g := grid.NewUniform([]float64{0}, []float64{1}, []int{2})
	assert.Panics(t, func() {
		FillHistogram(root, g)
	})
}

// For a single-leaf tree, both the low-stat and high-stat width
// estimators degenerate to the leaf's own width everywhere, since there
// is nothing else to average against.
func TestFillWidthsSingleLeafIsUniform(t *testing.T) {
	entries := [][]float64{{0.1, 0.1}, {0.5, 0.5}, {0.9, 0.9}}
	weights := []float64{1, 1, 1}

	root := bintree.New(bintree.Config{Bounds: unitBox2D(), Entries: entries, Weights: weights, MinLeafEntries: 100})
	root.Build()
	require.True(t, root.IsLeaf())

	g := grid.NewUniform([]float64{0, 0}, []float64{1, 1}, []int{2, 2})
	w := FillWidths(root, g)

	for bx := 0; bx < 2; bx++ {
		for by := 0; by < 2; by++ {
			assert.InDelta(t, 1., w.At(0, Cell{bx, by}), 1e-9)
			assert.InDelta(t, 1., w.At(1, Cell{bx, by}), 1e-9)
		}
	}
}

// The low-stat fast path kicks in whenever the leaf is no wider than the
// grid cell on every axis, returning the leaf's own width directly without
// any neighbor averaging.
func TestFillWidthsLowStatFastPath(t *testing.T) {
	var entries [][]float64
	var weights []float64
	for i := 0; i < 4; i++ {
		entries = append(entries, []float64{0.2, 0.5})
		weights = append(weights, 1)
	}
	for i := 0; i < 4; i++ {
		entries = append(entries, []float64{0.8, 0.5})
		weights = append(weights, 1)
	}

	root := bintree.New(bintree.Config{Bounds: unitBox2D(), Entries: entries, Weights: weights, MinLeafEntries: 2})
	root.Build()
	require.False(t, root.IsLeaf())
	require.Less(t, root.NLeaves(), lowStatLeafCount)

	g := grid.NewUniform([]float64{0, 0}, []float64{1, 1}, []int{1, 1})
	w := FillWidths(root, g)

	leftLeaf := root.GetLeaf([]float64{0.2, 0.5})
	require.NotNil(t, leftLeaf)
	// the single grid cell spans the whole unit box on each axis, at least
	// as wide as any leaf, so this takes the fast path; check the result is
	// a sane positive width rather than NaN.
	got := w.At(0, Cell{0, 0})
	assert.False(t, got != got) // not NaN
	assert.Greater(t, got, 0.)
}

func TestGetBoundaryLinesCountMatchesLeaves(t *testing.T) {
	entries := [][]float64{{0.1, 0.1}, {0.5, 0.5}, {0.9, 0.9}}
	weights := []float64{1, 1, 1}

	root := bintree.New(bintree.Config{Bounds: unitBox2D(), Entries: entries, Weights: weights, MinLeafEntries: 100})
	root.Build()

	segments := GetBoundaryLines(root)
	assert.Len(t, segments, 4*root.NLeaves())
}

func TestGetBoundaryLinesPanicsOnNon2D(t *testing.T) {
	bounds := []binleaf.Bounds{{Min: 0, Max: 1}, {Min: 0, Max: 1}, {Min: 0, Max: 1}}
	root := bintree.New(bintree.Config{Bounds: bounds, MinLeafEntries: 2})
	assert.Panics(t, func() {
		GetBoundaryLines(root)
	})
}

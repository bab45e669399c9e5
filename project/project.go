// Package project projects a built bintree.Node back onto an external
// grid: rasterizing leaf occupancy into per-cell histograms, smoothing a
// per-axis width field across the grid, and extracting 2-D leaf boundary
// segments for plotting.
package project

import (
	"fmt"
	"log"
	"math"

	"github.com/voxelpart/bintree/binleaf"
	"github.com/voxelpart/bintree/bintree"
	"github.com/voxelpart/bintree/grid"
)

// Cell identifies one grid cell by its per-axis bin index.
type Cell []int

// Histogram is a sparse map from grid cell to accumulated weight, as
// produced by FillHistogram.
type Histogram map[string]float64

// cellKey turns a Cell into a map key; grid dimensionality is fixed for
// the lifetime of a Histogram so this never collides across cells of
// different arity.
func cellKey(c Cell) string {
	return fmt.Sprint([]int(c))
}

// At returns the accumulated weight in cell c (0 if never filled).
func (h Histogram) At(c Cell) float64 { return h[cellKey(c)] }

// FillHistogram rasterizes root's leaves onto g: for every grid cell,
// the cell's center is located in the tree (via GetLeaf), and that leaf's
// total weight is distributed equally across every grid cell that maps to
// the same leaf, mirroring the original's per-TH2F/TH3F-bin equal-split
// fill. Panics if g's dimensionality doesn't match root's or exceeds 3
// (the original only ever projects onto a 2-D or 3-D histogram).
func FillHistogram(root *bintree.Node, g grid.Grid) Histogram {
	if g.Dim() != root.Dim() {
		panic(fmt.Sprintf("project.FillHistogram: grid has %d dims, tree has %d", g.Dim(), root.Dim()))
	}
	if g.Dim() > 3 {
		panic(fmt.Sprintf("project.FillHistogram: %d dims not supported, only 2-D and 3-D histograms", g.Dim()))
	}

	log.Printf("[INFO] project.FillHistogram: starting, %d leaves", root.NLeaves())

	cellsByLeafIndex := map[int][]Cell{}
	leafByIndex := map[int]*binleaf.Leaf{}
	forEachCell(g, func(cell Cell) {
		center := make([]float64, g.Dim())
		for a, bi := range cell {
			center[a] = (g.BinLowEdge(a, bi) + g.BinUpEdge(a, bi)) / 2.
		}
		leaf := root.GetLeaf(center)
		if leaf == nil {
			return
		}
		leafByIndex[leaf.Index()] = leaf
		cellsByLeafIndex[leaf.Index()] = append(cellsByLeafIndex[leaf.Index()], append(Cell(nil), cell...))
	})

	hist := Histogram{}
	for idx, cells := range cellsByLeafIndex {
		leaf := leafByIndex[idx]
		perCell := leaf.SumOfWeights() / float64(len(cells))
		for _, cell := range cells {
			hist[cellKey(cell)] += perCell
		}
	}

	log.Printf("[INFO] project.FillHistogram: done")
	return hist
}

// forEachCell enumerates every grid cell as a Cell in row-major axis-0-
// outermost order.
func forEachCell(g grid.Grid, f func(Cell)) {
	d := g.Dim()
	idx := make([]int, d)
	nbins := make([]int, d)
	for a := 0; a < d; a++ {
		nbins[a] = g.NBins(a)
	}
	for {
		f(append(Cell(nil), idx...))
		a := d - 1
		for a >= 0 {
			idx[a]++
			if idx[a] < nbins[a] {
				break
			}
			idx[a] = 0
			a--
		}
		if a < 0 {
			return
		}
	}
}

// lowStatLeafCount is the threshold below which FillWidths uses every
// leaf (not just neighbors) when smoothing the width field, trading
// runtime for a smoother transition between regions.
const lowStatLeafCount = 500

// Widths holds one per-axis smoothed width field over a grid, produced by
// FillWidths.
type Widths struct {
	fields [][]float64 // fields[axis][cell index in row-major order]
	g      grid.Grid
}

// At returns the smoothed width on axis at cell.
func (w *Widths) At(axis int, cell Cell) float64 {
	return w.fields[axis][cellFlatIndex(w.g, cell)]
}

func cellFlatIndex(g grid.Grid, cell Cell) int {
	idx := 0
	for a := 0; a < g.Dim(); a++ {
		idx = idx*g.NBins(a) + cell[a]
	}
	return idx
}

// FillWidths smooths each axis's leaf-width field across g, dispatching
// to the low-stat or high-stat estimator depending on root's current leaf
// count (the 500-leaf threshold below which the low-stat estimator's
// smoother, full-leaf-set average is worth its extra cost).
func FillWidths(root *bintree.Node, g grid.Grid) *Widths {
	nLeaves := root.NLeaves()
	log.Printf("[INFO] project.FillWidths: starting, %d leaves", nLeaves)
	var w *Widths
	if nLeaves < lowStatLeafCount {
		w = fillWidthsLowStat(root, g)
	} else {
		w = fillWidthsHighStat(root, g)
	}
	log.Printf("[INFO] project.FillWidths: done")
	return w
}

// fillWidthsLowStat estimates each axis's width field using every leaf in
// the tree, inverse-square-distance weighted (distances normalized by the
// tree's own extent on that axis, with a 0.001*width floor to avoid a
// division blowup at the query leaf itself), with a fast path when the
// queried leaf is already no wider than the grid cell.
func fillWidthsLowStat(root *bintree.Node, g grid.Grid) *Widths {
	d := root.Dim()
	allLeaves := root.GetLeaves()
	fields := make([][]float64, d)
	n := totalCells(g)
	for a := range fields {
		fields[a] = make([]float64, n)
	}

	regionSize := make([]float64, d)
	for a := 0; a < d; a++ {
		regionSize[a] = root.GetMax(a) - root.GetMin(a)
	}

	forEachCell(g, func(cell Cell) {
		center := make([]float64, d)
		binWidth := make([]float64, d)
		for a, bi := range cell {
			center[a] = (g.BinLowEdge(a, bi) + g.BinUpEdge(a, bi)) / 2.
			binWidth[a] = g.BinUpEdge(a, bi) - g.BinLowEdge(a, bi)
		}
		leaf := root.GetLeaf(center)
		if leaf == nil {
			return
		}

		fast := true
		for a := 0; a < d; a++ {
			if leaf.Width(a) > binWidth[a] {
				fast = false
				break
			}
		}
		flat := cellFlatIndex(g, cell)
		if fast {
			for a := 0; a < d; a++ {
				fields[a][flat] = leaf.Width(a)
			}
			return
		}

		sumw := 0.
		sumwAxis := make([]float64, d)
		for _, other := range allLeaves {
			dr2 := 0.
			for a := 0; a < d; a++ {
				dx := math.Abs(other.Center(a)-center[a]) / regionSize[a]
				floor := 0.001 * other.Width(a)
				if dx < floor {
					dx = floor
				}
				dr2 += dx * dx
			}
			inv := 1. / dr2
			sumw += inv
			for a := 0; a < d; a++ {
				sumwAxis[a] += other.Width(a) * inv
			}
		}
		for a := 0; a < d; a++ {
			fields[a][flat] = sumwAxis[a] / sumw
		}
	})

	return &Widths{fields: fields, g: g}
}

// fillWidthsHighStat estimates each axis's width field using only the
// queried leaf and its immediate touching neighbors, inverse-distance
// weighted (raw, unnormalized distance, with a 0.05*width floor).
// Cheaper per cell than the low-stat estimator but noisier across distant
// regions, hence only used once leaf counts get large.
func fillWidthsHighStat(root *bintree.Node, g grid.Grid) *Widths {
	d := root.Dim()
	fields := make([][]float64, d)
	n := totalCells(g)
	for a := range fields {
		fields[a] = make([]float64, n)
	}

	forEachCell(g, func(cell Cell) {
		center := make([]float64, d)
		for a, bi := range cell {
			center[a] = (g.BinLowEdge(a, bi) + g.BinUpEdge(a, bi)) / 2.
		}
		leaf := root.GetLeaf(center)
		if leaf == nil {
			return
		}
		neighbors := append(root.FindNeighborLeaves(leaf), leaf)

		sumw := 0.
		sumwAxis := make([]float64, d)
		for _, other := range neighbors {
			dr2 := 0.
			for a := 0; a < d; a++ {
				dx := math.Abs(other.Center(a) - center[a])
				floor := 0.05 * other.Width(a)
				if dx < floor {
					dx = floor
				}
				dr2 += dx * dx
			}
			dr := math.Sqrt(dr2)
			inv := 1. / dr
			sumw += inv
			for a := 0; a < d; a++ {
				sumwAxis[a] += other.Width(a) * inv
			}
		}
		flat := cellFlatIndex(g, cell)
		for a := 0; a < d; a++ {
			fields[a][flat] = sumwAxis[a] / sumw
		}
	})

	return &Widths{fields: fields, g: g}
}

func totalCells(g grid.Grid) int {
	n := 1
	for a := 0; a < g.Dim(); a++ {
		n *= g.NBins(a)
	}
	return n
}

// Point is a 2-D coordinate.
type Point struct{ X, Y float64 }

// Segment is one edge of a leaf's box boundary.
type Segment struct{ A, B Point }

// GetBoundaryLines returns the four edge segments of every leaf's box, for
// 2-D trees only. Panics if root is not 2-dimensional.
func GetBoundaryLines(root *bintree.Node) []Segment {
	if root.Dim() != 2 {
		panic(fmt.Sprintf("project.GetBoundaryLines: tree has %d dims, only 2-D is supported", root.Dim()))
	}

	var segments []Segment
	for _, leaf := range root.GetLeaves() {
		xmin, xmax := leaf.Min(0), leaf.Max(0)
		ymin, ymax := leaf.Min(1), leaf.Max(1)
		segments = append(segments,
			Segment{Point{xmin, ymin}, Point{xmin, ymax}},
			Segment{Point{xmin, ymax}, Point{xmax, ymax}},
			Segment{Point{xmax, ymax}, Point{xmax, ymin}},
			Segment{Point{xmax, ymin}, Point{xmin, ymin}},
		)
	}
	return segments
}

// Package grid defines the external uniform grid collaborator that
// bintree's ConstrainSplit optionally snaps cuts to, and that the project
// package uses to rasterize a tree's leaves into a fixed grid of cells.
package grid

import "fmt"

// Grid is a d-dimensional axis-aligned uniform grid descriptor. Each axis
// is partitioned independently into equal-width bins over [Min, Max).
// Implementations need not share bin counts or widths across axes.
type Grid interface {
	// Dim returns the grid's dimensionality.
	Dim() int
	// NBins returns the number of bins on axis.
	NBins(axis int) int
	// FindBin returns the index (0-based) of the bin on axis containing
	// value, clamped to [0, NBins(axis)-1] for out-of-range values.
	FindBin(axis int, value float64) int
	// BinLowEdge returns the lower edge of bin i on axis.
	BinLowEdge(axis int, i int) float64
	// BinUpEdge returns the upper edge of bin i on axis.
	BinUpEdge(axis int, i int) float64
}

// Uniform is a Grid with a fixed number of equal-width bins per axis,
// independently configurable range and bin count on each axis. It is the
// stand-in for the histogram-axis grid constraint the original built on
// top of its plotting library's axis objects.
type Uniform struct {
	min, max []float64
	nbins    []int
}

// NewUniform builds a Uniform grid with nbins[a] equal-width bins on axis
// a spanning [min[a], max[a]). Panics on a length mismatch or a
// non-positive bin count or width.
func NewUniform(min, max []float64, nbins []int) *Uniform {
	if len(min) != len(max) || len(min) != len(nbins) {
		panic("grid.NewUniform: min, max, nbins must have equal length")
	}
	for a := range min {
		if nbins[a] <= 0 {
			panic(fmt.Sprintf("grid.NewUniform: nbins[%d] must be positive", a))
		}
		if max[a] <= min[a] {
			panic(fmt.Sprintf("grid.NewUniform: axis %d has non-positive width", a))
		}
	}
	return &Uniform{
		min:   append([]float64(nil), min...),
		max:   append([]float64(nil), max...),
		nbins: append([]int(nil), nbins...),
	}
}

// Dim returns the grid's dimensionality.
func (g *Uniform) Dim() int { return len(g.nbins) }

// NBins returns the number of bins on axis.
func (g *Uniform) NBins(axis int) int { return g.nbins[axis] }

// BinWidth returns the (constant) width of every bin on axis.
func (g *Uniform) BinWidth(axis int) float64 {
	return (g.max[axis] - g.min[axis]) / float64(g.nbins[axis])
}

// FindBin returns the 0-based bin index on axis containing value, clamped
// to the grid's range.
func (g *Uniform) FindBin(axis int, value float64) int {
	if value <= g.min[axis] {
		return 0
	}
	if value >= g.max[axis] {
		return g.nbins[axis] - 1
	}
	w := g.BinWidth(axis)
	i := int((value - g.min[axis]) / w)
	if i >= g.nbins[axis] {
		i = g.nbins[axis] - 1
	}
	return i
}

// BinLowEdge returns the lower edge of bin i on axis.
func (g *Uniform) BinLowEdge(axis int, i int) float64 {
	return g.min[axis] + float64(i)*g.BinWidth(axis)
}

// BinUpEdge returns the upper edge of bin i on axis.
func (g *Uniform) BinUpEdge(axis int, i int) float64 {
	return g.min[axis] + float64(i+1)*g.BinWidth(axis)
}

// Min returns the grid's lower range bound on axis.
func (g *Uniform) Min(axis int) float64 { return g.min[axis] }

// Max returns the grid's upper range bound on axis.
func (g *Uniform) Max(axis int) float64 { return g.max[axis] }

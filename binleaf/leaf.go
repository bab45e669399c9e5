// Package binleaf implements BinLeaf: an immutable axis-aligned box paired
// with the entrylist.EntryList of samples it contains, plus its integer
// leaf identity.
package binleaf

import (
	"fmt"
	"log"
	"math"

	"github.com/voxelpart/bintree/entrylist"
)

// neighborTolerance is the relative tolerance used by IsNeighbor when
// deciding whether two boxes touch on an axis.
const neighborTolerance = 1e-10

// Bounds is one axis's [Min, Max] box boundary (InBin counts both ends as
// inside). Min must be strictly less than Max.
type Bounds struct {
	Min, Max float64
}

// Leaf is an immutable box in R^d carrying its own EntryList and a
// non-negative integer index assigned by the tree builder.
type Leaf struct {
	ndim    int
	bounds  []Bounds
	entries *entrylist.EntryList
	index   int
}

// New constructs a leaf over the given per-axis bounds, populated with the
// given entries/weights (only those that fall inside the box are kept;
// anything that originated outside the box is a caller bug but is silently
// dropped the way the original's addEntry does). Panics if any axis has
// zero (or negative) width.
func New(bounds []Bounds, entryValues [][]float64, weights []float64) *Leaf {
	for axis, b := range bounds {
		if b.Min >= b.Max {
			panic(fmt.Sprintf("binleaf.New: zero or negative width box on axis %d (%g, %g)", axis, b.Min, b.Max))
		}
	}
	l := &Leaf{
		ndim:    len(bounds),
		bounds:  append([]Bounds(nil), bounds...),
		entries: entrylist.New(len(bounds)),
	}
	for i, v := range entryValues {
		l.AddEntry(v, weights[i])
	}
	return l
}

// Dim returns the box's dimensionality.
func (l *Leaf) Dim() int { return l.ndim }

// Min returns the box's lower bound on axis.
func (l *Leaf) Min(axis int) float64 { return l.bounds[axis].Min }

// Max returns the box's upper bound on axis.
func (l *Leaf) Max(axis int) float64 { return l.bounds[axis].Max }

// Width returns Max(axis) - Min(axis).
func (l *Leaf) Width(axis int) float64 { return l.bounds[axis].Max - l.bounds[axis].Min }

// Center returns the midpoint of the box on axis.
func (l *Leaf) Center(axis int) float64 { return (l.bounds[axis].Max + l.bounds[axis].Min) / 2. }

// Bounds returns a copy of the leaf's per-axis bounds.
func (l *Leaf) Bounds() []Bounds {
	return append([]Bounds(nil), l.bounds...)
}

// Index returns the leaf's identity, assigned by the tree builder.
func (l *Leaf) Index() int { return l.index }

// SetIndex assigns the leaf's identity. Called once by the tree builder
// when a leaf is created.
func (l *Leaf) SetIndex(i int) { l.index = i }

// Entries returns the leaf's EntryList.
func (l *Leaf) Entries() *entrylist.EntryList { return l.entries }

// SetEntries replaces the leaf's EntryList wholesale. Used by the tree
// builder when handing a freshly split half to a new child leaf.
func (l *Leaf) SetEntries(e *entrylist.EntryList) { l.entries = e }

// SortEntries sorts the leaf's EntryList in place.
func (l *Leaf) SortEntries() { l.entries.Sort() }

// NEntries returns the number of raw entries held.
func (l *Leaf) NEntries() int { return l.entries.Size() }

// EffectiveNEntries returns the Kish effective sample size of the entries
// held.
func (l *Leaf) EffectiveNEntries() int { return l.entries.EffectiveSize() }

// SumOfWeights returns the sum of entry weights held.
func (l *Leaf) SumOfWeights() float64 { return l.entries.SumOfWeights() }

// Percentiles delegates to the underlying EntryList.
func (l *Leaf) Percentiles(qs []float64, axis int) []float64 {
	return l.entries.Percentiles(qs, axis)
}

// DensityGradient delegates to the underlying EntryList.
func (l *Leaf) DensityGradient(axis int, q float64) float64 {
	return l.entries.DensityGradient(axis, q)
}

// InBin reports whether x lies inside the box, inclusive on both sides of
// every axis. Returns false (and logs a warning) on an arity mismatch
// rather than panicking, since this is a defensive entry point for
// externally supplied query points.
func (l *Leaf) InBin(x []float64) bool {
	if len(x) != l.ndim {
		log.Printf("[WARN] binleaf.InBin: dimensionality mismatch: got %d, want %d", len(x), l.ndim)
		return false
	}
	for axis, b := range l.bounds {
		if x[axis] < b.Min || x[axis] > b.Max {
			return false
		}
	}
	return true
}

// AddEntry appends (x, w) to the leaf's EntryList if x falls inside the
// box, returning whether it did. No sort is performed; SortEntries must be
// called before any query. Non-fatal on arity mismatch or out-of-box x,
// matching the original's defensive return-false contract.
func (l *Leaf) AddEntry(x []float64, w float64) bool {
	if len(x) != l.ndim {
		log.Printf("[WARN] binleaf.AddEntry: dimensionality mismatch: got %d, want %d", len(x), l.ndim)
		return false
	}
	if !l.InBin(x) {
		return false
	}
	l.entries.Add(x, w)
	return true
}

// IsNeighbor reports whether this leaf and other share a touching face:
// some axis where one box's Max equals the other's Min within a relative
// tolerance of 1e-10, and on every other axis the two boxes' open
// intervals overlap.
func (l *Leaf) IsNeighbor(other *Leaf) bool {
	for axis := 0; axis < l.ndim; axis++ {
		touches := relClose(other.Min(axis), l.Max(axis), l.Max(axis)) ||
			relClose(other.Max(axis), l.Min(axis), l.Min(axis))
		if !touches {
			continue
		}
		overlapsElsewhere := true
		for axis2 := 0; axis2 < l.ndim; axis2++ {
			if axis2 == axis {
				continue
			}
			if !(other.Max(axis2) > l.Min(axis2) && other.Min(axis2) < l.Max(axis2)) {
				overlapsElsewhere = false
				break
			}
		}
		if overlapsElsewhere {
			return true
		}
	}
	return false
}

func relClose(a, b, scale float64) bool {
	if scale == 0 {
		return math.Abs(a-b) < neighborTolerance
	}
	return math.Abs((a-b)/scale) < neighborTolerance
}

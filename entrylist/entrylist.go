// Package entrylist implements the weighted-sample container used by every
// leaf of a bintree.Node: a d-dimensional point cloud with per-axis sorted
// views, quantile and density-gradient queries, and a split-by-cut
// operation. It carries none of the tree's box or split-policy logic; it
// only ever reasons about the entries it holds.
package entrylist

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// valuePos pairs a value on some axis with the index of the entry it came
// from, mirroring the original's std::pair<double,int>.
type valuePos struct {
	value float64
	entry int
}

// EntryList holds n weighted d-dimensional samples. The zero value is not
// usable; construct with New. Values must be appended with Add and the list
// must be sorted with Sort before any query (Percentiles, DensityGradient,
// Split, EntriesIfSplit) is valid.
type EntryList struct {
	ndim int

	weights []float64

	// sortedValues[a] holds (value, origEntry) for every entry, sorted
	// ascending by value after Sort.
	sortedValues [][]valuePos

	// sortedPositions[e][a] is the index into sortedValues[a] holding
	// entry e. The inverse permutation of sortedValues[a].second.
	sortedPositions [][]int

	sumOfWeights      float64
	sumOfWeightsError float64
	maxWeight         float64
}

// New returns an empty EntryList for d-dimensional samples.
func New(d int) *EntryList {
	if d < 1 {
		panic("entrylist.New: dimensionality must be >= 1")
	}
	return &EntryList{
		ndim:         d,
		sortedValues: make([][]valuePos, d),
	}
}

// Dim returns the dimensionality this list was constructed with.
func (l *EntryList) Dim() int { return l.ndim }

// Add appends one weighted entry. Aggregates and sorted views become stale
// until the next Sort.
func (l *EntryList) Add(values []float64, weight float64) {
	if len(values) != l.ndim {
		panic(fmt.Sprintf("entrylist.Add: expected %d values, got %d", l.ndim, len(values)))
	}
	n := len(l.weights)
	pos := make([]int, l.ndim)
	for a := 0; a < l.ndim; a++ {
		l.sortedValues[a] = append(l.sortedValues[a], valuePos{value: values[a], entry: n})
		pos[a] = n
	}
	l.sortedPositions = append(l.sortedPositions, pos)
	l.weights = append(l.weights, weight)
}

// Sort establishes the per-axis sorted views and recomputes the cached
// aggregates. It must be called before any query method and may be called
// repeatedly (e.g. after more Adds).
func (l *EntryList) Sort() {
	for a := 0; a < l.ndim; a++ {
		vals := l.sortedValues[a]
		sort.Slice(vals, func(i, j int) bool { return vals[i].value < vals[j].value })
	}
	// invert the per-axis permutation into sortedPositions
	for a := 0; a < l.ndim; a++ {
		for pos, vp := range l.sortedValues[a] {
			l.sortedPositions[vp.entry][a] = pos
		}
	}

	var sumw, sumw2, maxw float64
	for _, w := range l.weights {
		sumw += w
		sumw2 += w * w
		if w > maxw {
			maxw = w
		}
	}
	l.sumOfWeights = sumw
	l.maxWeight = maxw
	l.sumOfWeightsError = math.Sqrt(sumw2)
}

// Size returns the number of entries held.
func (l *EntryList) Size() int { return len(l.weights) }

// SumOfWeights returns Σwₑ, valid after Sort.
func (l *EntryList) SumOfWeights() float64 { return l.sumOfWeights }

// SumOfWeightsError returns √Σwₑ², valid after Sort.
func (l *EntryList) SumOfWeightsError() float64 { return l.sumOfWeightsError }

// MaxWeight returns max wₑ, valid after Sort.
func (l *EntryList) MaxWeight() float64 { return l.maxWeight }

// EffectiveSize returns Kish's effective sample size (Σw)²/Σw², floored to
// a non-negative int. When sumOfWeights is zero (undefined in the spec's
// source), it returns 0 rather than NaN/Inf so that callers comparing
// against 2*minLeafEntries correctly treat the leaf as unsplittable.
func (l *EntryList) EffectiveSize() int {
	if l.sumOfWeights == 0 {
		return 0
	}
	relErr := l.sumOfWeightsError / l.sumOfWeights
	eff := 1. / (relErr * relErr)
	if eff < 0 {
		return 0
	}
	return int(eff)
}

// Value returns the value of entry e on axis a. Valid after Sort.
func (l *EntryList) Value(axis, entry int) float64 {
	pos := l.sortedPositions[entry][axis]
	return l.sortedValues[axis][pos].value
}

// Weight returns the weight of entry e.
func (l *EntryList) Weight(entry int) float64 { return l.weights[entry] }

// Percentiles returns, for each q in qs (percent, 0-100), the value at the
// unweighted order-statistic index floor(n*q/100) on the given axis. The
// result is in ascending-q order regardless of the input order. This
// deliberately ignores entry weights for speed.
func (l *EntryList) Percentiles(qs []float64, axis int) []float64 {
	if len(qs) == 0 {
		panic("entrylist.Percentiles: empty quantile list")
	}
	qscopy := make([]float64, len(qs))
	copy(qscopy, qs)
	sort.Float64s(qscopy)

	n := len(l.sortedValues[axis])
	ps := make([]float64, len(qscopy))
	for i, q := range qscopy {
		idx := int(float64(n) * q / 100.)
		if idx >= n {
			idx = n - 1
		}
		ps[i] = l.sortedValues[axis][idx].value
	}
	return ps
}

// DensityGradient computes the spread (max-min) of inter-quantile
// densities along axis, using step q (percent, default 20 when called via
// DensityGradientDefault). Quantile boundaries are
// [min, q, 2q, ..., <100, max]. A zero-width interval divides its count by
// zero and so contributes +Inf to the density sequence, making the result
// +Inf; this includes an axis on which every entry shares one value.
// bintree's FindBestSplit ranks +Inf as the steepest gradient (ties go to
// the lowest axis index) and skips, before computing any gradient, an axis
// on which all of a leaf's entries share one value.
func (l *EntryList) DensityGradient(axis int, q float64) float64 {
	n := len(l.weights)
	if n < 2 {
		panic("entrylist.DensityGradient: need at least 2 entries")
	}

	var qs []float64
	for qm := q; qm < 100; qm += q {
		qs = append(qs, qm)
	}

	var px []float64
	px = append(px, l.sortedValues[axis][0].value)
	if len(qs) > 0 {
		px = append(px, l.Percentiles(qs, axis)...)
	}
	px = append(px, l.sortedValues[axis][n-1].value)

	minDensity := math.MaxFloat64
	maxDensity := 0.
	for i := 0; i < len(px)-1; i++ {
		p1, p2 := px[i], px[i+1]
		density := (float64(n) * q / 100.) / (p2 - p1)
		if density < minDensity {
			minDensity = density
		}
		if density > maxDensity {
			maxDensity = density
		}
	}
	return math.Abs(maxDensity - minDensity)
}

// DefaultGradientStep is the default percentile step used by
// bintree's split policy when computing DensityGradient.
const DefaultGradientStep = 20.

// DensityGradientDefault calls DensityGradient with the default 20%
// quantile step.
func (l *EntryList) DensityGradientDefault(axis int) float64 {
	return l.DensityGradient(axis, DefaultGradientStep)
}

// Split partitions the list by axis/cut: entries with value < cut on that
// axis go left, the rest go right (strict tie-break, ties go right). Both
// halves are returned freshly sorted; the source list is left untouched.
func (l *EntryList) Split(axis int, cut float64) (left, right *EntryList) {
	left = New(l.ndim)
	right = New(l.ndim)

	for _, vp := range l.sortedValues[axis] {
		e := vp.entry
		values := make([]float64, l.ndim)
		for a := 0; a < l.ndim; a++ {
			values[a] = l.sortedValues[a][l.sortedPositions[e][a]].value
		}
		w := l.weights[e]
		if vp.value < cut {
			left.Add(values, w)
		} else {
			right.Add(values, w)
		}
	}
	left.Sort()
	right.Sort()
	return left, right
}

// EntriesIfSplit returns the (left, right) entry counts that Split(axis,
// cut) would produce, without materializing either half.
func (l *EntryList) EntriesIfSplit(axis int, cut float64) (left, right int) {
	vals := l.sortedValues[axis]
	idx := sort.Search(len(vals), func(i int) bool { return vals[i].value >= cut })
	return idx, len(vals) - idx
}

// String renders a compact multi-line summary of the sorted values on each
// axis, useful for debug printing in place of the original's print().
func (l *EntryList) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "entrylist: %d dims, %d entries\n", l.ndim, l.Size())
	n := l.Size()
	if n == 0 {
		return b.String()
	}
	step := n / 10
	if step == 0 {
		step = 1
	}
	for a := 0; a < l.ndim; a++ {
		b.WriteString("[")
		for e := 0; e < n; e += step {
			fmt.Fprintf(&b, "%g...", l.sortedValues[a][e].value)
		}
		b.WriteString("]\n")
	}
	return b.String()
}

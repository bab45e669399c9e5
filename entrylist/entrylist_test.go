package entrylist

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSortInvariants(t *testing.T) {
	l := New(2)
	l.Add([]float64{0.5, 0.1}, 1)
	l.Add([]float64{0.1, 0.9}, 2)
	l.Add([]float64{0.9, 0.5}, 3)
	l.Sort()

	require.Equal(t, 3, l.Size())
	for axis := 0; axis < 2; axis++ {
		for e := 0; e < 3; e++ {
			pos := l.sortedPositions[e][axis]
			assert.Equal(t, e, l.sortedValues[axis][pos].entry)
		}
		var prev float64 = math.Inf(-1)
		for e := 0; e < 3; e++ {
			v := l.sortedValues[axis][e].value
			assert.GreaterOrEqual(t, v, prev)
			prev = v
		}
	}

	assert.Equal(t, 6., l.SumOfWeights())
	assert.Equal(t, 3., l.MaxWeight())
}

func TestEffectiveSize(t *testing.T) {
	l := New(1)
	weights := []float64{10, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	for _, w := range weights {
		l.Add([]float64{0.5}, w)
	}
	l.Sort()

	// (19)^2 / 109 ~= 3.31
	assert.Equal(t, 3, l.EffectiveSize())
}

func TestEffectiveSizeZeroWeight(t *testing.T) {
	l := New(1)
	l.Add([]float64{0.2}, 0)
	l.Add([]float64{0.8}, 0)
	l.Sort()

	assert.Equal(t, 0, l.EffectiveSize())
}

func TestPercentilesUnsortedQs(t *testing.T) {
	l := New(1)
	for i := 0; i < 10; i++ {
		l.Add([]float64{float64(i)}, 1)
	}
	l.Sort()

	ps := l.Percentiles([]float64{90, 10, 50}, 0)
	require.Len(t, ps, 3)
	assert.True(t, ps[0] <= ps[1] && ps[1] <= ps[2])
}

func TestSplitPreservesMultiset(t *testing.T) {
	l := New(2)
	pts := [][]float64{
		{0.1, 0.2}, {0.3, 0.4}, {0.5, 0.1}, {0.7, 0.9}, {0.2, 0.6},
	}
	for i, p := range pts {
		l.Add(p, float64(i+1))
	}
	l.Sort()

	left, right := l.Split(0, 0.4)
	assert.Equal(t, l.Size(), left.Size()+right.Size())

	var sumLeft, sumRight float64
	for e := 0; e < left.Size(); e++ {
		sumLeft += left.Weight(e)
	}
	for e := 0; e < right.Size(); e++ {
		sumRight += right.Weight(e)
	}
	assert.Equal(t, l.SumOfWeights(), sumLeft+sumRight)

	for e := 0; e < left.Size(); e++ {
		assert.Less(t, left.Value(0, e), 0.4)
	}
	for e := 0; e < right.Size(); e++ {
		assert.GreaterOrEqual(t, right.Value(0, e), 0.4)
	}
}

func TestEntriesIfSplitMatchesSplit(t *testing.T) {
	l := New(1)
	for i := 0; i < 20; i++ {
		l.Add([]float64{float64(i)}, 1)
	}
	l.Sort()

	nl, nr := l.EntriesIfSplit(0, 10.5)
	left, right := l.Split(0, 10.5)
	assert.Equal(t, left.Size(), nl)
	assert.Equal(t, right.Size(), nr)
}

func TestDensityGradientDegenerateIsInf(t *testing.T) {
	l := New(1)
	for i := 0; i < 10; i++ {
		l.Add([]float64{1.0}, 1) // all identical: every interval is zero-width
	}
	l.Sort()

	assert.True(t, math.IsInf(l.DensityGradientDefault(0), 1))
}

func TestDensityGradientUniformIsLow(t *testing.T) {
	l := New(1)
	for i := 0; i < 100; i++ {
		l.Add([]float64{float64(i)}, 1)
	}
	l.Sort()

	grad := l.DensityGradientDefault(0)
	assert.Less(t, grad, 0.2)
}

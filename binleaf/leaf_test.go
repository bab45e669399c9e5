package binleaf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box2D(x0, x1, y0, y1 float64) []Bounds {
	return []Bounds{{Min: x0, Max: x1}, {Min: y0, Max: y1}}
}

func TestInBinInclusiveBothSides(t *testing.T) {
	l := New(box2D(0, 1, 0, 1), nil, nil)

	assert.True(t, l.InBin([]float64{0, 0}))
	assert.True(t, l.InBin([]float64{1, 1}))
	assert.True(t, l.InBin([]float64{0.5, 0.5}))
	assert.False(t, l.InBin([]float64{1.0001, 0.5}))
	assert.False(t, l.InBin([]float64{0.5, -0.0001}))
}

func TestInBinArityMismatch(t *testing.T) {
	l := New(box2D(0, 1, 0, 1), nil, nil)
	assert.False(t, l.InBin([]float64{0.5}))
}

func TestAddEntryRejectsOutOfBox(t *testing.T) {
	l := New(box2D(0, 1, 0, 1), nil, nil)
	ok := l.AddEntry([]float64{2, 2}, 1)
	assert.False(t, ok)
	assert.Equal(t, 0, l.NEntries())
}

func TestAddEntryAccepts(t *testing.T) {
	l := New(box2D(0, 1, 0, 1), nil, nil)
	ok := l.AddEntry([]float64{0.2, 0.3}, 1)
	require.True(t, ok)
	assert.Equal(t, 1, l.NEntries())
}

func TestIsNeighborSharedFace(t *testing.T) {
	left := New(box2D(0, 1, 0, 1), nil, nil)
	right := New(box2D(1, 2, 0, 1), nil, nil)

	assert.True(t, left.IsNeighbor(right))
	assert.True(t, right.IsNeighbor(left))
}

func TestIsNeighborDiagonalNotTouching(t *testing.T) {
	a := New(box2D(0, 1, 0, 1), nil, nil)
	b := New(box2D(1, 2, 1, 2), nil, nil)

	// shares only a corner point, not a face: no axis has overlap on the
	// other axes while touching on this one
	assert.False(t, a.IsNeighbor(b))
}

func TestIsNeighborDisjoint(t *testing.T) {
	a := New(box2D(0, 1, 0, 1), nil, nil)
	b := New(box2D(5, 6, 5, 6), nil, nil)

	assert.False(t, a.IsNeighbor(b))
}

func TestWidthCenter(t *testing.T) {
	l := New(box2D(0, 2, 10, 14), nil, nil)
	assert.Equal(t, 2., l.Width(0))
	assert.Equal(t, 4., l.Width(1))
	assert.Equal(t, 1., l.Center(0))
	assert.Equal(t, 12., l.Center(1))
}

func TestNewPanicsOnDegenerateBox(t *testing.T) {
	assert.Panics(t, func() {
		New(box2D(1, 1, 0, 1), nil, nil)
	})
}

func TestEffectiveNEntriesAndSumOfWeights(t *testing.T) {
	l := New(box2D(0, 10, 0, 10), nil, nil)
	l.AddEntry([]float64{1, 1}, 10)
	for i := 0; i < 9; i++ {
		l.AddEntry([]float64{2, 2}, 1)
	}
	l.SortEntries()

	assert.Equal(t, 19., l.SumOfWeights())
	assert.Equal(t, 3, l.EffectiveNEntries())
}

func TestIndexRoundTrip(t *testing.T) {
	l := New(box2D(0, 1, 0, 1), nil, nil)
	l.SetIndex(7)
	assert.Equal(t, 7, l.Index())
}

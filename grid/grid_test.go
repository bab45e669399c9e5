package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindBinAndEdges(t *testing.T) {
	g := NewUniform([]float64{0, 0}, []float64{10, 20}, []int{10, 4})

	assert.Equal(t, 0, g.FindBin(0, 0))
	assert.Equal(t, 3, g.FindBin(0, 3.5))
	assert.Equal(t, 9, g.FindBin(0, 9.999))

	assert.Equal(t, 3., g.BinLowEdge(0, 3))
	assert.Equal(t, 4., g.BinUpEdge(0, 3))

	assert.Equal(t, 5., g.BinWidth(1))
}

func TestFindBinClampsOutOfRange(t *testing.T) {
	g := NewUniform([]float64{0}, []float64{10}, []int{5})
	assert.Equal(t, 0, g.FindBin(0, -100))
	assert.Equal(t, 4, g.FindBin(0, 1000))
}

func TestNewUniformPanicsOnBadConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewUniform([]float64{0}, []float64{10}, []int{0})
	})
	assert.Panics(t, func() {
		NewUniform([]float64{10}, []float64{0}, []int{5})
	})
}

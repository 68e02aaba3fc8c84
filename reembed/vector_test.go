package reembed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVector(t *testing.T) {
	t.Run("unit length output", func(t *testing.T) {
		v := NormalizeVector([]float32{3, 4})

		var sumSquares float64
		for _, val := range v {
			sumSquares += float64(val) * float64(val)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-6)
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
	})

	t.Run("zero vector stays zero", func(t *testing.T) {
		v := NormalizeVector([]float32{0, 0, 0})
		assert.Equal(t, []float32{0, 0, 0}, v)
	})

	t.Run("empty vector", func(t *testing.T) {
		assert.Empty(t, NormalizeVector(nil))
	})

	t.Run("input is not mutated", func(t *testing.T) {
		in := []float32{3, 4}
		NormalizeVector(in)
		assert.Equal(t, []float32{3, 4}, in)
	})
}

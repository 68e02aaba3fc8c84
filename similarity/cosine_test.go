package similarity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosine(t *testing.T) {
	t.Run("identical vectors score one", func(t *testing.T) {
		v := []float32{0.3, -0.5, 0.8}
		assert.InDelta(t, 1.0, Cosine(v, v), 1e-6)
	})

	t.Run("opposite vectors score minus one", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{-1, -2, -3}
		assert.InDelta(t, -1.0, Cosine(a, b), 1e-6)
	})

	t.Run("orthogonal vectors score zero", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{0, 1}
		assert.InDelta(t, 0.0, Cosine(a, b), 1e-6)
	})

	t.Run("zero vector scores zero", func(t *testing.T) {
		a := []float32{0, 0, 0}
		b := []float32{1, 2, 3}
		assert.Equal(t, float32(0), Cosine(a, b))
		assert.Equal(t, float32(0), Cosine(b, a))
		assert.Equal(t, float32(0), Cosine(a, a))
	})

	t.Run("magnitude independent", func(t *testing.T) {
		a := []float32{1, 2, 3}
		scaled := []float32{10, 20, 30}
		assert.InDelta(t, 1.0, Cosine(a, scaled), 1e-6)
	})

	t.Run("bounded for random vectors", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 200; i++ {
			a := randomVector(rng, 64)
			b := randomVector(rng, 64)
			sim := Cosine(a, b)
			assert.GreaterOrEqual(t, sim, float32(-1))
			assert.LessOrEqual(t, sim, float32(1))
		}
	})
}

func TestNorm(t *testing.T) {
	assert.InDelta(t, 5.0, Norm([]float32{3, 4}), 1e-6)
	assert.Equal(t, float32(0), Norm([]float32{0, 0}))
	assert.Equal(t, float32(0), Norm(nil))
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 32.0, Dot([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-6)
}

func randomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}
	return v
}

package similarity

import "math"

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm calculates the Euclidean (L2) norm of a vector.
func Norm(v []float32) float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	return float32(math.Sqrt(float64(sum)))
}

// Cosine calculates the cosine similarity between two vectors: the dot
// product divided by the product of the vectors' norms, always in [-1, 1].
// Assumes vectors are the same length (caller's responsibility).
//
// If either vector has zero norm the result is 0. Degenerate all-zero
// embeddings score as unrelated instead of dividing by zero.
func Cosine(a, b []float32) float32 {
	normA := Norm(a)
	normB := Norm(b)

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := Dot(a, b) / (normA * normB)

	// Float rounding can push the ratio a hair outside [-1, 1].
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

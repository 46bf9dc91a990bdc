package facematch

import "math"

// EuclideanDistance returns the L2 distance between two embeddings.
// Embeddings of different length are infinitely far apart.
func EuclideanDistance(a, b Embedding) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Distances returns the distance from q to every reference, in registry order.
func Distances(q Embedding, registry Registry) []float64 {
	out := make([]float64, len(registry))
	for i, ref := range registry {
		out[i] = EuclideanDistance(q, ref.Embedding)
	}
	return out
}

package embed

import "math"

func l2(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// similarity is the cosine of a and b; 0 for mismatched lengths or a zero vector.
func similarity(a, b []float32) float64 {
	na, nb := l2(a), l2(b)
	if len(a) != len(b) || na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}

package lexical

import "math"

// Vector is a sparse row of the lexical matrix. Indices are ascending
// column numbers; absent columns are zero.
type Vector struct {
	Indices []int32
	Values  []float32
}

// Len returns the number of non-zero entries.
func (v Vector) Len() int {
	return len(v.Indices)
}

// Norm returns the L2 norm.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Dense expands v to width columns.
func (v Vector) Dense(width int) []float32 {
	out := make([]float32, width)
	for k, i := range v.Indices {
		out[i] = v.Values[k]
	}
	return out
}

// Cosine returns the cosine similarity of a and b, or 0 when either has
// zero norm.
func Cosine(a, b Vector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}

	var dot float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			dot += float64(a.Values[i]) * float64(b.Values[j])
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return dot / (na * nb)
}

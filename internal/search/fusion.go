package search

import (
	"cmp"
	"math"
	"slices"
)

// degenerateRange is the spread below which a score vector is treated as
// constant.
const degenerateRange = 1e-12

// Ranked is one chunk's scores after fusion and re-ranking.
type Ranked struct {
	ChunkIndex         int
	Lexical            float64
	Semantic           float64
	LexicalNormalized  float64
	SemanticNormalized float64
	Hybrid             float64
	// CandidateRank is the 0-based position in the hybrid candidate set.
	CandidateRank int
}

// MinMaxNormalize maps scores linearly onto [0, 1]. When the spread is
// below 1e-12, or any score is NaN or infinite, every output is 0.
func MinMaxNormalize(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return out
		}
		lo = min(lo, s)
		hi = max(hi, s)
	}

	span := hi - lo
	if span < degenerateRange {
		return out
	}
	for i, s := range scores {
		out[i] = (s - lo) / span
	}
	return out
}

// Fuse blends normalized lexical and semantic scores:
// alpha*lex + (1-alpha)*sem. Both slices must have the same length.
func Fuse(lex, sem []float64, alpha float64) []float64 {
	out := make([]float64, len(lex))
	for i := range lex {
		out[i] = alpha*lex[i] + (1-alpha)*sem[i]
	}
	return out
}

// TopK returns the indices of the k highest scores in descending order.
// Equal scores keep ascending index order. NaN sorts last.
func TopK(scores []float64, k int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return compareDesc(scores[a], scores[b])
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

// Rank runs the full two-stage ranking over per-chunk raw scores: normalize
// both signals, fuse, keep the kBase best hybrid candidates, re-order them
// by raw semantic score and keep kFinal. kBase is clamped to the number of
// chunks and kFinal to kBase.
func Rank(lex, sem []float64, alpha float64, kBase, kFinal int) []Ranked {
	n := len(sem)
	if n == 0 || kBase <= 0 || kFinal <= 0 {
		return []Ranked{}
	}
	kBase = min(kBase, n)
	kFinal = min(kFinal, kBase)

	lexN := MinMaxNormalize(lex)
	semN := MinMaxNormalize(sem)
	hybrid := Fuse(lexN, semN, alpha)

	candidates := make([]Ranked, 0, kBase)
	for rank, i := range TopK(hybrid, kBase) {
		candidates = append(candidates, Ranked{
			ChunkIndex:         i,
			Lexical:            lex[i],
			Semantic:           sem[i],
			LexicalNormalized:  lexN[i],
			SemanticNormalized: semN[i],
			Hybrid:             hybrid[i],
			CandidateRank:      rank,
		})
	}

	// Equal semantic scores fall back to ascending chunk index.
	slices.SortFunc(candidates, func(a, b Ranked) int {
		if c := compareDesc(a.Semantic, b.Semantic); c != 0 {
			return c
		}
		return cmp.Compare(a.ChunkIndex, b.ChunkIndex)
	})
	return candidates[:kFinal]
}

func compareDesc(a, b float64) int {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return 1
	case math.IsNaN(b):
		return -1
	}
	return cmp.Compare(b, a)
}

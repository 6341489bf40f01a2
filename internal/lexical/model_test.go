package lexical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzer_Terms(t *testing.T) {
	a, err := NewAnalyzer("spanish", 0)
	require.NoError(t, err)

	// stop words (el, de, los) and single letters (y) are dropped, case folded
	got := a.Terms("El Reglamento de los Alumnos y la INSCRIPCIÓN")

	assert.Equal(t, []string{"reglamento", "alumnos", "inscripción"}, got)
}

func TestAnalyzer_UnknownLanguage(t *testing.T) {
	_, err := NewAnalyzer("latin", 2)
	assert.Error(t, err)
}

func TestFit_IDFAndNormalization(t *testing.T) {
	// Given: three documents where "beca" appears in one and "curso" in all
	docs := []string{
		"curso beca beca",
		"curso horario",
		"curso examen",
	}

	// When: fitting
	m, rows, err := Fit(docs, Options{Language: "spanish"})
	require.NoError(t, err)

	// Then: vocabulary is alphabetical and idf follows the smoothed formula
	assert.Equal(t, []string{"beca", "curso", "examen", "horario"}, m.State().Terms)
	idf := m.State().IDF
	assert.InDelta(t, math.Log(4.0/2.0)+1, idf[0], 1e-6)
	assert.InDelta(t, 1.0, idf[1], 1e-6)

	// And: every row is unit length
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.InDelta(t, 1.0, r.Norm(), 1e-6)
	}

	// And: raw counts are weighted (beca counted twice)
	beca := 2 * float64(idf[0])
	curso := float64(idf[1])
	norm := math.Sqrt(beca*beca + curso*curso)
	assert.Equal(t, []int32{0, 1}, rows[0].Indices)
	assert.InDelta(t, beca/norm, rows[0].Values[0], 1e-6)
	assert.InDelta(t, curso/norm, rows[0].Values[1], 1e-6)
}

func TestFit_MaxFeaturesKeepsMostFrequent(t *testing.T) {
	docs := []string{
		"alfa alfa alfa beta beta gamma",
		"alfa beta delta",
	}

	m, rows, err := Fit(docs, Options{Language: "spanish", MaxFeatures: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"alfa", "beta"}, m.State().Terms)
	assert.Equal(t, 2, m.VocabularySize())
	for _, r := range rows {
		for _, c := range r.Indices {
			assert.Less(t, c, int32(2))
		}
	}
}

func TestFit_MaxFeaturesTieBreakByTerm(t *testing.T) {
	m, _, err := Fit([]string{"zeta yota alfa"}, Options{Language: "spanish", MaxFeatures: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"alfa", "yota"}, m.State().Terms)
}

func TestFit_EmptyCorpus(t *testing.T) {
	m, rows, err := Fit(nil, Options{Language: "spanish"})

	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, m.VocabularySize())
	assert.Zero(t, m.Transform("cualquier cosa").Len())
}

func TestModel_TransformUnknownTerms(t *testing.T) {
	m, rows, err := Fit([]string{"matrícula anual", "examen final"}, Options{Language: "spanish"})
	require.NoError(t, err)

	// Unknown terms contribute nothing
	assert.Zero(t, m.Transform("astronomía").Len())

	// Known terms match their document best
	q := m.Transform("¿Cuándo vence la matrícula? astronomía")
	assert.Greater(t, Cosine(q, rows[0]), Cosine(q, rows[1]))
	assert.InDelta(t, 1.0, q.Norm(), 1e-6)
}

func TestRestore_RoundTrip(t *testing.T) {
	m, rows, err := Fit([]string{"reglamento de becas", "calendario de exámenes"}, Options{Language: "spanish"})
	require.NoError(t, err)

	restored, err := Restore(m.State())
	require.NoError(t, err)

	assert.Equal(t, m.Transform("becas del reglamento"), restored.Transform("becas del reglamento"))
	assert.InDelta(t, Cosine(m.Transform("becas"), rows[0]), Cosine(restored.Transform("becas"), rows[0]), 1e-9)
}

func TestRestore_MismatchedState(t *testing.T) {
	_, err := Restore(State{Language: "spanish", Terms: []string{"a", "b"}, IDF: []float32{1}})
	assert.Error(t, err)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b Vector
		want float64
	}{
		{"zero left", Vector{}, Vector{Indices: []int32{0}, Values: []float32{1}}, 0},
		{"zero right", Vector{Indices: []int32{0}, Values: []float32{1}}, Vector{}, 0},
		{"identical", Vector{Indices: []int32{1, 3}, Values: []float32{3, 4}}, Vector{Indices: []int32{1, 3}, Values: []float32{3, 4}}, 1},
		{"disjoint", Vector{Indices: []int32{0}, Values: []float32{1}}, Vector{Indices: []int32{2}, Values: []float32{1}}, 0},
		{"partial", Vector{Indices: []int32{0, 1}, Values: []float32{1, 1}}, Vector{Indices: []int32{1}, Values: []float32{2}}, 1 / math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-6)
		})
	}
}

func TestVector_Dense(t *testing.T) {
	v := Vector{Indices: []int32{1, 3}, Values: []float32{0.5, 0.25}}

	assert.Equal(t, []float32{0, 0.5, 0, 0.25}, v.Dense(4))
}

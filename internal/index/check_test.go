package index

import (
	"testing"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/lexical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(idx *Index)
		want   InconsistencyType
	}{
		{"dense row dropped", func(idx *Index) { idx.DenseMatrix = idx.DenseMatrix[1:] }, InconsistencyRowCount},
		{"lexical row dropped", func(idx *Index) { idx.LexicalMatrix = idx.LexicalMatrix[1:] }, InconsistencyRowCount},
		{"chunk added", func(idx *Index) { idx.Chunks = append(idx.Chunks, idx.Chunks[0]) }, InconsistencyRowCount},
		{"wrong width", func(idx *Index) { idx.DenseMatrix[0] = idx.DenseMatrix[0][:10] }, InconsistencyDimension},
		{"not unit", func(idx *Index) {
			row := append([]float32(nil), idx.DenseMatrix[1]...)
			for i := range row {
				row[i] *= 2
			}
			idx.DenseMatrix[1] = row
		}, InconsistencyNotUnit},
		{"column out of range", func(idx *Index) {
			idx.LexicalMatrix[0] = lexical.Vector{Indices: []int32{1 << 20}, Values: []float32{1}}
		}, InconsistencyColumn},
		{"columns unsorted", func(idx *Index) {
			idx.LexicalMatrix[0] = lexical.Vector{Indices: []int32{3, 1}, Values: []float32{0.6, 0.8}}
		}, InconsistencyColumn},
		{"model missing", func(idx *Index) { idx.Lexical = nil }, InconsistencyModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a valid index with one defect introduced
			idx := buildSample(t)
			require.True(t, idx.Check().OK())
			tt.mutate(idx)

			// When: checking
			result := idx.Check()

			// Then: the defect is reported and Validate fails
			require.False(t, result.OK())
			assert.Equal(t, tt.want, result.Inconsistencies[0].Type)

			err := idx.Validate()
			require.Error(t, err)
			assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeIndexInconsistent))
		})
	}
}

func TestCheck_ZeroDenseRowIsAllowed(t *testing.T) {
	idx := buildSample(t)
	idx.DenseMatrix[0] = make([]float32, idx.Dimensions)

	assert.True(t, idx.Check().OK())
}

func TestInconsistencyType_String(t *testing.T) {
	assert.Equal(t, "row_count", InconsistencyRowCount.String())
	assert.Equal(t, "not_unit", InconsistencyNotUnit.String())
	assert.Equal(t, "unknown", InconsistencyType(99).String())
}

package index

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/Aman-CERP/docqa/internal/embed"
	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wrongDimsEmbedder reports one width and returns another.
type wrongDimsEmbedder struct{ *embed.StaticEmbedder }

func (w wrongDimsEmbedder) Dimensions() int { return 7 }

// failingEmbedder fails every batch.
type failingEmbedder struct{ *embed.StaticEmbedder }

func (f failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("backend down")
}

func TestNewBuilder_RequiresDependencies(t *testing.T) {
	_, err := NewBuilder(BuilderDependencies{Embedder: embed.NewStaticEmbedder()})
	assert.Error(t, err)

	b := newTestBuilder(t, 0, nil)
	_, err = NewBuilder(BuilderDependencies{Chunker: b.chunker})
	assert.Error(t, err)
}

func TestBuilder_Build_JoinKeyInvariant(t *testing.T) {
	// Given: two documents with three pages of text
	idx := buildSample(t)

	// Then: every row set has one entry per chunk
	require.NotEmpty(t, idx.Chunks)
	assert.Len(t, idx.LexicalMatrix, len(idx.Chunks))
	assert.Len(t, idx.DenseMatrix, len(idx.Chunks))
	assert.NoError(t, idx.Validate())

	// And: every dense row is unit length
	for i, row := range idx.DenseMatrix {
		assert.InDelta(t, 1.0, l2(row), 1e-5, "row %d", i)
	}

	// And: row i describes chunk i
	for i, c := range idx.Chunks {
		want := idx.Lexical.Transform(c.Text)
		assert.Equal(t, want, idx.LexicalMatrix[i], "lexical row %d", i)
	}
}

func TestBuilder_Build_ChunkOrderAndMetadata(t *testing.T) {
	idx := buildSample(t)

	// Document order, then page order
	var seen []string
	for _, c := range idx.Chunks {
		key := c.Filename
		if len(seen) == 0 || seen[len(seen)-1] != key {
			seen = append(seen, key)
		}
	}
	assert.Equal(t, []string{"contrato.pdf", "manual.pdf"}, seen)

	first := idx.Chunks[0]
	assert.Equal(t, "Contrato de servicios", first.Title)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, "El proveedor entrega el servicio cada mes.", first.Text)

	last := idx.Chunks[len(idx.Chunks)-1]
	assert.Equal(t, "manual.pdf", last.Filename)

	pages := map[int]bool{}
	for _, c := range idx.Chunks {
		if c.Filename == "contrato.pdf" {
			pages[c.Page] = true
		}
	}
	assert.Equal(t, map[int]bool{1: true, 3: true}, pages)
}

func TestBuilder_Build_RecordsMetadata(t *testing.T) {
	idx := buildSample(t)

	assert.Equal(t, "static", idx.EmbeddingModel)
	assert.Equal(t, embed.StaticDimensions, idx.Dimensions)
	assert.Equal(t, 60, idx.MaxChars)
	assert.False(t, idx.BuiltAt.IsZero())
	assert.Positive(t, idx.Lexical.VocabularySize())

	stats := idx.Stats()
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 3, stats.Pages)
	assert.Equal(t, len(idx.Chunks), stats.Chunks)
}

func TestBuilder_Build_IsIdempotent(t *testing.T) {
	// Given: the same documents built twice
	a := buildSample(t)
	b := buildSample(t)

	// Then: chunks, vocabulary and both matrices are identical
	assert.Equal(t, a.Chunks, b.Chunks)
	assert.Equal(t, a.Lexical.State(), b.Lexical.State())
	assert.Equal(t, a.LexicalMatrix, b.LexicalMatrix)
	assert.Equal(t, a.DenseMatrix, b.DenseMatrix)
}

func TestBuilder_Build_EmptyCorpus(t *testing.T) {
	tests := []struct {
		name string
		docs []extract.Document
	}{
		{"no documents", nil},
		{"documents without pages", []extract.Document{{Filename: "vacio.pdf", Title: "vacio.pdf"}}},
		{"blank pages", []extract.Document{{Filename: "b.pdf", Pages: []extract.Page{{Number: 1, Text: "   "}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := newTestBuilder(t, 0, nil).Build(context.Background(), tt.docs)

			require.NoError(t, err)
			assert.NotNil(t, idx.Chunks)
			assert.Empty(t, idx.Chunks)
			assert.Empty(t, idx.LexicalMatrix)
			assert.Empty(t, idx.DenseMatrix)
			assert.Zero(t, idx.Len())
			assert.NoError(t, idx.Validate())
		})
	}
}

func TestBuilder_Build_ReportsProgress(t *testing.T) {
	var events []ProgressEvent
	b := newTestBuilder(t, 60, nil)
	b.progress = func(e ProgressEvent) { events = append(events, e) }

	idx, err := b.Build(context.Background(), sampleDocs())
	require.NoError(t, err)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, StageEmbedding, last.Stage)
	assert.Equal(t, idx.Len(), last.Current)
	assert.Equal(t, idx.Len(), last.Total)
}

func TestBuilder_Build_DimensionMismatch(t *testing.T) {
	b := newTestBuilder(t, 60, wrongDimsEmbedder{embed.NewStaticEmbedder()})

	_, err := b.Build(context.Background(), sampleDocs())

	require.Error(t, err)
	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeDimensionMismatch))
}

func TestBuilder_Build_EmbedderFailure(t *testing.T) {
	b := newTestBuilder(t, 60, failingEmbedder{embed.NewStaticEmbedder()})

	_, err := b.Build(context.Background(), sampleDocs())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}

func TestBuilder_Build_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestBuilder(t, 60, nil).Build(ctx, sampleDocs())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuilder_Build_DoesNotMutateEmbedderVectors(t *testing.T) {
	// Given: a cached embedder whose vectors are shared
	cached := embed.NewCachedEmbedder(embed.NewStaticEmbedder(), 100)
	b := newTestBuilder(t, 60, cached)

	idx, err := b.Build(context.Background(), sampleDocs())
	require.NoError(t, err)

	// Then: the index rows are copies
	vec, err := cached.Embed(context.Background(), idx.Chunks[0].Text)
	require.NoError(t, err)
	idx.DenseMatrix[0][0] = float32(math.Inf(1))
	assert.False(t, math.IsInf(float64(vec[0]), 1))
}

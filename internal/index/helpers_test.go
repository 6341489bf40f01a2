package index

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/Aman-CERP/docqa/internal/chunk"
	"github.com/Aman-CERP/docqa/internal/embed"
	"github.com/Aman-CERP/docqa/internal/extract"
	"github.com/Aman-CERP/docqa/internal/lexical"
	"github.com/Aman-CERP/docqa/internal/segment"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBuilder(t *testing.T, maxChars int, embedder embed.Embedder) *Builder {
	t.Helper()
	seg, err := segment.New(segment.Spanish)
	require.NoError(t, err)
	if embedder == nil {
		embedder = embed.NewStaticEmbedder()
	}

	b, err := NewBuilder(BuilderDependencies{
		Chunker:   chunk.NewSentenceChunker(seg, chunk.SentenceChunkerOptions{MaxChars: maxChars}),
		Embedder:  embedder,
		Lexical:   lexical.Options{Language: "spanish"},
		BatchSize: 2,
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	return b
}

func sampleDocs() []extract.Document {
	return []extract.Document{
		{
			Filename: "contrato.pdf",
			Title:    "Contrato de servicios",
			Pages: []extract.Page{
				{Number: 1, Text: "El proveedor entrega el servicio cada mes. El cliente paga la factura en treinta días."},
				{Number: 3, Text: "El contrato vence en diciembre. Puede renovarse por un año más."},
			},
		},
		{
			Filename: "manual.pdf",
			Title:    "Manual de usuario",
			Pages: []extract.Page{
				{Number: 1, Text: "Encienda el equipo con el botón rojo. Espere a que la luz verde se encienda."},
			},
		},
	}
}

func buildSample(t *testing.T) *Index {
	t.Helper()
	idx, err := newTestBuilder(t, 60, nil).Build(context.Background(), sampleDocs())
	require.NoError(t, err)
	return idx
}

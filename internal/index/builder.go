package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/docqa/internal/chunk"
	"github.com/Aman-CERP/docqa/internal/embed"
	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/extract"
	"github.com/Aman-CERP/docqa/internal/lexical"
)

// Stage names a build phase for progress reporting.
type Stage string

const (
	StageChunking  Stage = "chunking"
	StageLexical   Stage = "lexical"
	StageEmbedding Stage = "embedding"
)

// ProgressEvent reports build progress.
type ProgressEvent struct {
	Stage   Stage
	Current int
	Total   int
}

// BuilderDependencies contains the injected dependencies for Builder.
type BuilderDependencies struct {
	// Chunker splits document pages (required).
	Chunker *chunk.SentenceChunker

	// Embedder produces the dense rows (required).
	Embedder embed.Embedder

	// Lexical configures the TF-IDF fit.
	Lexical lexical.Options

	// BatchSize is the number of chunks per embedding call (default 32).
	BatchSize int

	// Progress is called as each stage advances. Optional.
	Progress func(ProgressEvent)

	Logger *slog.Logger
}

// Builder turns extracted documents into an Index.
type Builder struct {
	chunker   *chunk.SentenceChunker
	embedder  embed.Embedder
	lexOpts   lexical.Options
	batchSize int
	progress  func(ProgressEvent)
	logger    *slog.Logger
}

// NewBuilder creates a Builder with injected dependencies.
func NewBuilder(deps BuilderDependencies) (*Builder, error) {
	if deps.Chunker == nil {
		return nil, fmt.Errorf("chunker is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = embed.DefaultBatchSize
	}
	if deps.Progress == nil {
		deps.Progress = func(ProgressEvent) {}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Builder{
		chunker:   deps.Chunker,
		embedder:  deps.Embedder,
		lexOpts:   deps.Lexical,
		batchSize: deps.BatchSize,
		progress:  deps.Progress,
		logger:    deps.Logger,
	}, nil
}

// Build chunks every document, fits the lexical model over the whole
// corpus, and embeds every chunk. Chunk order is document order, then page
// order, then position within the page. No documents yields an empty index.
func (b *Builder) Build(ctx context.Context, docs []extract.Document) (*Index, error) {
	start := time.Now()

	// Stage 1: chunk
	var chunks []chunk.Chunk
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunks = append(chunks, b.chunker.ChunkDocument(doc)...)
		b.progress(ProgressEvent{Stage: StageChunking, Current: i + 1, Total: len(docs)})
	}
	chunkTime := time.Since(start)

	// Stage 2: lexical fit
	lexStart := time.Now()
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	model, lexRows, err := lexical.Fit(texts, b.lexOpts)
	if err != nil {
		return nil, err
	}
	b.progress(ProgressEvent{Stage: StageLexical, Current: len(chunks), Total: len(chunks)})
	lexTime := time.Since(lexStart)

	// Stage 3: embed
	embedStart := time.Now()
	dense, err := b.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	embedTime := time.Since(embedStart)

	if chunks == nil {
		chunks = []chunk.Chunk{}
	}
	idx := &Index{
		Chunks:         chunks,
		Lexical:        model,
		LexicalMatrix:  lexRows,
		DenseMatrix:    dense,
		EmbeddingModel: b.embedder.ModelName(),
		Dimensions:     b.embedder.Dimensions(),
		MaxChars:       b.chunker.MaxChars(),
		BuiltAt:        time.Now().UTC(),
	}
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	b.logger.Info("index_build_complete",
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)),
		slog.Int("vocabulary", model.VocabularySize()),
		slog.String("embedder_model", idx.EmbeddingModel),
		slog.Int("embedder_dimensions", idx.Dimensions),
		slog.Int64("duration_chunk_ms", chunkTime.Milliseconds()),
		slog.Int64("duration_lexical_ms", lexTime.Milliseconds()),
		slog.Int64("duration_embed_ms", embedTime.Milliseconds()),
		slog.Int64("duration_total_ms", time.Since(start).Milliseconds()))

	return idx, nil
}

// embedAll embeds texts in batches and returns one unit-length row per text.
// Rows are copied before normalizing since cached embedders share them.
func (b *Builder) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	dims := b.embedder.Dimensions()
	rows := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += b.batchSize {
		if err := ctx.Err(); err != nil {
			b.logger.Info("index_build_interrupted",
				slog.Int("embedded", start),
				slog.Int("total", len(texts)))
			return nil, err
		}

		end := min(start+b.batchSize, len(texts))
		vecs, err := b.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, docqaerrors.Newf(docqaerrors.ErrCodeEmbeddingFailed,
				"embedder returned %d vectors for %d chunks", len(vecs), end-start)
		}

		for _, v := range vecs {
			if len(v) != dims {
				return nil, docqaerrors.Newf(docqaerrors.ErrCodeDimensionMismatch,
					"embedder returned %d dimensions, expected %d", len(v), dims)
			}
			rows = append(rows, embed.Normalize(append([]float32(nil), v...)))
		}

		b.progress(ProgressEvent{Stage: StageEmbedding, Current: end, Total: len(texts)})
	}

	return rows, nil
}

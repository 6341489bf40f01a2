package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/docqa/internal/embed"
	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/index"
	"github.com/Aman-CERP/docqa/internal/lexical"
)

// Engine answers hybrid queries against an Index. The index is passed per
// call, so one Engine serves every index generation. Engine is safe for
// concurrent use.
type Engine struct {
	embedder embed.Embedder
	defaults Options
	logger   *slog.Logger
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithDefaultOptions sets the parameters used for fields a query leaves unset.
func WithDefaultOptions(opts Options) EngineOption {
	return func(e *Engine) {
		e.defaults = opts.WithDefaults(DefaultOptions())
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine that embeds queries with embedder.
func NewEngine(embedder embed.Embedder, opts ...EngineOption) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder: %w", ErrNilDependency)
	}
	e := &Engine{
		embedder: embedder,
		defaults: DefaultOptions(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.defaults.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Defaults returns the engine's effective default options.
func (e *Engine) Defaults() Options {
	return e.defaults
}

// Query ranks the chunks of idx against text. An empty index or a blank
// query yields an empty, non-nil result without calling the embedder.
func (e *Engine) Query(ctx context.Context, idx *index.Index, text string, opts Options) ([]Result, error) {
	start := time.Now()

	opts = opts.WithDefaults(e.defaults)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" || idx.Len() == 0 {
		return []Result{}, nil
	}

	if idx.Dimensions != e.embedder.Dimensions() {
		return nil, docqaerrors.Newf(docqaerrors.ErrCodeDimensionMismatch,
			"index has %d dimensions but embedder %q produces %d",
			idx.Dimensions, e.embedder.ModelName(), e.embedder.Dimensions()).
			WithSuggestion("Rebuild the index with 'docqa index'")
	}
	if idx.EmbeddingModel != e.embedder.ModelName() {
		e.logger.Warn("embedder_model_mismatch",
			slog.String("index_model", idx.EmbeddingModel),
			slog.String("embedder_model", e.embedder.ModelName()))
	}

	// The two signals are independent; embedding may be a network call.
	var lex, sem []float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lex = lexicalScores(idx, text)
		return nil
	})
	g.Go(func() error {
		var err error
		sem, err = e.semanticScores(gctx, idx, text)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := Rank(lex, sem, opts.AlphaValue(), opts.KBase, opts.KFinal)

	results := make([]Result, len(ranked))
	for i, r := range ranked {
		c := idx.Chunks[r.ChunkIndex]
		results[i] = Result{
			Text:          c.Text,
			Filename:      c.Filename,
			Title:         c.Title,
			Page:          c.Page,
			HybridScore:   r.Hybrid,
			SemanticScore: r.Semantic,
			ChunkIndex:    r.ChunkIndex,
		}
		if opts.Explain {
			results[i].Explain = &Explain{
				LexicalScore:       r.Lexical,
				LexicalNormalized:  r.LexicalNormalized,
				SemanticNormalized: r.SemanticNormalized,
				CandidateRank:      r.CandidateRank,
				Candidates:         min(opts.KBase, idx.Len()),
				Alpha:              opts.AlphaValue(),
			}
		}
	}

	e.logger.Debug("query_complete",
		slog.Int("chunks", idx.Len()),
		slog.Int("k_base", opts.KBase),
		slog.Int("k_final", opts.KFinal),
		slog.Float64("alpha", opts.AlphaValue()),
		slog.Int("results", len(results)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return results, nil
}

// lexicalScores returns the TF-IDF cosine of the query against every row.
func lexicalScores(idx *index.Index, text string) []float64 {
	q := idx.Lexical.Transform(text)
	scores := make([]float64, len(idx.LexicalMatrix))
	if q.Len() == 0 {
		return scores
	}
	for i, row := range idx.LexicalMatrix {
		scores[i] = lexical.Cosine(q, row)
	}
	return scores
}

// semanticScores returns the dot product of the unit query embedding with
// every dense row. Rows are unit length, so this is cosine similarity.
func (e *Engine) semanticScores(ctx context.Context, idx *index.Index, text string) ([]float64, error) {
	vec, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vec) != idx.Dimensions {
		return nil, docqaerrors.Newf(docqaerrors.ErrCodeDimensionMismatch,
			"query embedding has %d dimensions, expected %d", len(vec), idx.Dimensions)
	}
	q := embed.Normalize(append([]float32(nil), vec...))

	scores := make([]float64, len(idx.DenseMatrix))
	for i, row := range idx.DenseMatrix {
		scores[i] = embed.Dot(q, row)
	}
	return scores, nil
}

// Package service holds the process-wide state of docqa: the current index,
// the query engine, and the reindex trigger. Every entry point (CLI, HTTP,
// MCP, watcher) goes through one Service instead of package globals.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aman-CERP/docqa/internal/chunk"
	"github.com/Aman-CERP/docqa/internal/config"
	"github.com/Aman-CERP/docqa/internal/embed"
	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/extract"
	"github.com/Aman-CERP/docqa/internal/history"
	"github.com/Aman-CERP/docqa/internal/index"
	"github.com/Aman-CERP/docqa/internal/lexical"
	"github.com/Aman-CERP/docqa/internal/search"
	"github.com/Aman-CERP/docqa/internal/segment"
	"github.com/Aman-CERP/docqa/internal/telemetry"
)

// DefaultLockTimeout bounds how long a rebuild waits for the cross-process
// index lock.
const DefaultLockTimeout = 10 * time.Second

// Dependencies contains the injected dependencies for Service.
type Dependencies struct {
	// Embedder embeds chunks and queries (required). The Service closes it.
	Embedder embed.Embedder

	// Extractor reads PDFs. Defaults to extract.NewPDFExtractor.
	Extractor extract.Extractor

	// Store persists the index. Defaults to a store at cfg.Paths.IndexPath().
	Store *index.Store

	// History records builds. Optional; the Service closes it.
	History *history.Store

	// LockTimeout bounds the wait for the cross-process lock.
	LockTimeout time.Duration

	// SkipLoad starts from an empty index without reading the stored one.
	// Used by commands that rebuild straight away.
	SkipLoad bool

	// Progress receives build progress events. Optional.
	Progress func(index.ProgressEvent)

	Logger *slog.Logger
}

// Service is the process context. It is safe for concurrent use.
type Service struct {
	docsDir     string
	embedder    embed.Embedder
	extractor   extract.Extractor
	builder     *index.Builder
	engine      *search.Engine
	store       *index.Store
	history     *history.Store
	metrics     *telemetry.QueryMetrics
	lockTimeout time.Duration
	logger      *slog.Logger

	current atomic.Pointer[index.Index]

	// reqMu guards running and next. next is the rebuild that new requests
	// join; it has not started yet.
	reqMu   sync.Mutex
	running bool
	next    *rebuild
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// rebuild is one build shared by every request that joined it.
type rebuild struct {
	done    chan struct{}
	trigger string
	waiters int
	count   int
	err     error
}

// New creates the Service. It loads the persisted index once; a missing
// index file starts the service with an empty index.
func New(cfg *config.Config, deps Dependencies) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Extractor == nil {
		deps.Extractor = extract.NewPDFExtractor(deps.Logger)
	}
	if deps.Store == nil {
		deps.Store = index.NewStore(cfg.Paths.IndexPath(), deps.Logger)
	}
	if deps.LockTimeout <= 0 {
		deps.LockTimeout = DefaultLockTimeout
	}

	seg, err := segment.New(cfg.Chunking.Language)
	if err != nil {
		return nil, err
	}
	builder, err := index.NewBuilder(index.BuilderDependencies{
		Chunker:  chunk.NewSentenceChunker(seg, chunk.SentenceChunkerOptions{MaxChars: cfg.Chunking.MaxChars}),
		Embedder: deps.Embedder,
		Lexical: lexical.Options{
			Language:       cfg.Chunking.Language,
			MaxFeatures:    cfg.Lexical.MaxFeatures,
			MinTokenLength: cfg.Lexical.MinTokenLength,
		},
		BatchSize: cfg.Embeddings.BatchSize,
		Progress:  deps.Progress,
		Logger:    deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	engine, err := search.NewEngine(deps.Embedder,
		search.WithDefaultOptions(search.Options{
			KBase:  cfg.Query.KBase,
			KFinal: cfg.Query.KFinal,
			Alpha:  cfg.Query.Alpha,
		}),
		search.WithLogger(deps.Logger))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		docsDir:     cfg.Paths.DocsDir,
		embedder:    deps.Embedder,
		extractor:   deps.Extractor,
		builder:     builder,
		engine:      engine,
		store:       deps.Store,
		history:     deps.History,
		metrics:     telemetry.New(telemetry.DefaultConfig()),
		lockTimeout: deps.LockTimeout,
		logger:      deps.Logger,
		ctx:         ctx,
		cancel:      cancel,
	}

	idx, err := s.loadInitial(cfg, deps.SkipLoad)
	if err != nil {
		cancel()
		return nil, err
	}
	s.current.Store(idx)
	return s, nil
}

func (s *Service) loadInitial(cfg *config.Config, skip bool) (*index.Index, error) {
	empty := func() (*index.Index, error) {
		return index.Empty(cfg.Chunking.Language, s.embedder.ModelName(), s.embedder.Dimensions())
	}
	if skip {
		return empty()
	}

	idx, err := s.store.Load()
	if docqaerrors.HasCode(err, docqaerrors.ErrCodeIndexNotFound) {
		s.logger.Info("index_missing_starting_empty", slog.String("path", s.store.Path()))
		return empty()
	}
	if err != nil {
		return nil, err
	}

	if idx.Dimensions != s.embedder.Dimensions() || idx.EmbeddingModel != s.embedder.ModelName() {
		s.logger.Warn("index_embedder_mismatch",
			slog.String("index_model", idx.EmbeddingModel),
			slog.Int("index_dimensions", idx.Dimensions),
			slog.String("embedder_model", s.embedder.ModelName()),
			slog.Int("embedder_dimensions", s.embedder.Dimensions()),
			slog.String("suggestion", "run 'docqa index' to rebuild"))
	}
	return idx, nil
}

// Current returns the published index. The returned index is immutable.
func (s *Service) Current() *index.Index {
	return s.current.Load()
}

// Swap publishes idx. Readers see either the previous index or idx.
func (s *Service) Swap(idx *index.Index) error {
	if idx == nil {
		return docqaerrors.New(docqaerrors.ErrCodeInvalidInput, "cannot publish a nil index", nil)
	}
	s.current.Store(idx)
	return nil
}

// Query answers text against the current index. The index is read once, so
// a concurrent swap never mixes generations within one query.
func (s *Service) Query(ctx context.Context, text string, opts search.Options) ([]search.Result, error) {
	start := time.Now()
	results, err := s.engine.Query(ctx, s.Current(), text, opts)
	s.metrics.Record(telemetry.QueryEvent{
		Query:       text,
		ResultCount: len(results),
		Latency:     time.Since(start),
		Failed:      err != nil,
	})
	return results, err
}

// QueryStats returns the query statistics gathered since the Service started.
func (s *Service) QueryStats() telemetry.Snapshot {
	return s.metrics.Snapshot()
}

// QueryDefaults returns the effective default query parameters.
func (s *Service) QueryDefaults() search.Options {
	return s.engine.Defaults()
}

// DocsDir returns the directory the corpus is read from.
func (s *Service) DocsDir() string {
	return s.docsDir
}

// Embedder returns the shared embedder.
func (s *Service) Embedder() embed.Embedder {
	return s.embedder
}

// History returns up to limit recent builds, newest first. Without a
// history store it returns an empty list.
func (s *Service) History(ctx context.Context, limit int) ([]history.Build, error) {
	if s.history == nil {
		return []history.Build{}, nil
	}
	return s.history.Recent(ctx, limit)
}

// Close cancels any running rebuild, waits for it, and releases the
// embedder and history store. It is idempotent.
func (s *Service) Close() error {
	s.reqMu.Lock()
	if s.closed {
		s.reqMu.Unlock()
		return nil
	}
	s.closed = true
	s.reqMu.Unlock()

	s.cancel()
	s.wg.Wait()

	var errs []error
	if err := s.embedder.Close(); err != nil {
		errs = append(errs, err)
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close service: %v", errs)
	}
	return nil
}

package service

import (
	"context"
	"log/slog"
	"time"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/history"
	"github.com/Aman-CERP/docqa/internal/index"
)

// Triggers name what asked for a rebuild. They are recorded in history.
const (
	TriggerManual = "manual"
	TriggerCLI    = "cli"
	TriggerHTTP   = "http"
	TriggerAdmin  = "admin"
	TriggerWatch  = "watch"
	TriggerMCP    = "mcp"
)

type triggerKey struct{}

// WithTrigger tags ctx with the source of a reindex request.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

// TriggerFrom returns the trigger ctx was tagged with, or TriggerManual.
func TriggerFrom(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok && t != "" {
		return t
	}
	return TriggerManual
}

// Reindex rebuilds the index from the docs directory, persists it, and
// publishes it. It returns the number of chunks in the new index.
//
// At most one rebuild runs at a time. A request that arrives while a
// rebuild is running joins the next one, which starts as soon as the
// running one finishes; every request joined to a rebuild gets its result.
// Each request is therefore answered by a rebuild that started after it
// arrived.
//
// The rebuild itself runs on the service's lifetime and is not cancelled
// when ctx is; ctx only bounds how long this caller waits.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	s.reqMu.Lock()
	if s.closed {
		s.reqMu.Unlock()
		return 0, docqaerrors.New(docqaerrors.ErrCodeInternal, "service is closed", nil)
	}
	if s.next == nil {
		s.next = &rebuild{done: make(chan struct{}), trigger: TriggerFrom(ctx)}
	}
	r := s.next
	r.waiters++
	if !s.running {
		s.running = true
		s.wg.Add(1)
		go s.runRebuilds()
	}
	s.reqMu.Unlock()

	select {
	case <-r.done:
		return r.count, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// runRebuilds drains pending rebuilds one at a time.
func (s *Service) runRebuilds() {
	defer s.wg.Done()
	for {
		s.reqMu.Lock()
		r := s.next
		s.next = nil
		if r == nil {
			s.running = false
			s.reqMu.Unlock()
			return
		}
		waiters := r.waiters
		s.reqMu.Unlock()

		r.count, r.err = s.rebuild(s.ctx, r.trigger, waiters)
		close(r.done)
	}
}

func (s *Service) rebuild(ctx context.Context, trigger string, waiters int) (count int, err error) {
	start := time.Now()
	rec := history.Build{
		Trigger:        trigger,
		StartedAt:      start,
		EmbeddingModel: s.embedder.ModelName(),
		Waiters:        waiters,
	}
	defer func() {
		rec.Duration = time.Since(start)
		rec.Chunks = count
		if err != nil {
			rec.Status = history.StatusFailed
			rec.Error = err.Error()
			s.logger.Error("reindex_failed",
				slog.String("trigger", trigger),
				slog.Int("waiters", waiters),
				slog.String("error", err.Error()))
		}
		s.record(rec)
	}()

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	unlock, err := s.store.Lock(lockCtx)
	cancel()
	if err != nil {
		return 0, err
	}
	defer unlock()

	docs, err := index.LoadCorpus(ctx, s.docsDir, s.extractor, s.logger)
	if err != nil {
		return 0, indexFailed("failed to read documents", err)
	}
	rec.Documents = len(docs)

	idx, err := s.builder.Build(ctx, docs)
	if err != nil {
		return 0, indexFailed("failed to build index", err)
	}

	if err := s.store.Save(idx); err != nil {
		return 0, err
	}
	s.current.Store(idx)

	s.logger.Info("reindex_complete",
		slog.String("trigger", trigger),
		slog.Int("waiters", waiters),
		slog.Int("documents", len(docs)),
		slog.Int("chunks", idx.Len()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return idx.Len(), nil
}

func (s *Service) record(b history.Build) {
	if s.history == nil {
		return
	}
	// The lifetime context may already be cancelled; history still gets the entry.
	if _, err := s.history.Record(context.WithoutCancel(s.ctx), b); err != nil {
		s.logger.Warn("history_record_failed", slog.String("error", err.Error()))
	}
}

// indexFailed keeps structured causes as they are so callers can still map
// them, and wraps anything else as ERR_505_INDEX_FAILED.
func indexFailed(msg string, err error) error {
	if _, ok := docqaerrors.As(err); ok {
		return err
	}
	return docqaerrors.New(docqaerrors.ErrCodeIndexFailed, msg, err)
}

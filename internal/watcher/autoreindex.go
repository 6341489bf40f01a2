package watcher

import (
	"context"
	"log/slog"
	"time"
)

// Reindexer rebuilds the index.
type Reindexer interface {
	Reindex(ctx context.Context) (int, error)
}

// AutoReindex triggers one rebuild per debounced batch of changes.
type AutoReindex struct {
	watcher   Watcher
	reindexer Reindexer
	logger    *slog.Logger

	// OnReindex, if set, is called after each triggered rebuild.
	OnReindex func(batch []FileEvent, chunks int, err error)
}

// NewAutoReindex connects w to r.
func NewAutoReindex(w Watcher, r Reindexer, logger *slog.Logger) *AutoReindex {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoReindex{watcher: w, reindexer: r, logger: logger}
}

// Run consumes batches until the watcher stops or ctx is cancelled.
// Rebuild failures are logged and do not stop the loop.
func (a *AutoReindex) Run(ctx context.Context) {
	events := a.watcher.Events()
	errs := a.watcher.Errors()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.logger.Warn("watcher_error", slog.String("error", err.Error()))
		case batch, ok := <-events:
			if !ok {
				return
			}
			a.handle(ctx, batch)
		}
	}
}

func (a *AutoReindex) handle(ctx context.Context, batch []FileEvent) {
	start := time.Now()
	names := make([]string, len(batch))
	for i, e := range batch {
		names[i] = e.Operation.String() + ":" + e.Name
	}
	a.logger.Info("watch_reindex_triggered",
		slog.Int("changes", len(batch)),
		slog.Any("files", names))

	n, err := a.reindexer.Reindex(ctx)
	if err != nil {
		a.logger.Error("watch_reindex_failed", slog.String("error", err.Error()))
	} else {
		a.logger.Info("watch_reindex_complete",
			slog.Int("chunks", n),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	}
	if a.OnReindex != nil {
		a.OnReindex(batch, n, err)
	}
}

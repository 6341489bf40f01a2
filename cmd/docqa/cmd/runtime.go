package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/docqa/internal/config"
	"github.com/Aman-CERP/docqa/internal/embed"
	"github.com/Aman-CERP/docqa/internal/history"
	"github.com/Aman-CERP/docqa/internal/index"
	"github.com/Aman-CERP/docqa/internal/service"
)

// serviceOptions tunes openService for one command.
type serviceOptions struct {
	// skipLoad starts from an empty index, for commands that rebuild at once.
	skipLoad bool
	progress func(index.ProgressEvent)
}

// openService builds the embedder, the build history and the Service for
// cfg. Closing the Service closes the other two.
func openService(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts serviceOptions) (*service.Service, error) {
	embedder, err := embed.NewFromConfig(ctx, cfg.Embeddings, logger)
	if err != nil {
		return nil, err
	}

	hist, err := history.Open(cfg.Paths.HistoryPath())
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to open build history: %w", err)
	}

	svc, err := service.New(cfg, service.Dependencies{
		Embedder: embedder,
		History:  hist,
		SkipLoad: opts.skipLoad,
		Progress: opts.progress,
		Logger:   logger,
	})
	if err != nil {
		_ = hist.Close()
		_ = embedder.Close()
		return nil, err
	}

	slog.Debug("service_ready",
		slog.String("docs_dir", cfg.Paths.DocsDir),
		slog.String("index", cfg.Paths.IndexPath()),
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()))
	return svc, nil
}

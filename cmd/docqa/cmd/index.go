package cmd

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docqa/internal/config"
	"github.com/Aman-CERP/docqa/internal/history"
	"github.com/Aman-CERP/docqa/internal/index"
	"github.com/Aman-CERP/docqa/internal/output"
	"github.com/Aman-CERP/docqa/internal/service"
	"github.com/Aman-CERP/docqa/internal/ui"
)

// recentBuilds is how many history entries `index info` shows.
const recentBuilds = 5

func newIndexCmd() *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the index from the documents folder",
		Long: `Rebuild the index from every PDF in the documents folder.

The previous index stays in place until the new one is written, so a
running server keeps answering during the rebuild. A file lock keeps two
rebuilds from writing the index at the same time.`,
		Example: `  docqa index
  docqa index --no-progress
  docqa index info`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, noProgress)
		},
	}

	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Do not print build progress")
	cmd.AddCommand(newIndexInfoCmd())

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, noProgress bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, cleanup := commandLogger(cfg, false)
	defer cleanup()

	out := output.New(cmd.OutOrStdout())
	out.Statusf("📚", "Indexing %s", cfg.Paths.DocsDir)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var renderer ui.Renderer
	var progress func(index.ProgressEvent)
	if !noProgress {
		renderer = ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
			ui.WithNoColor(!out.ColorEnabled()),
			ui.WithDocsDir(cfg.Paths.DocsDir),
			ui.WithInterrupt(cancel)))
		progress = renderer.UpdateProgress
	}

	svc, err := openService(ctx, cfg, logger, serviceOptions{skipLoad: true, progress: progress})
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if renderer != nil {
		if err := renderer.Start(ctx); err != nil {
			return err
		}
	}
	start := time.Now()
	n, err := svc.Reindex(service.WithTrigger(ctx, service.TriggerCLI))
	if renderer != nil {
		completion := ui.CompletionStats{Chunks: n, Duration: time.Since(start), Err: err,
			Model: svc.Embedder().ModelName()}
		if err == nil {
			completion.Documents = svc.Current().Stats().Documents
		}
		renderer.Complete(completion)
		_ = renderer.Stop()
	}
	if err != nil {
		logger.Error("index_failed", slog.String("error", err.Error()))
		return err
	}

	stats := svc.Current().Stats()
	logger.Info("index_complete",
		slog.Int("chunks", n),
		slog.Int("documents", stats.Documents),
		slog.Duration("duration", time.Since(start)))

	if n == 0 {
		out.Warningf("No text found in %s; the index is empty", cfg.Paths.DocsDir)
		return nil
	}
	out.Successf("Indexed %d chunks from %d documents in %s",
		n, stats.Documents, time.Since(start).Round(time.Millisecond))
	return nil
}

func newIndexInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show index statistics and recent builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndexInfo(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

// indexInfo is the JSON form of `index info`.
type indexInfo struct {
	Path      string          `json:"path"`
	SizeBytes int64           `json:"size_bytes"`
	Stats     index.Stats     `json:"stats"`
	Builds    []history.Build `json:"recent_builds"`
}

func runIndexInfo(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, cleanup := commandLogger(cfg, false)
	defer cleanup()

	store := index.NewStore(cfg.Paths.IndexPath(), logger)
	idx, err := store.Load()
	if err != nil {
		return err
	}

	var size int64
	if fi, err := os.Stat(store.Path()); err == nil {
		size = fi.Size()
	}

	builds, err := recentHistory(ctx, cfg)
	if err != nil {
		logger.Warn("history_unavailable", slog.String("error", err.Error()))
	}

	out := output.New(cmd.OutOrStdout())
	if jsonOutput {
		return out.JSON(indexInfo{Path: store.Path(), SizeBytes: size, Stats: idx.Stats(), Builds: builds})
	}
	out.IndexInfo(store.Path(), size, idx.Stats(), builds)
	return nil
}

func recentHistory(ctx context.Context, cfg *config.Config) ([]history.Build, error) {
	if _, err := os.Stat(cfg.Paths.HistoryPath()); err != nil {
		return nil, nil
	}
	hist, err := history.Open(cfg.Paths.HistoryPath())
	if err != nil {
		return nil, err
	}
	defer func() { _ = hist.Close() }()
	return hist.Recent(ctx, recentBuilds)
}

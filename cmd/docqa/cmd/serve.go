package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docqa/internal/config"
	"github.com/Aman-CERP/docqa/internal/docs"
	"github.com/Aman-CERP/docqa/internal/logging"
	"github.com/Aman-CERP/docqa/internal/mcp"
	"github.com/Aman-CERP/docqa/internal/output"
	"github.com/Aman-CERP/docqa/internal/server"
	"github.com/Aman-CERP/docqa/internal/service"
	"github.com/Aman-CERP/docqa/internal/watcher"
)

// serveOptions holds CLI flags for serve.
type serveOptions struct {
	addr    string
	watch   bool
	mcp     bool
	reindex bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, or the MCP server over stdio",
		Long: `Serve the index.

By default an HTTP server answers questions on POST /ask and manages
documents under /admin. With --mcp the same operations are exposed as
MCP tools over stdin/stdout instead, for AI assistants.

With --watch (or watch.enabled in the config) the documents folder is
watched and the index rebuilt when PDFs change.`,
		Example: `  docqa serve
  docqa serve --addr :9000 --watch
  docqa serve --mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from config, 127.0.0.1:8000)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Rebuild the index when documents change")
	cmd.Flags().BoolVar(&opts.mcp, "mcp", false, "Serve MCP over stdio instead of HTTP")
	cmd.Flags().BoolVar(&opts.reindex, "reindex", false, "Rebuild the index before serving")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, opts serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}

	// MCP owns stdout, so nothing but the protocol may be written there.
	logger, cleanup, err := serveLogger(cfg, opts.mcp)
	if err != nil {
		return err
	}
	defer cleanup()

	svc, err := openService(ctx, cfg, logger, serviceOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if opts.reindex {
		n, err := svc.Reindex(service.WithTrigger(ctx, service.TriggerManual))
		if err != nil {
			return err
		}
		logger.Info("startup_reindex_complete", slog.Int("chunks", n))
	}

	manager, err := docs.NewManager(cfg.Paths.DocsDir, svc,
		docs.WithMaxBytes(int64(cfg.Server.MaxUploadMB)<<20),
		docs.WithLogger(logger))
	if err != nil {
		return err
	}

	if opts.watch || cfg.Watch.Enabled {
		stop, err := startWatcher(ctx, cfg, svc, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	if opts.mcp {
		srv, err := mcp.NewServer(svc, manager, logger)
		if err != nil {
			return err
		}
		logger.Info("mcp_server_starting", slog.Int("chunks", svc.Current().Len()))
		return srv.Serve(ctx)
	}

	srv, err := server.New(server.Dependencies{
		Backend:        svc,
		Docs:           manager,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		ReadTimeout:    config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout:   config.Duration(cfg.Server.WriteTimeout),
		RateLimit:      cfg.Server.RateLimit,
		Burst:          cfg.Server.Burst,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	out.Statusf("🚀", "Serving %d chunks on http://%s", svc.Current().Len(), cfg.Server.Addr)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

// serveLogger logs to stderr as well for HTTP, and only to the log file for
// MCP.
func serveLogger(cfg *config.Config, stdio bool) (*slog.Logger, func(), error) {
	if !stdio {
		logger, cleanup := commandLogger(cfg, true)
		return logger, cleanup, nil
	}
	level := cfg.Server.LogLevel
	if debugMode {
		level = "debug"
	}
	logger, cleanup, err := logging.Setup(logging.StdioConfig(level))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to setup MCP logging: %w", err)
	}
	return logger, cleanup, nil
}

// startWatcher rebuilds the index on every debounced batch of document
// changes until ctx ends. The returned function stops the watcher.
func startWatcher(ctx context.Context, cfg *config.Config, r watcher.Reindexer, logger *slog.Logger) (func(), error) {
	opts := watcher.DefaultOptions()
	opts.DebounceWindow = config.Duration(cfg.Watch.Debounce)

	w, err := watcher.New(opts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	watchCtx, cancel := context.WithCancel(service.WithTrigger(ctx, service.TriggerWatch))
	go func() {
		if err := w.Start(watchCtx, cfg.Paths.DocsDir); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("watcher_stopped", slog.String("error", err.Error()))
		}
	}()
	go watcher.NewAutoReindex(w, r, logger).Run(watchCtx)

	logger.Info("watching_documents",
		slog.String("dir", cfg.Paths.DocsDir),
		slog.Duration("debounce", opts.DebounceWindow))

	return func() {
		cancel()
		_ = w.Stop()
	}, nil
}

// Package cmd provides the CLI commands for docqa.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docqa/internal/config"
	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/logging"
	"github.com/Aman-CERP/docqa/internal/profiling"
	"github.com/Aman-CERP/docqa/pkg/version"
)

// Global flags
var (
	debugMode      bool
	configFile     string
	loggingCleanup func()
	profileOpts    profiling.Options
	profileSession *profiling.Session
)

// NewRootCmd creates the root command for the docqa CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docqa",
		Short: "Question answering over a folder of PDFs",
		Long: `docqa indexes the PDFs in a folder and answers questions with the
passages most likely to contain the answer.

Retrieval is hybrid: a TF-IDF lexical score and a dense embedding score
are fused, and the best candidates are re-ranked by semantic similarity.

Typical use:
  docqa index
  docqa search "¿Cuál es el plazo del contrato?"
  docqa serve`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("docqa version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to stderr and ~/.docqa/logs/")
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file to use instead of .docqa.yaml")
	cmd.PersistentFlags().StringVar(&profileOpts.CPUPath, "profile-cpu", "", "Write a CPU profile to this file")
	cmd.PersistentFlags().StringVar(&profileOpts.HeapPath, "profile-mem", "", "Write a heap profile to this file on exit")
	cmd.PersistentFlags().StringVar(&profileOpts.TracePath, "profile-trace", "", "Write an execution trace to this file")
	_ = cmd.PersistentFlags().MarkHidden("profile-trace")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDocsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newEvalCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging installs the debug logger when --debug is set. Commands that
// run without it set up their own file logger through commandLogger.
func startLogging(_ *cobra.Command, _ []string) error {
	if profileOpts.Enabled() {
		session, err := profiling.Start(profileOpts)
		if err != nil {
			return fmt.Errorf("failed to start profiling: %w", err)
		}
		profileSession = session
	}
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("debug logging enabled",
		slog.String("log_file", logging.DefaultLogPath()),
		slog.String("version", version.Version))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	return finishRun()
}

// finishRun flushes profiles and closes the debug log. It is safe to call
// more than once.
func finishRun() error {
	var err error
	if profileSession != nil {
		err = profileSession.Stop()
		profileSession = nil
	}
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// commandLogger returns the logger for one command run. Under --debug it is
// the debug logger; otherwise logs go to the rotating file at the configured
// level, and to stderr as well when stderr is set.
func commandLogger(cfg *config.Config, stderr bool) (*slog.Logger, func()) {
	if debugMode {
		return slog.Default(), func() {}
	}
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Server.LogLevel
	logCfg.WriteToStderr = stderr
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		// File logging is best effort for CLI runs.
		return slog.Default(), func() {}
	}
	return logger, cleanup
}

// loadConfig finds the project root from the working directory and loads
// the configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	root, err := config.FindProjectRoot(".")
	if err != nil {
		if root, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}
	return config.LoadWithFile(root, configFile)
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	err := cmd.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when a command fails.
	_ = finishRun()
	if err != nil {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), docqaerrors.FormatForCLI(err))
	}
	return err
}

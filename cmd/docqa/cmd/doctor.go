package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docqa/internal/embed"
	"github.com/Aman-CERP/docqa/internal/output"
	"github.com/Aman-CERP/docqa/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		jsonOutput bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that docqa can run here",
		Long: `Run system checks: free disk space and write access for the data
directory, the documents folder, the persisted index and the embedder.

Exits with an error when a required check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, cleanup := commandLogger(cfg, false)
			defer cleanup()

			var opts []preflight.Option
			embedder, err := embed.NewFromConfig(ctx, cfg.Embeddings, logger)
			if err != nil {
				logger.Warn("doctor_embedder_unavailable", slog.String("error", err.Error()))
			} else {
				defer func() { _ = embedder.Close() }()
				opts = append(opts, preflight.WithEmbedder(embedder))
			}

			checker := preflight.New(cfg, opts...)
			results := checker.RunAll(ctx)
			if err != nil {
				results = append(results, preflight.CheckResult{
					Name:     "embedder",
					Status:   preflight.StatusFail,
					Message:  err.Error(),
					Required: true,
				})
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				if err := out.JSON(map[string]any{
					"status": checker.SummaryStatus(results),
					"checks": results,
				}); err != nil {
					return err
				}
			} else {
				out.Checks(results, checker.SummaryStatus(results), verbose)
			}

			if checker.HasCriticalFailures(results) {
				return fmt.Errorf("system check failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")

	return cmd
}

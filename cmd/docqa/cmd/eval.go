package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/index"
	"github.com/Aman-CERP/docqa/internal/output"
	"github.com/Aman-CERP/docqa/internal/validation"
)

func newEvalCmd() *cobra.Command {
	var (
		opts       searchOptions
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "eval <queries.yaml>",
		Short: "Measure retrieval quality against known answers",
		Long: `Run the questions in a YAML file against the index and check that the
expected page appears among the returned passages.

Reports each case, the hit rate, and the mean reciprocal rank (MRR).
Cases under 'negative' pass when they are answered without error.
Exits with an error when any case fails.`,
		Example: `  docqa eval queries.yaml
  docqa eval queries.yaml --alpha 0.5 --k-final 3 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd.Context(), cmd, args[0], opts, jsonOutput)
		},
	}

	cmd.Flags().IntVar(&opts.kBase, "k-base", 0, "Candidates kept after fusion (default from config)")
	cmd.Flags().IntVarP(&opts.kFinal, "k-final", "n", 0, "Passages returned (default from config)")
	cmd.Flags().Float64Var(&opts.alpha, "alpha", 0, "Lexical weight in fusion, 0 to 1 (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runEval(ctx context.Context, cmd *cobra.Command, path string, opts searchOptions, jsonOutput bool) error {
	queryOpts, err := opts.queryOptions(cmd)
	if err != nil {
		return err
	}
	cases, err := validation.LoadQueries(path)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, cleanup := commandLogger(cfg, false)
	defer cleanup()

	if !index.NewStore(cfg.Paths.IndexPath(), logger).Exists() {
		return docqaerrors.New(docqaerrors.ErrCodeIndexNotFound, "no index has been built", nil).
			WithDetail("path", cfg.Paths.IndexPath()).
			WithSuggestion("Run 'docqa index' first")
	}

	svc, err := openService(ctx, cfg, logger, serviceOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	result, err := validation.NewValidator(svc, queryOpts).RunAll(ctx, cases)
	if err != nil {
		return err
	}
	logger.Info("eval_complete",
		slog.Int("passed", result.Passed),
		slog.Int("total", result.Total),
		slog.Float64("mrr", result.MRR))

	out := output.New(cmd.OutOrStdout())
	if jsonOutput {
		if err := out.JSON(result); err != nil {
			return err
		}
	} else {
		out.Evaluation(result)
	}

	if !result.AllPassed() {
		return fmt.Errorf("%d of %d evaluation cases failed",
			result.Total-result.Passed+result.NegTotal-result.NegPass, result.Total+result.NegTotal)
	}
	return nil
}

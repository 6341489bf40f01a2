package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/index"
	"github.com/Aman-CERP/docqa/internal/output"
	"github.com/Aman-CERP/docqa/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	kBase   int
	kFinal  int
	alpha   float64
	format  string // "text", "json"
	explain bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Find the passages that best answer a question",
		Long: `Search the index for passages that answer a question.

Lexical (TF-IDF) and semantic scores are min-max normalized and fused with
weight alpha on the lexical side. The top k-base candidates are re-ranked
by semantic score and the best k-final are printed.

Unset flags fall back to the query section of the configuration.`,
		Example: `  docqa search "¿Cuál es el plazo de entrega?"
  docqa search "penalización por retraso" --k-final 3
  docqa search "rescisión" --alpha 0 --format json
  docqa search "garantía" --explain`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, question, opts)
		},
	}

	cmd.Flags().IntVar(&opts.kBase, "k-base", 0, "Candidates kept after fusion (default from config)")
	cmd.Flags().IntVarP(&opts.kFinal, "k-final", "n", 0, "Passages returned (default from config)")
	cmd.Flags().Float64Var(&opts.alpha, "alpha", 0, "Lexical weight in fusion, 0 to 1 (default from config)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show the score breakdown of each passage")

	return cmd
}

// queryOptions converts the flags that were set into search options.
func (o searchOptions) queryOptions(cmd *cobra.Command) (search.Options, error) {
	var q search.Options
	flags := cmd.Flags()
	if flags.Changed("k-base") {
		if o.kBase < 1 {
			return q, docqaerrors.Newf(docqaerrors.ErrCodeInvalidQuery, "--k-base must be at least 1, got %d", o.kBase)
		}
		q.KBase = o.kBase
	}
	if flags.Changed("k-final") {
		if o.kFinal < 1 {
			return q, docqaerrors.Newf(docqaerrors.ErrCodeInvalidQuery, "--k-final must be at least 1, got %d", o.kFinal)
		}
		q.KFinal = o.kFinal
	}
	if flags.Changed("alpha") {
		q.Alpha = search.Float64(o.alpha)
	}
	q.Explain = o.explain
	return q, nil
}

func runSearch(ctx context.Context, cmd *cobra.Command, question string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return docqaerrors.Newf(docqaerrors.ErrCodeInvalidInput, "unknown format %q", opts.format).
			WithSuggestion("Use --format text or --format json")
	}
	queryOpts, err := opts.queryOptions(cmd)
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

	logger.Info("search_started", slog.String("question", question))
	results, err := svc.Query(ctx, question, queryOpts)
	if err != nil {
		return err
	}
	logger.Info("search_complete", slog.Int("results", len(results)))

	out := output.New(cmd.OutOrStdout())
	if opts.format == "json" {
		return out.JSON(struct {
			Results []search.Result `json:"results"`
		}{Results: nonNil(results)})
	}
	out.Results(question, results)
	return nil
}

func nonNil(results []search.Result) []search.Result {
	if results == nil {
		return []search.Result{}
	}
	return results
}


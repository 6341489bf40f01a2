package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docqa/internal/docs"
	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/output"
	"github.com/Aman-CERP/docqa/internal/service"
)

func newDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage the documents folder",
		Long: `List, add and remove the PDFs that make up the index.

Adding or removing a document rebuilds the index.`,
		Example: `  docqa docs list
  docqa docs add ~/Descargas/contrato.pdf
  docqa docs add scan.pdf --name contrato-2024.pdf
  docqa docs remove contrato.pdf`,
	}

	cmd.AddCommand(newDocsListCmd())
	cmd.AddCommand(newDocsAddCmd())
	cmd.AddCommand(newDocsRemoveCmd())

	return cmd
}

func newDocsListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			manager, err := docs.NewManager(cfg.Paths.DocsDir, listOnly{})
			if err != nil {
				return err
			}
			list, err := manager.List()
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				if list == nil {
					list = []docs.Info{}
				}
				return out.JSON(map[string]any{"documents": list})
			}
			out.Documents(list)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

// listOnly backs a Manager that never changes the folder.
type listOnly struct{}

func (listOnly) Reindex(context.Context) (int, error) {
	return 0, docqaerrors.InternalError("reindex from a read-only document listing", nil)
}

func newDocsAddCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Copy a PDF into the documents folder and reindex",
		Long: `Copy a PDF into the documents folder and rebuild the index.

A document with the same name is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			if name == "" {
				name = filepath.Base(src)
			}
			return withDocsManager(cmd, func(ctx context.Context, out *output.Writer, m *docs.Manager) error {
				if err := docs.ValidateFilename(name); err != nil {
					return err
				}
				f, err := os.Open(src)
				if err != nil {
					return docqaerrors.New(docqaerrors.ErrCodeFileNotFound, "cannot open "+src, err)
				}
				defer func() { _ = f.Close() }()

				replaced := m.Exists(name)
				n, err := m.Add(ctx, name, f)
				if err != nil {
					return err
				}
				if replaced {
					out.Successf("Replaced %s (%d chunks indexed)", name, n)
				} else {
					out.Successf("Added %s (%d chunks indexed)", name, n)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Store the document under this name")

	return cmd
}

func newDocsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a PDF from the documents folder and reindex",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return withDocsManager(cmd, func(ctx context.Context, out *output.Writer, m *docs.Manager) error {
				if err := docs.ValidateFilename(name); err != nil {
					return err
				}
				if !m.Exists(name) {
					return docqaerrors.Newf(docqaerrors.ErrCodeFileNotFound, "%s is not in the documents folder", name).
						WithSuggestion("Run 'docqa docs list' to see the documents")
				}
				n, err := m.Remove(ctx, name)
				if err != nil {
					return err
				}
				out.Successf("Removed %s (%d chunks indexed)", name, n)
				return nil
			})
		},
	}
}

// withDocsManager runs fn with a Manager whose changes rebuild the index
// through a Service.
func withDocsManager(cmd *cobra.Command, fn func(context.Context, *output.Writer, *docs.Manager) error) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, cleanup := commandLogger(cfg, false)
	defer cleanup()

	svc, err := openService(ctx, cfg, logger, serviceOptions{skipLoad: true})
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	manager, err := docs.NewManager(cfg.Paths.DocsDir, svc,
		docs.WithMaxBytes(int64(cfg.Server.MaxUploadMB)<<20),
		docs.WithLogger(logger))
	if err != nil {
		return err
	}

	return fn(service.WithTrigger(ctx, service.TriggerCLI), output.New(cmd.OutOrStdout()), manager)
}


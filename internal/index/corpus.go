package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/extract"
)

// ListPDFs returns the names of *.pdf files directly inside dir, sorted.
// A missing dir is an empty corpus.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, docqaerrors.New(docqaerrors.ErrCodeFilePermission, "cannot read docs directory", err).
			WithDetail("path", dir)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && extract.IsPDF(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadCorpus extracts every PDF in dir in parallel, keeping filename order.
// Documents that yield no pages are logged and left out.
func LoadCorpus(ctx context.Context, dir string, extractor extract.Extractor, logger *slog.Logger) ([]extract.Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	names, err := ListPDFs(dir)
	if err != nil {
		return nil, err
	}

	docs := make([]extract.Document, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, name := range names {
		g.Go(func() error {
			doc, err := extractor.Extract(gctx, filepath.Join(dir, name))
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kept := docs[:0]
	for _, doc := range docs {
		if len(doc.Pages) == 0 {
			logger.Warn("document_skipped",
				slog.String("filename", doc.Filename),
				slog.String("reason", "no extractable text"))
			continue
		}
		kept = append(kept, doc)
	}
	return kept, nil
}

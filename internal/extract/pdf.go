package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts page text using github.com/ledongthuc/pdf.
// It is safe for concurrent use.
type PDFExtractor struct {
	logger *slog.Logger
}

// NewPDFExtractor creates a PDF extractor. A nil logger uses slog.Default().
func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{logger: logger}
}

// Extract reads the PDF at path. Corrupt or unreadable files produce a
// Document with no pages rather than an error.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (Document, error) {
	name := filepath.Base(path)
	doc := Document{Filename: name, Path: path, Title: name}

	if err := ctx.Err(); err != nil {
		return doc, err
	}

	title, pages, err := e.read(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return doc, ctx.Err()
		}
		e.logger.Warn("pdf_extract_failed",
			slog.String("file", name),
			slog.String("error", err.Error()))
		return doc, nil
	}

	if title != "" {
		doc.Title = title
	}
	doc.Pages = pages

	e.logger.Debug("pdf_extracted",
		slog.String("file", name),
		slog.Int("pages", len(pages)))
	return doc, nil
}

// read does the parsing. The pdf package panics on some malformed inputs,
// so panics are converted to errors here.
func (e *PDFExtractor) read(ctx context.Context, path string) (title string, pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			title, pages = "", nil
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	title = SanitizeText(r.Trailer().Key("Info").Key("Title").Text())

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			e.logger.Debug("pdf_page_skipped",
				slog.String("file", filepath.Base(path)),
				slog.Int("page", i),
				slog.String("error", err.Error()))
			continue
		}
		text = SanitizeText(text)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	return title, pages, nil
}

// IsPDF reports whether name has a .pdf extension, case-insensitively.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

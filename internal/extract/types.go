package extract

import "context"

// Document is one source PDF and its extracted pages.
type Document struct {
	// Filename is the base name of the file, unique within the docs dir.
	Filename string
	// Path is the full path the document was read from.
	Path string
	// Title is the PDF /Title metadata, or Filename when absent.
	Title string
	// Pages holds the pages that produced text, in page order.
	Pages []Page
}

// Page is the text of one PDF page.
type Page struct {
	// Number is 1-based and refers to the physical page in the file.
	Number int
	Text   string
}

// Extractor reads a document from disk.
type Extractor interface {
	Extract(ctx context.Context, path string) (Document, error)
}

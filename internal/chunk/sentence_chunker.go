package chunk

import (
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/docqa/internal/extract"
	"github.com/Aman-CERP/docqa/internal/segment"
)

// SentenceChunkerOptions configures the sentence chunker.
type SentenceChunkerOptions struct {
	MaxChars int // Soft upper bound in characters (default: DefaultMaxChars)
}

// SentenceChunker packs whole sentences into bounded passages. Sentences
// are never split, so a sentence longer than MaxChars becomes its own
// oversized chunk.
type SentenceChunker struct {
	segmenter segment.Segmenter
	options   SentenceChunkerOptions
}

// NewSentenceChunker creates a chunker over seg.
func NewSentenceChunker(seg segment.Segmenter, opts SentenceChunkerOptions) *SentenceChunker {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	return &SentenceChunker{segmenter: seg, options: opts}
}

// MaxChars returns the configured bound.
func (c *SentenceChunker) MaxChars() int {
	return c.options.MaxChars
}

// ChunkPage splits the text of one page into fragments tagged with page.
func (c *SentenceChunker) ChunkPage(text string, page int) []Fragment {
	return Pack(c.segmenter.Segment(text), page, c.options.MaxChars)
}

// ChunkDocument chunks every page of doc in page order and attaches the
// document's filename and title.
func (c *SentenceChunker) ChunkDocument(doc extract.Document) []Chunk {
	var chunks []Chunk
	for _, p := range doc.Pages {
		for _, f := range c.ChunkPage(p.Text, p.Number) {
			chunks = append(chunks, Chunk{
				Text:     f.Text,
				Filename: doc.Filename,
				Title:    doc.Title,
				Page:     f.Page,
			})
		}
	}
	return chunks
}

// Pack greedily accumulates sentences into fragments of at most maxChars
// characters. A sentence is added with one separating space; when that
// would exceed maxChars the current buffer is emitted and the sentence
// starts the next one.
func Pack(sentences []string, page, maxChars int) []Fragment {
	var (
		out   []Fragment
		buf   strings.Builder
		count int
	)

	flush := func() {
		if t := strings.TrimSpace(buf.String()); t != "" {
			out = append(out, Fragment{Text: t, Page: page})
		}
		buf.Reset()
		count = 0
	}

	for _, s := range sentences {
		n := utf8.RuneCountInString(s)
		if count+n+1 > maxChars {
			flush()
			buf.WriteString(s)
			count = n
			continue
		}
		buf.WriteByte(' ')
		buf.WriteString(s)
		count += n + 1
	}
	flush()

	return out
}

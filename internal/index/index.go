// Package index builds, validates, and persists the retrieval index.
//
// An Index holds every chunk of the corpus together with two parallel row
// sets: a sparse TF-IDF row and a dense unit-length embedding row. Row i of
// both matrices describes Chunks[i]; the position is the only join key.
// An Index is never mutated after Build or Load returns it.
package index

import (
	"time"

	"github.com/Aman-CERP/docqa/internal/chunk"
	"github.com/Aman-CERP/docqa/internal/lexical"
)

// Index is the immutable retrieval artifact.
type Index struct {
	Chunks        []chunk.Chunk
	Lexical       *lexical.Model
	LexicalMatrix []lexical.Vector
	DenseMatrix   [][]float32

	// EmbeddingModel and Dimensions identify the embedder the dense rows
	// came from. A query embedder must match both.
	EmbeddingModel string
	Dimensions     int
	MaxChars       int
	BuiltAt        time.Time
}

// Empty returns an index with no chunks for the given lexical language.
func Empty(language, model string, dims int) (*Index, error) {
	lex, err := lexical.Empty(language)
	if err != nil {
		return nil, err
	}
	return &Index{
		Chunks:         []chunk.Chunk{},
		Lexical:        lex,
		LexicalMatrix:  []lexical.Vector{},
		DenseMatrix:    [][]float32{},
		EmbeddingModel: model,
		Dimensions:     dims,
	}, nil
}

// Len returns the number of chunks.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Chunks)
}

// Stats summarizes an index for display.
type Stats struct {
	Chunks         int       `json:"chunks"`
	Documents      int       `json:"documents"`
	Pages          int       `json:"pages"`
	Vocabulary     int       `json:"vocabulary"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimensions     int       `json:"dimensions"`
	MaxChars       int       `json:"max_chars"`
	BuiltAt        time.Time `json:"built_at"`
}

// Stats computes summary counts.
func (idx *Index) Stats() Stats {
	s := Stats{
		Chunks:         len(idx.Chunks),
		EmbeddingModel: idx.EmbeddingModel,
		Dimensions:     idx.Dimensions,
		MaxChars:       idx.MaxChars,
		BuiltAt:        idx.BuiltAt,
	}
	if idx.Lexical != nil {
		s.Vocabulary = idx.Lexical.VocabularySize()
	}

	type pageKey struct {
		file string
		page int
	}
	files := make(map[string]struct{})
	pages := make(map[pageKey]struct{})
	for _, c := range idx.Chunks {
		files[c.Filename] = struct{}{}
		pages[pageKey{c.Filename, c.Page}] = struct{}{}
	}
	s.Documents = len(files)
	s.Pages = len(pages)
	return s
}

package index

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/Aman-CERP/docqa/internal/chunk"
	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/lexical"
)

// File layout: 4-byte magic, big-endian uint32 format version, gob payload.
const (
	magic = "DQIX"

	// FormatVersion is bumped whenever payload changes shape.
	FormatVersion uint32 = 1
)

type payload struct {
	Chunks         []chunk.Chunk
	Lexical        lexical.State
	LexicalMatrix  []lexical.Vector
	DenseMatrix    [][]float32
	EmbeddingModel string
	Dimensions     int
	MaxChars       int
	BuiltAt        time.Time
}

// Encode writes idx to w.
func Encode(w io.Writer, idx *Index) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, FormatVersion); err != nil {
		return err
	}

	p := payload{
		Chunks:         idx.Chunks,
		LexicalMatrix:  idx.LexicalMatrix,
		DenseMatrix:    idx.DenseMatrix,
		EmbeddingModel: idx.EmbeddingModel,
		Dimensions:     idx.Dimensions,
		MaxChars:       idx.MaxChars,
		BuiltAt:        idx.BuiltAt,
	}
	if idx.Lexical != nil {
		p.Lexical = idx.Lexical.State()
	}
	if err := gob.NewEncoder(bw).Encode(&p); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	return bw.Flush()
}

// Decode reads an index written by Encode and validates it.
func Decode(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)

	header := make([]byte, len(magic))
	if _, err := io.ReadFull(br, header); err != nil || string(header) != magic {
		return nil, corrupt("missing index header", err)
	}

	var version uint32
	if err := binary.Read(br, binary.BigEndian, &version); err != nil {
		return nil, corrupt("truncated index header", err)
	}
	if version != FormatVersion {
		return nil, corrupt(fmt.Sprintf("index format version %d, this build reads %d", version, FormatVersion), nil)
	}

	var p payload
	if err := gob.NewDecoder(br).Decode(&p); err != nil {
		return nil, corrupt("failed to decode index payload", err)
	}

	model, err := lexical.Restore(p.Lexical)
	if err != nil {
		return nil, err
	}

	// gob drops empty slices; restore them so an empty index stays non-nil.
	if p.Chunks == nil {
		p.Chunks = []chunk.Chunk{}
	}
	if p.LexicalMatrix == nil {
		p.LexicalMatrix = []lexical.Vector{}
	}
	if p.DenseMatrix == nil {
		p.DenseMatrix = [][]float32{}
	}

	idx := &Index{
		Chunks:         p.Chunks,
		Lexical:        model,
		LexicalMatrix:  p.LexicalMatrix,
		DenseMatrix:    p.DenseMatrix,
		EmbeddingModel: p.EmbeddingModel,
		Dimensions:     p.Dimensions,
		MaxChars:       p.MaxChars,
		BuiltAt:        p.BuiltAt,
	}
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	return idx, nil
}

func corrupt(msg string, cause error) error {
	return docqaerrors.New(docqaerrors.ErrCodeIndexCorrupt, msg, cause).
		WithSuggestion("Rebuild the index with 'docqa index'")
}

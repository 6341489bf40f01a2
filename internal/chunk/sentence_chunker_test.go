package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docqa/internal/extract"
	"github.com/Aman-CERP/docqa/internal/segment"
)

// lineSegmenter treats every line as a sentence.
type lineSegmenter struct{}

func (lineSegmenter) Segment(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func TestPack(t *testing.T) {
	tests := []struct {
		name      string
		sentences []string
		maxChars  int
		want      []string
	}{
		{
			name:      "no sentences",
			sentences: nil,
			maxChars:  10,
			want:      nil,
		},
		{
			name:      "fits in one chunk",
			sentences: []string{"aaa", "bbb"},
			maxChars:  10,
			want:      []string{"aaa bbb"},
		},
		{
			// " aaa bbb" is 8, adding " ccc" makes 12 > 10
			name:      "splits at bound",
			sentences: []string{"aaa", "bbb", "ccc"},
			maxChars:  10,
			want:      []string{"aaa bbb", "ccc"},
		},
		{
			name:      "exactly at bound",
			sentences: []string{"aaaa", "bbbb"},
			maxChars:  10,
			want:      []string{"aaaa bbbb"},
		},
		{
			name:      "oversized sentence stands alone",
			sentences: []string{"aa", strings.Repeat("x", 25), "bb"},
			maxChars:  10,
			want:      []string{"aa", strings.Repeat("x", 25), "bb"},
		},
		{
			name:      "oversized first sentence",
			sentences: []string{strings.Repeat("y", 12)},
			maxChars:  10,
			want:      []string{strings.Repeat("y", 12)},
		},
		{
			name:      "multibyte counted as characters",
			sentences: []string{"ñañañ", "óóó"},
			maxChars:  10,
			want:      []string{"ñañañ óóó"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frags := Pack(tt.sentences, 4, tt.maxChars)

			var got []string
			for _, f := range frags {
				assert.Equal(t, 4, f.Page)
				got = append(got, f.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSentenceChunker_DefaultMaxChars(t *testing.T) {
	c := NewSentenceChunker(lineSegmenter{}, SentenceChunkerOptions{})
	assert.Equal(t, DefaultMaxChars, c.MaxChars())

	c = NewSentenceChunker(lineSegmenter{}, SentenceChunkerOptions{MaxChars: -3})
	assert.Equal(t, DefaultMaxChars, c.MaxChars())
}

func TestSentenceChunker_EmptyPage(t *testing.T) {
	c := NewSentenceChunker(lineSegmenter{}, SentenceChunkerOptions{MaxChars: 50})

	assert.Empty(t, c.ChunkPage("", 1))
	assert.Empty(t, c.ChunkPage(" \n \n", 1))
}

func TestSentenceChunker_LengthBoundAndSentenceIntegrity(t *testing.T) {
	// Given: real Spanish text segmented by Punkt
	seg, err := segment.New(segment.Spanish)
	require.NoError(t, err)
	c := NewSentenceChunker(seg, SentenceChunkerOptions{MaxChars: 120})

	text := strings.Repeat("El consejo directivo aprueba el calendario académico cada año. "+
		"Los estudiantes pueden solicitar prórroga por razones justificadas. "+
		"La solicitud se presenta ante la secretaría de la facultad. ", 6)
	sentences := seg.Segment(text)

	// When: chunking one page
	frags := c.ChunkPage(text, 7)
	require.NotEmpty(t, frags)

	// Then: every chunk is within the bound and is a run of whole sentences
	next := 0
	for _, f := range frags {
		assert.Equal(t, 7, f.Page)
		assert.LessOrEqual(t, utf8.RuneCountInString(f.Text), 120)

		var parts []string
		for next < len(sentences) && len(strings.Join(parts, " ")) < len(f.Text) {
			parts = append(parts, sentences[next])
			next++
		}
		assert.Equal(t, strings.Join(parts, " "), f.Text)
	}
	assert.Equal(t, len(sentences), next, "all sentences consumed in order")
}

func TestSentenceChunker_Deterministic(t *testing.T) {
	seg, err := segment.New(segment.Spanish)
	require.NoError(t, err)
	c := NewSentenceChunker(seg, SentenceChunkerOptions{MaxChars: 80})
	text := "Primera oración del texto. Segunda oración algo más larga que la primera. Tercera. Cuarta oración final."

	assert.Equal(t, c.ChunkPage(text, 1), c.ChunkPage(text, 1))
}

func TestSentenceChunker_ChunkDocument(t *testing.T) {
	// Given: a document with two pages
	c := NewSentenceChunker(lineSegmenter{}, SentenceChunkerOptions{MaxChars: 13})
	doc := extract.Document{
		Filename: "a.pdf",
		Title:    "Título A",
		Pages: []extract.Page{
			{Number: 1, Text: "uno\ndos\ntres"},
			{Number: 3, Text: "cuatro"},
		},
	}

	// When: chunking the document
	chunks := c.ChunkDocument(doc)

	// Then: chunks follow page order and carry document metadata
	want := []Chunk{
		{Text: "uno dos tres", Filename: "a.pdf", Title: "Título A", Page: 1},
		{Text: "cuatro", Filename: "a.pdf", Title: "Título A", Page: 3},
	}
	assert.Equal(t, want, chunks)
}

// Package segment splits text into sentences with the Punkt algorithm.
package segment

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
)

//go:embed data/spanish.json
var spanishTraining []byte

// Segmenter splits text into ordered sentences.
type Segmenter interface {
	Segment(text string) []string
}

// Language names accepted by New.
const (
	Spanish = "spanish"
	English = "english"
)

// Languages returns the supported language names, sorted.
func Languages() []string {
	langs := []string{Spanish, English}
	sort.Strings(langs)
	return langs
}

// Punkt is a Segmenter backed by a trained Punkt model.
// It is safe for concurrent use; the model is read-only after construction.
type Punkt struct {
	language  string
	tokenizer sentences.SentenceTokenizer
}

// New loads the Punkt model for language.
func New(language string) (*Punkt, error) {
	lang := strings.ToLower(strings.TrimSpace(language))

	var (
		tok sentences.SentenceTokenizer
		err error
	)
	switch lang {
	case Spanish:
		var storage *sentences.Storage
		storage, err = sentences.LoadTraining(spanishTraining)
		if err == nil {
			tok = sentences.NewSentenceTokenizer(storage)
		}
	case English:
		tok, err = english.NewSentenceTokenizer(nil)
	default:
		return nil, docqaerrors.New(docqaerrors.ErrCodeInvalidInput,
			fmt.Sprintf("unsupported sentence language %q", language), nil).
			WithSuggestion("Use one of: " + strings.Join(Languages(), ", "))
	}
	if err != nil {
		return nil, docqaerrors.InternalError("failed to load sentence model for "+lang, err)
	}

	return &Punkt{language: lang, tokenizer: tok}, nil
}

// Language returns the model language.
func (p *Punkt) Language() string {
	return p.language
}

// Segment returns the trimmed, non-empty sentences of text in order.
func (p *Punkt) Segment(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sents := p.tokenizer.Tokenize(text)
	out := make([]string, 0, len(sents))
	for _, s := range sents {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

package lexical

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/lang/es"
	"github.com/blevesearch/bleve/v2/analysis/token/length"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
)

// DefaultMinTokenLength drops single-character tokens.
const DefaultMinTokenLength = 2

// stopWordLists maps a language to its snowball stop word list.
var stopWordLists = map[string][]byte{
	"spanish": es.SpanishStopWords,
	"english": en.EnglishStopWords,
}

// Analyzer turns text into index terms: unicode word segmentation,
// lowercasing, a minimum length and stop word removal.
// It is safe for concurrent use.
type Analyzer struct {
	language string
	analyzer *analysis.DefaultAnalyzer
}

// NewAnalyzer builds the analyzer for language. minTokenLength <= 0 uses
// DefaultMinTokenLength.
func NewAnalyzer(language string, minTokenLength int) (*Analyzer, error) {
	lang := strings.ToLower(strings.TrimSpace(language))
	words, ok := stopWordLists[lang]
	if !ok {
		return nil, docqaerrors.New(docqaerrors.ErrCodeInvalidInput,
			fmt.Sprintf("no stop word list for language %q", language), nil)
	}
	if minTokenLength <= 0 {
		minTokenLength = DefaultMinTokenLength
	}

	stopWords := analysis.NewTokenMap()
	if err := stopWords.LoadBytes(words); err != nil {
		return nil, docqaerrors.InternalError("failed to load stop words", err)
	}

	return &Analyzer{
		language: lang,
		analyzer: &analysis.DefaultAnalyzer{
			Tokenizer: unicode.NewUnicodeTokenizer(),
			TokenFilters: []analysis.TokenFilter{
				lowercase.NewLowerCaseFilter(),
				length.NewLengthFilter(minTokenLength, 0),
				stop.NewStopTokensFilter(stopWords),
			},
		},
	}, nil
}

// Language returns the analyzer language.
func (a *Analyzer) Language() string {
	return a.language
}

// Terms returns the analyzed terms of text in order, with repeats.
func (a *Analyzer) Terms(text string) []string {
	if text == "" {
		return nil
	}
	tokens := a.analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

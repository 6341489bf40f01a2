// Package lexical implements the TF-IDF model used for the sparse
// retrieval signal.
//
// Weights follow the usual smoothed formulation: raw term counts times
// idf = ln((1+n)/(1+df)) + 1, with every row L2-normalized. The vocabulary
// is capped at the most frequent terms across the corpus.
package lexical

import (
	"math"
	"sort"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
)

// DefaultMaxFeatures caps the vocabulary size.
const DefaultMaxFeatures = 20000

// Options configures fitting.
type Options struct {
	Language       string
	MaxFeatures    int
	MinTokenLength int
}

// State is the serializable form of a fitted Model.
type State struct {
	Language       string
	MinTokenLength int
	Terms          []string
	IDF            []float32
}

// Model is a fitted TF-IDF vectorizer. It is immutable and safe for
// concurrent use.
type Model struct {
	state    State
	columns  map[string]int32
	analyzer *Analyzer
}

// Fit learns the vocabulary and IDF weights from docs and returns the model
// together with the weight row of every document, in order.
func Fit(docs []string, opts Options) (*Model, []Vector, error) {
	if opts.MaxFeatures <= 0 {
		opts.MaxFeatures = DefaultMaxFeatures
	}
	if opts.MinTokenLength <= 0 {
		opts.MinTokenLength = DefaultMinTokenLength
	}
	analyzer, err := NewAnalyzer(opts.Language, opts.MinTokenLength)
	if err != nil {
		return nil, nil, err
	}

	docTerms := make([][]string, len(docs))
	corpusFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for i, d := range docs {
		terms := analyzer.Terms(d)
		docTerms[i] = terms
		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			corpusFreq[t]++
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				docFreq[t]++
			}
		}
	}

	terms := topTerms(corpusFreq, opts.MaxFeatures)

	n := float64(len(docs))
	idf := make([]float32, len(terms))
	for i, t := range terms {
		idf[i] = float32(math.Log((1+n)/(1+float64(docFreq[t]))) + 1)
	}

	m := newModel(State{
		Language:       analyzer.Language(),
		MinTokenLength: opts.MinTokenLength,
		Terms:          terms,
		IDF:            idf,
	}, analyzer)

	rows := make([]Vector, len(docs))
	for i, dt := range docTerms {
		rows[i] = m.weigh(dt)
	}
	return m, rows, nil
}

// topTerms keeps the limit most frequent terms, breaking ties by term,
// and returns them sorted alphabetically.
func topTerms(freq map[string]int, limit int) []string {
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	if len(terms) > limit {
		sort.SliceStable(terms, func(i, j int) bool {
			return freq[terms[i]] > freq[terms[j]]
		})
		terms = terms[:limit]
		sort.Strings(terms)
	}
	return terms
}

// Restore rebuilds a Model from its serialized state.
func Restore(s State) (*Model, error) {
	if len(s.Terms) != len(s.IDF) {
		return nil, docqaerrors.New(docqaerrors.ErrCodeIndexCorrupt,
			"lexical model has mismatched vocabulary and idf lengths", nil)
	}
	analyzer, err := NewAnalyzer(s.Language, s.MinTokenLength)
	if err != nil {
		return nil, err
	}
	return newModel(s, analyzer), nil
}

// Empty returns a model with no vocabulary. Every transform is the zero vector.
func Empty(language string) (*Model, error) {
	return Restore(State{Language: language, MinTokenLength: DefaultMinTokenLength})
}

func newModel(s State, analyzer *Analyzer) *Model {
	columns := make(map[string]int32, len(s.Terms))
	for i, t := range s.Terms {
		columns[t] = int32(i)
	}
	return &Model{state: s, columns: columns, analyzer: analyzer}
}

// State returns the serializable state of m.
func (m *Model) State() State {
	return m.state
}

// VocabularySize returns the number of columns.
func (m *Model) VocabularySize() int {
	return len(m.state.Terms)
}

// Language returns the analyzer language.
func (m *Model) Language() string {
	return m.state.Language
}

// Transform weighs text against the fitted vocabulary. Unknown terms are
// ignored.
func (m *Model) Transform(text string) Vector {
	return m.weigh(m.analyzer.Terms(text))
}

func (m *Model) weigh(terms []string) Vector {
	counts := make(map[int32]int)
	for _, t := range terms {
		if col, ok := m.columns[t]; ok {
			counts[col]++
		}
	}
	if len(counts) == 0 {
		return Vector{}
	}

	cols := make([]int32, 0, len(counts))
	for c := range counts {
		cols = append(cols, c)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })

	values := make([]float32, len(cols))
	var sum float64
	for k, c := range cols {
		w := float64(counts[c]) * float64(m.state.IDF[c])
		values[k] = float32(w)
		sum += w * w
	}
	norm := math.Sqrt(sum)
	for k := range values {
		values[k] = float32(float64(values[k]) / norm)
	}

	return Vector{Indices: cols, Values: values}
}

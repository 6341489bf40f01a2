package validation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/search"
)

// fakeQuerier answers from a fixed table keyed by question.
type fakeQuerier struct {
	answers map[string][]search.Result
	errs    map[string]error
	opts    []search.Options
}

func (f *fakeQuerier) Query(_ context.Context, text string, opts search.Options) ([]search.Result, error) {
	f.opts = append(f.opts, opts)
	if err := f.errs[text]; err != nil {
		return nil, err
	}
	return f.answers[text], nil
}

func hit(filename string, page int) search.Result {
	return search.Result{Filename: filename, Page: page}
}

func writeQueries(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadQueries(t *testing.T) {
	path := writeQueries(t, `
queries:
  - id: plazo
    question: "¿Cuánto dura el contrato?"
    expected:
      - filename: contrato.pdf
        page: 2
negative:
  - id: ruido
    question: "xyzzy"
`)

	cfg, err := LoadQueries(path)

	require.NoError(t, err)
	require.Len(t, cfg.Queries, 1)
	assert.Equal(t, []Expectation{{Filename: "contrato.pdf", Page: 2}}, cfg.Queries[0].Expected)
	assert.False(t, cfg.Queries[0].Negative)
	require.Len(t, cfg.Negative, 1)
	assert.True(t, cfg.Negative[0].Negative)
}

func TestLoadQueries_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{"malformed", "queries: [", docqaerrors.ErrCodeInvalidInput},
		{"empty", "queries: []\n", docqaerrors.ErrCodeInvalidInput},
		{"no question", "queries:\n  - id: a\n    expected:\n      - filename: a.pdf\n", docqaerrors.ErrCodeInvalidInput},
		{"no expectation", "queries:\n  - id: a\n    question: hola\n", docqaerrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadQueries(writeQueries(t, tt.content))
			require.Error(t, err)
			assert.True(t, docqaerrors.HasCode(err, tt.code), err.Error())
		})
	}

	_, err := LoadQueries(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeFileNotFound))
}

func TestExpectation_Matches(t *testing.T) {
	assert.True(t, Expectation{Filename: "a.pdf", Page: 2}.Matches(hit("a.pdf", 2)))
	assert.False(t, Expectation{Filename: "a.pdf", Page: 2}.Matches(hit("a.pdf", 3)))
	assert.True(t, Expectation{Filename: "a.pdf"}.Matches(hit("a.pdf", 9)))
	assert.False(t, Expectation{Filename: "a.pdf"}.Matches(hit("b.pdf", 1)))
}

func TestValidator_RunAll(t *testing.T) {
	// Given: answers where one case hits first, one hits second, one misses
	q := &fakeQuerier{
		answers: map[string][]search.Result{
			"first":  {hit("a.pdf", 1), hit("b.pdf", 1)},
			"second": {hit("b.pdf", 1), hit("a.pdf", 3)},
			"miss":   {hit("b.pdf", 4)},
			"noise":  {},
		},
		errs: map[string]error{"broken": errors.New("boom")},
	}
	cfg := &QueryConfig{
		Queries: []QuerySpec{
			{ID: "1", Question: "first", Expected: []Expectation{{Filename: "a.pdf", Page: 1}}},
			{ID: "2", Question: "second", Expected: []Expectation{{Filename: "a.pdf"}}},
			{ID: "3", Question: "miss", Expected: []Expectation{{Filename: "a.pdf"}}},
		},
		Negative: []QuerySpec{
			{ID: "n1", Question: "noise", Negative: true},
			{ID: "n2", Question: "broken", Negative: true},
		},
	}
	opts := search.Options{KFinal: 3}

	// When: running every case
	result, err := NewValidator(q, opts).RunAll(context.Background(), cfg)

	// Then: ranks, hit rate and MRR reflect the answers
	require.NoError(t, err)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.NegPass)
	assert.Equal(t, 2, result.NegTotal)
	assert.Equal(t, []int{1, 2, 0}, []int{
		result.Queries[0].MatchedAt, result.Queries[1].MatchedAt, result.Queries[2].MatchedAt,
	})
	assert.Equal(t, []string{"b.pdf:1", "a.pdf:3"}, result.Queries[1].TopResults)
	assert.InDelta(t, 0.5, result.MRR, 1e-12)
	assert.InDelta(t, 2.0/3.0, result.HitRate(), 1e-12)
	assert.False(t, result.AllPassed())
	assert.Equal(t, "boom", result.Negative[1].Error)
	for _, o := range q.opts {
		assert.Equal(t, opts, o)
	}
}

func TestValidator_RunAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewValidator(&fakeQuerier{}, search.Options{}).RunAll(ctx, &QueryConfig{
		Queries: []QuerySpec{{Question: "x", Expected: []Expectation{{Filename: "a.pdf"}}}},
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidationResult_Empty(t *testing.T) {
	r := &ValidationResult{}

	assert.Zero(t, r.HitRate())
	assert.True(t, r.AllPassed())
}

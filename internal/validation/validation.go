// Package validation measures retrieval quality against a set of questions
// whose answers are known to live on specific pages.
//
// Cases are data-driven, loaded from a YAML file such as:
//
//	queries:
//	  - id: plazo
//	    question: "¿Cuánto dura el contrato?"
//	    expected:
//	      - filename: contrato.pdf
//	        page: 2
//	negative:
//	  - id: ruido
//	    question: "xyzzy"
package validation

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/search"
)

// Expectation names a passage that answers a question. Page 0 accepts any
// page of the file.
type Expectation struct {
	Filename string `yaml:"filename" json:"filename"`
	Page     int    `yaml:"page,omitempty" json:"page,omitempty"`
}

// Matches reports whether r is the expected passage.
func (e Expectation) Matches(r search.Result) bool {
	return r.Filename == e.Filename && (e.Page == 0 || r.Page == e.Page)
}

// QuerySpec is one evaluation case.
type QuerySpec struct {
	ID       string        `yaml:"id" json:"id"`
	Question string        `yaml:"question" json:"question"`
	Expected []Expectation `yaml:"expected" json:"expected,omitempty"`
	Notes    string        `yaml:"notes" json:"-"`
	Negative bool          `yaml:"-" json:"negative,omitempty"`
}

// QueryConfig holds the cases loaded from YAML. Negative cases only have
// to be answered without error.
type QueryConfig struct {
	Queries  []QuerySpec `yaml:"queries"`
	Negative []QuerySpec `yaml:"negative"`
}

// LoadQueries reads and checks an evaluation file.
func LoadQueries(path string) (*QueryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, docqaerrors.New(docqaerrors.ErrCodeFileNotFound,
			fmt.Sprintf("cannot read evaluation file %s", path), err)
	}

	var cfg QueryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, docqaerrors.New(docqaerrors.ErrCodeInvalidInput,
			fmt.Sprintf("invalid evaluation file %s", path), err)
	}

	for i := range cfg.Negative {
		cfg.Negative[i].Negative = true
	}
	for i, spec := range cfg.Queries {
		if spec.Question == "" {
			return nil, docqaerrors.Newf(docqaerrors.ErrCodeInvalidInput,
				"query %d (%s) has no question", i+1, spec.ID)
		}
		if len(spec.Expected) == 0 {
			return nil, docqaerrors.Newf(docqaerrors.ErrCodeInvalidInput,
				"query %d (%s) has no expected passage", i+1, spec.ID).
				WithSuggestion("Move cases without an expected answer under 'negative'")
		}
	}
	if len(cfg.Queries)+len(cfg.Negative) == 0 {
		return nil, docqaerrors.Newf(docqaerrors.ErrCodeInvalidInput,
			"evaluation file %s has no queries", path)
	}
	return &cfg, nil
}

// Querier answers questions. *service.Service satisfies it.
type Querier interface {
	Query(ctx context.Context, text string, opts search.Options) ([]search.Result, error)
}

// TestResult is the outcome of one case.
type TestResult struct {
	Spec       QuerySpec `json:"spec"`
	Passed     bool      `json:"passed"`
	DurationMS int64     `json:"duration_ms"`
	TopResults []string  `json:"top_results"` // "filename:page" of each result
	MatchedAt  int       `json:"matched_at"`  // 1-based rank of the first match, 0 if none
	Error      string    `json:"error,omitempty"`
}

// ValidationResult summarizes a run.
type ValidationResult struct {
	Timestamp time.Time    `json:"timestamp"`
	Queries   []TestResult `json:"queries"`
	Negative  []TestResult `json:"negative"`
	Passed    int          `json:"passed"`
	Total     int          `json:"total"`
	NegPass   int          `json:"negative_passed"`
	NegTotal  int          `json:"negative_total"`
	// MRR is the mean reciprocal rank of the first match over Queries.
	MRR float64 `json:"mrr"`
}

// HitRate returns the share of positive cases that passed.
func (r *ValidationResult) HitRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total)
}

// AllPassed reports whether every case passed.
func (r *ValidationResult) AllPassed() bool {
	return r.Passed == r.Total && r.NegPass == r.NegTotal
}

// Validator runs evaluation cases against a Querier.
type Validator struct {
	querier Querier
	opts    search.Options
}

// NewValidator creates a validator that queries with opts.
func NewValidator(q Querier, opts search.Options) *Validator {
	return &Validator{querier: q, opts: opts}
}

// RunQuery executes one case.
func (v *Validator) RunQuery(ctx context.Context, spec QuerySpec) TestResult {
	start := time.Now()
	results, err := v.querier.Query(ctx, spec.Question, v.opts)
	result := TestResult{
		Spec:       spec,
		DurationMS: time.Since(start).Milliseconds(),
		TopResults: make([]string, 0, len(results)),
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	for _, r := range results {
		result.TopResults = append(result.TopResults, fmt.Sprintf("%s:%d", r.Filename, r.Page))
	}
	if spec.Negative {
		result.Passed = true
		return result
	}
	result.MatchedAt = firstMatch(results, spec.Expected)
	result.Passed = result.MatchedAt > 0
	return result
}

// RunAll executes every case in cfg.
func (v *Validator) RunAll(ctx context.Context, cfg *QueryConfig) (*ValidationResult, error) {
	result := &ValidationResult{
		Timestamp: time.Now(),
		Queries:   []TestResult{},
		Negative:  []TestResult{},
	}

	var rr float64
	for _, spec := range cfg.Queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tr := v.RunQuery(ctx, spec)
		result.Queries = append(result.Queries, tr)
		result.Total++
		if tr.Passed {
			result.Passed++
			rr += 1 / float64(tr.MatchedAt)
		}
	}
	if result.Total > 0 {
		result.MRR = rr / float64(result.Total)
	}

	for _, spec := range cfg.Negative {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tr := v.RunQuery(ctx, spec)
		result.Negative = append(result.Negative, tr)
		result.NegTotal++
		if tr.Passed {
			result.NegPass++
		}
	}

	return result, nil
}

func firstMatch(results []search.Result, expected []Expectation) int {
	for i, r := range results {
		for _, e := range expected {
			if e.Matches(r) {
				return i + 1
			}
		}
	}
	return 0
}

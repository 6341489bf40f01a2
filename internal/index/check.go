package index

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
)

// unitTolerance is how far a dense row's norm may drift from 1.
const unitTolerance = 1e-3

// InconsistencyType categorizes detected issues.
type InconsistencyType int

const (
	// InconsistencyRowCount indicates matrix row counts differ from the chunk count.
	InconsistencyRowCount InconsistencyType = iota
	// InconsistencyDimension indicates a dense row of the wrong width.
	InconsistencyDimension
	// InconsistencyNotUnit indicates a dense row that is neither unit length nor zero.
	InconsistencyNotUnit
	// InconsistencyColumn indicates a lexical column outside the vocabulary or out of order.
	InconsistencyColumn
	// InconsistencyModel indicates a missing lexical model.
	InconsistencyModel
)

// String returns a human-readable description of the inconsistency type.
func (t InconsistencyType) String() string {
	switch t {
	case InconsistencyRowCount:
		return "row_count"
	case InconsistencyDimension:
		return "dimension"
	case InconsistencyNotUnit:
		return "not_unit"
	case InconsistencyColumn:
		return "column"
	case InconsistencyModel:
		return "model"
	default:
		return "unknown"
	}
}

// Inconsistency represents one detected issue. Row is -1 for index-wide issues.
type Inconsistency struct {
	Type    InconsistencyType
	Row     int
	Details string
}

// CheckResult contains the outcome of a consistency check.
type CheckResult struct {
	// Checked is the number of rows verified.
	Checked int
	// Inconsistencies contains all detected issues.
	Inconsistencies []Inconsistency
}

// OK reports whether no inconsistencies were found.
func (r *CheckResult) OK() bool {
	return len(r.Inconsistencies) == 0
}

// Check verifies the join-key invariant and row shapes. It is O(rows x dims).
func (idx *Index) Check() *CheckResult {
	result := &CheckResult{}
	add := func(t InconsistencyType, row int, format string, args ...any) {
		result.Inconsistencies = append(result.Inconsistencies, Inconsistency{
			Type:    t,
			Row:     row,
			Details: fmt.Sprintf(format, args...),
		})
	}

	if idx.Lexical == nil {
		add(InconsistencyModel, -1, "lexical model is missing")
	}

	n := len(idx.Chunks)
	if len(idx.LexicalMatrix) != n || len(idx.DenseMatrix) != n {
		add(InconsistencyRowCount, -1, "chunks=%d lexical_rows=%d dense_rows=%d",
			n, len(idx.LexicalMatrix), len(idx.DenseMatrix))
		return result
	}

	vocab := 0
	if idx.Lexical != nil {
		vocab = idx.Lexical.VocabularySize()
	}

	for i := 0; i < n; i++ {
		result.Checked++

		row := idx.DenseMatrix[i]
		if len(row) != idx.Dimensions {
			add(InconsistencyDimension, i, "width %d, want %d", len(row), idx.Dimensions)
		} else if norm := l2(row); norm != 0 && math.Abs(norm-1) > unitTolerance {
			add(InconsistencyNotUnit, i, "norm %.6f", norm)
		}

		lex := idx.LexicalMatrix[i]
		if len(lex.Indices) != len(lex.Values) {
			add(InconsistencyColumn, i, "%d indices for %d values", len(lex.Indices), len(lex.Values))
			continue
		}
		for k, col := range lex.Indices {
			if col < 0 || int(col) >= vocab || (k > 0 && col <= lex.Indices[k-1]) {
				add(InconsistencyColumn, i, "column %d invalid for vocabulary of %d", col, vocab)
				break
			}
		}
	}

	return result
}

// Validate returns an ERR_503_INDEX_INCONSISTENT error when Check finds problems.
func (idx *Index) Validate() error {
	result := idx.Check()
	if result.OK() {
		return nil
	}

	const shown = 5
	var parts []string
	for i, inc := range result.Inconsistencies {
		if i == shown {
			parts = append(parts, fmt.Sprintf("and %d more", len(result.Inconsistencies)-shown))
			break
		}
		if inc.Row >= 0 {
			parts = append(parts, fmt.Sprintf("row %d %s: %s", inc.Row, inc.Type, inc.Details))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", inc.Type, inc.Details))
		}
	}

	return docqaerrors.New(docqaerrors.ErrCodeIndexInconsistent,
		"index failed consistency check: "+strings.Join(parts, "; "), nil).
		WithDetail("issues", strconv.Itoa(len(result.Inconsistencies))).
		WithSuggestion("Rebuild the index with 'docqa index'")
}

func l2(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

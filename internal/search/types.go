// Package search implements the hybrid query engine.
//
// A query is scored against every chunk twice: cosine similarity of TF-IDF
// rows (lexical) and dot product of unit embeddings (semantic). Each score
// vector is min-max normalized, the two are blended with weight alpha, and
// the top k_base chunks by blended score form the candidate set. The
// candidates are then re-ranked by raw semantic score and the first k_final
// are returned.
package search

import "errors"

// Default query parameters.
const (
	DefaultKBase  = 20
	DefaultKFinal = 5
	DefaultAlpha  = 0.3
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Options configures one query. Zero values mean "use the default";
// Alpha is a pointer so that an explicit 0 (pure semantic) can be asked for.
type Options struct {
	KBase  int      `json:"k_base,omitempty"`
	KFinal int      `json:"k_final,omitempty"`
	Alpha  *float64 `json:"alpha,omitempty"`

	// Explain fills Result.Explain for every returned result.
	Explain bool `json:"explain,omitempty"`
}

// Result is one ranked passage with its attribution and scores.
type Result struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Page     int    `json:"page"`

	// HybridScore is the blended score the candidate set was chosen by.
	HybridScore float64 `json:"hybrid_score"`
	// SemanticScore is the raw cosine similarity used for the final order.
	SemanticScore float64 `json:"semantic_score"`
	// ChunkIndex is the chunk's position in the index it came from.
	ChunkIndex int `json:"chunk_index"`

	Explain *Explain `json:"explain,omitempty"`
}

// Explain exposes the intermediate scores of a result.
type Explain struct {
	LexicalScore      float64 `json:"lexical_score"`
	LexicalNormalized float64 `json:"lexical_normalized"`
	SemanticNormalized float64 `json:"semantic_normalized"`
	CandidateRank     int     `json:"candidate_rank"`
	Candidates        int     `json:"candidates"`
	Alpha             float64 `json:"alpha"`
}

// Float64 returns a pointer to v, for Options.Alpha literals.
func Float64(v float64) *float64 {
	return &v
}

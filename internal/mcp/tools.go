package mcp

import (
	"time"

	"github.com/Aman-CERP/docqa/internal/docs"
	"github.com/Aman-CERP/docqa/internal/history"
)

// AskInput defines the input schema for the ask tool.
type AskInput struct {
	Question string   `json:"question" jsonschema:"the question to answer from the indexed documents"`
	KBase    int      `json:"k_base,omitempty" jsonschema:"size of the candidate set chosen by the blended score, default 20"`
	KFinal   int      `json:"k_final,omitempty" jsonschema:"number of passages returned, at most k_base, default 5"`
	Alpha    *float64 `json:"alpha,omitempty" jsonschema:"weight of the lexical score between 0 and 1, default 0.3"`
}

// AskOutput defines the output schema for the ask tool.
type AskOutput struct {
	Results []PassageOutput `json:"results" jsonschema:"passages ordered by semantic similarity"`
}

// PassageOutput is one retrieved passage.
type PassageOutput struct {
	Text          string  `json:"text" jsonschema:"passage text"`
	Filename      string  `json:"filename" jsonschema:"source PDF file name"`
	Title         string  `json:"title" jsonschema:"document title"`
	Page          int     `json:"page" jsonschema:"1-based page number"`
	HybridScore   float64 `json:"hybrid_score" jsonschema:"blended lexical and semantic score between 0 and 1"`
	SemanticScore float64 `json:"semantic_score" jsonschema:"cosine similarity used for the final order"`
}

// ListDocumentsInput defines the input schema for the list_documents tool (no parameters).
type ListDocumentsInput struct{}

// ListDocumentsOutput defines the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents" jsonschema:"PDF files in the docs directory"`
}

// DocumentOutput describes one PDF file.
type DocumentOutput struct {
	Filename string  `json:"filename"`
	SizeKB   float64 `json:"size_kb"`
	Modified string  `json:"modified" jsonschema:"modification time, RFC 3339"`
}

// ReindexInput defines the input schema for the reindex tool (no parameters).
type ReindexInput struct{}

// ReindexOutput defines the output schema for the reindex tool.
type ReindexOutput struct {
	ChunkCount int `json:"chunk_count" jsonschema:"number of passages in the rebuilt index"`
}

// IndexStatusInput defines the input schema for the index_status tool (no parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	Chunks         int           `json:"chunks"`
	Documents      int           `json:"documents"`
	Vocabulary     int           `json:"vocabulary"`
	EmbeddingModel string        `json:"embedding_model"`
	Dimensions     int           `json:"dimensions"`
	BuiltAt        string        `json:"built_at,omitempty"`
	RecentBuilds   []BuildOutput `json:"recent_builds"`
}

// BuildOutput summarizes one recorded rebuild.
type BuildOutput struct {
	StartedAt  string `json:"started_at"`
	Trigger    string `json:"trigger"`
	Status     string `json:"status"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toDocuments(list []docs.Info) []DocumentOutput {
	out := make([]DocumentOutput, 0, len(list))
	for _, d := range list {
		out = append(out, DocumentOutput{Filename: d.Filename, SizeKB: d.SizeKB, Modified: formatTime(d.Modified)})
	}
	return out
}

func toBuilds(builds []history.Build) []BuildOutput {
	out := make([]BuildOutput, 0, len(builds))
	for _, b := range builds {
		out = append(out, BuildOutput{
			StartedAt:  formatTime(b.StartedAt),
			Trigger:    b.Trigger,
			Status:     string(b.Status),
			Documents:  b.Documents,
			Chunks:     b.Chunks,
			DurationMS: b.Duration.Milliseconds(),
			Error:      b.Error,
		})
	}
	return out
}

package embed

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
)

// Common embedding constants
const (
	// MinBatchSize is the minimum allowed batch size
	MinBatchSize = 1

	// MaxBatchSize is the maximum allowed batch size (prevents memory exhaustion)
	MaxBatchSize = 256

	// DefaultBatchSize is the default batch size for embedding requests
	DefaultBatchSize = 32

	// DefaultTimeout is the per-request timeout for embedding calls
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts
	DefaultMaxRetries = 3
)

// Static embedder constants
const (
	// StaticDimensions is the embedding dimension for the static embedder
	StaticDimensions = 384
)

// Embedder generates unit-length vector embeddings for text.
// Implementations must be safe for concurrent use: one instance is shared
// by every query and every rebuild.
type Embedder interface {
	// Embed generates embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, one row per text
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	// Close releases resources
	Close() error
}

// ExecutionTarget selects where model inference runs. It is resolved once
// at startup and never changes for the life of the process.
type ExecutionTarget string

const (
	// TargetAccelerated lets the backend offload to a GPU when it has one.
	TargetAccelerated ExecutionTarget = "accelerated"

	// TargetStandard forces CPU inference.
	TargetStandard ExecutionTarget = "standard"
)

// ParseExecutionTarget validates s. Empty means accelerated.
func ParseExecutionTarget(s string) (ExecutionTarget, error) {
	switch ExecutionTarget(strings.ToLower(strings.TrimSpace(s))) {
	case "", TargetAccelerated:
		return TargetAccelerated, nil
	case TargetStandard:
		return TargetStandard, nil
	default:
		return "", docqaerrors.New(docqaerrors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown execution target %q", s), nil).
			WithSuggestion("Use 'accelerated' or 'standard'")
	}
}

// Normalize scales v to unit length in place and returns it.
// A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	for i, val := range v {
		v[i] = float32(float64(val) / magnitude)
	}
	return v
}

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func closedError() error {
	return docqaerrors.New(docqaerrors.ErrCodeEmbedderUnavailable, "embedder is closed", nil)
}

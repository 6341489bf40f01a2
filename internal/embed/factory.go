package embed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/docqa/internal/config"
	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
)

// ProviderType represents an embedding provider
type ProviderType string

const (
	// ProviderOllama uses Ollama's HTTP API for embeddings
	ProviderOllama ProviderType = "ollama"

	// ProviderStatic uses hash-based embeddings. It is not a trained model;
	// use it offline or in tests only.
	ProviderStatic ProviderType = "static"
)

// ParseProvider converts a string to ProviderType. An empty name selects
// Ollama. Unknown names are an error; there is no silent fallback between
// providers.
func ParseProvider(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ollama":
		return ProviderOllama, nil
	case "static":
		return ProviderStatic, nil
	default:
		return "", docqaerrors.New(docqaerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown embeddings provider %q", s), nil).
			WithSuggestion("Use one of: " + strings.Join(ValidProviders(), ", "))
	}
}

// String returns the string representation of ProviderType
func (p ProviderType) String() string {
	return string(p)
}

// ValidProviders returns all valid provider names
func ValidProviders() []string {
	return []string{string(ProviderOllama), string(ProviderStatic)}
}

// NewFromConfig builds the embedder described by cfg, wrapped in an LRU
// cache unless CacheSize is negative. The execution target is parsed here,
// once, and fixed for the embedder's lifetime.
func NewFromConfig(ctx context.Context, cfg config.EmbeddingsConfig, logger *slog.Logger) (Embedder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	target, err := ParseExecutionTarget(cfg.ExecutionTarget)
	if err != nil {
		return nil, err
	}

	var embedder Embedder
	switch provider {
	case ProviderOllama:
		ocfg := DefaultOllamaConfig()
		if cfg.OllamaHost != "" {
			ocfg.Host = cfg.OllamaHost
		}
		if cfg.Model != "" {
			ocfg.Model = cfg.Model
		}
		if cfg.BatchSize > 0 {
			ocfg.BatchSize = cfg.BatchSize
		}
		if d := config.Duration(cfg.Timeout); d > 0 {
			ocfg.Timeout = d
		}
		ocfg.Target = target

		embedder, err = NewOllamaEmbedder(ctx, ocfg, logger)
		if err != nil {
			return nil, err
		}
	default:
		// Hashing runs on the CPU whatever the target says.
		embedder = NewStaticEmbedder()
		logger.Info("embedder_ready",
			slog.String("provider", string(ProviderStatic)),
			slog.Int("dimensions", embedder.Dimensions()),
			slog.String("execution_target", string(target)))
	}

	if cfg.CacheSize < 0 {
		return embedder, nil
	}
	return NewCachedEmbedder(embedder, cfg.CacheSize), nil
}

// EmbedderInfo contains information about an embedder
type EmbedderInfo struct {
	Provider   ProviderType `json:"provider"`
	Model      string       `json:"model"`
	Dimensions int          `json:"dimensions"`
	Available  bool         `json:"available"`
}

// GetInfo returns information about an embedder
func GetInfo(ctx context.Context, embedder Embedder) EmbedderInfo {
	info := EmbedderInfo{
		Provider:   ProviderStatic,
		Model:      embedder.ModelName(),
		Dimensions: embedder.Dimensions(),
		Available:  embedder.Available(ctx),
	}

	inner := embedder
	if cached, ok := embedder.(*CachedEmbedder); ok {
		inner = cached.Inner()
	}
	if _, ok := inner.(*OllamaEmbedder); ok {
		info.Provider = ProviderOllama
	}
	return info
}

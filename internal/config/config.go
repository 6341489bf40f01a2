package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
)

const (
	// ProjectConfigName is the project-level configuration file name.
	ProjectConfigName = ".docqa.yaml"

	// DataDirName is the default directory, relative to the project root,
	// that holds the index blob, lock file and build history.
	DataDirName = ".docqa"
)

// Config represents the complete docqa configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Lexical    LexicalConfig    `yaml:"lexical" json:"lexical"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Query      QueryConfig      `yaml:"query" json:"query"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
}

// PathsConfig locates the source documents and the index data.
// Relative paths are resolved against the project root by Resolve.
type PathsConfig struct {
	DocsDir string `yaml:"docs_dir" json:"docs_dir"`
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// IndexPath returns the path of the persisted index blob.
func (p PathsConfig) IndexPath() string {
	return filepath.Join(p.DataDir, "index.bin")
}

// HistoryPath returns the path of the build history database.
func (p PathsConfig) HistoryPath() string {
	return filepath.Join(p.DataDir, "history.db")
}

// ChunkingConfig configures sentence-aware chunking.
type ChunkingConfig struct {
	// MaxChars is the soft upper bound of a chunk, in characters.
	MaxChars int `yaml:"max_chars" json:"max_chars"`
	// Language selects the sentence boundary model (spanish, english).
	Language string `yaml:"language" json:"language"`
}

// LexicalConfig configures the TF-IDF model.
type LexicalConfig struct {
	MaxFeatures    int `yaml:"max_features" json:"max_features"`
	MinTokenLength int `yaml:"min_token_length" json:"min_token_length"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`

	// ExecutionTarget is resolved once at startup: accelerated or standard.
	ExecutionTarget string `yaml:"execution_target" json:"execution_target"`

	BatchSize int    `yaml:"batch_size" json:"batch_size"`
	CacheSize int    `yaml:"cache_size" json:"cache_size"`
	Timeout   string `yaml:"timeout" json:"timeout"`
}

// QueryConfig holds the default hybrid query parameters.
// Alpha is a pointer so an explicit 0 (pure semantic fusion) survives merging.
type QueryConfig struct {
	KBase  int      `yaml:"k_base" json:"k_base"`
	KFinal int      `yaml:"k_final" json:"k_final"`
	Alpha  *float64 `yaml:"alpha" json:"alpha"`
}

// AlphaValue returns the configured alpha or the default.
func (q QueryConfig) AlphaValue() float64 {
	if q.Alpha == nil {
		return DefaultAlpha
	}
	return *q.Alpha
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string `yaml:"addr" json:"addr"`
	MaxUploadMB  int    `yaml:"max_upload_mb" json:"max_upload_mb"`
	ReadTimeout  string `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`
	LogLevel     string `yaml:"log_level" json:"log_level"`

	// RateLimit is the sustained /ask rate in requests per second.
	// 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	Burst     int     `yaml:"burst" json:"burst"`
}

// WatchConfig configures automatic reindexing on docs directory changes.
type WatchConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Debounce string `yaml:"debounce" json:"debounce"`
}

// Defaults shared with the query engine.
const (
	DefaultKBase    = 20
	DefaultKFinal   = 5
	DefaultAlpha    = 0.3
	DefaultMaxChars = 500
)

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	alpha := DefaultAlpha
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DocsDir: "docs",
			DataDir: DataDirName,
		},
		Chunking: ChunkingConfig{
			MaxChars: DefaultMaxChars,
			Language: "spanish",
		},
		Lexical: LexicalConfig{
			MaxFeatures:    20000,
			MinTokenLength: 2,
		},
		Embeddings: EmbeddingsConfig{
			Provider:        "ollama",
			Model:           "paraphrase-multilingual",
			OllamaHost:      "http://localhost:11434",
			ExecutionTarget: "accelerated",
			BatchSize:       32,
			CacheSize:       1024,
			Timeout:         "60s",
		},
		Query: QueryConfig{
			KBase:  DefaultKBase,
			KFinal: DefaultKFinal,
			Alpha:  &alpha,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8000",
			MaxUploadMB:  50,
			ReadTimeout:  "30s",
			WriteTimeout: "10m",
			LogLevel:     "info",
			RateLimit:    0,
			Burst:        10,
		},
		Watch: WatchConfig{
			Enabled:  false,
			Debounce: "2s",
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
// $XDG_CONFIG_HOME/docqa/config.yaml, or ~/.config/docqa/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docqa", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docqa", "config.yaml")
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}

	parsed, err := parseYAML(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	cfg := NewConfig()
	cfg.mergeWith(parsed)
	return cfg, nil
}

// Load loads configuration for the project rooted at dir.
// Sources apply in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/docqa/config.yaml)
//  3. Project config (.docqa.yaml in dir)
//  4. .env in dir (only for variables not already set)
//  5. Environment variables (DOCQA_*)
//
// Relative paths are resolved against dir and the result is validated.
func Load(dir string) (*Config, error) {
	return LoadWithFile(dir, "")
}

// LoadWithFile is Load with an explicit project config file in place of
// .docqa.yaml. An empty file falls back to Load's lookup. A named file that
// does not exist is an error.
func LoadWithFile(dir, file string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := LoadUserConfig(); err != nil {
		return nil, docqaerrors.ConfigError("failed to load user config", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if file != "" {
		if !fileExists(file) {
			return nil, docqaerrors.New(docqaerrors.ErrCodeConfigNotFound,
				fmt.Sprintf("config file %s not found", file), nil)
		}
		parsed, err := parseYAML(file)
		if err != nil {
			return nil, docqaerrors.ConfigError("failed to load config file", err)
		}
		cfg.mergeWith(parsed)
	} else if err := cfg.loadFromFile(dir); err != nil {
		return nil, docqaerrors.ConfigError("failed to load project config", err)
	}

	if envPath := filepath.Join(dir, ".env"); fileExists(envPath) {
		if err := godotenv.Load(envPath); err != nil {
			return nil, docqaerrors.ConfigError("failed to load .env", err)
		}
	}
	cfg.applyEnvOverrides()

	cfg.Resolve(dir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile merges .docqa.yaml (or .docqa.yml) from dir if present.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{ProjectConfigName, ".docqa.yml"} {
		path := filepath.Join(dir, name)
		if !fileExists(path) {
			continue
		}
		parsed, err := parseYAML(path)
		if err != nil {
			return err
		}
		c.mergeWith(parsed)
		return nil
	}
	return nil
}

// parseYAML decodes path into a zero Config so unset fields stay zero.
func parseYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &parsed, nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.DocsDir != "" {
		c.Paths.DocsDir = other.Paths.DocsDir
	}
	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}

	if other.Chunking.MaxChars != 0 {
		c.Chunking.MaxChars = other.Chunking.MaxChars
	}
	if other.Chunking.Language != "" {
		c.Chunking.Language = other.Chunking.Language
	}

	if other.Lexical.MaxFeatures != 0 {
		c.Lexical.MaxFeatures = other.Lexical.MaxFeatures
	}
	if other.Lexical.MinTokenLength != 0 {
		c.Lexical.MinTokenLength = other.Lexical.MinTokenLength
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.ExecutionTarget != "" {
		c.Embeddings.ExecutionTarget = other.Embeddings.ExecutionTarget
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}
	if other.Embeddings.Timeout != "" {
		c.Embeddings.Timeout = other.Embeddings.Timeout
	}

	if other.Query.KBase != 0 {
		c.Query.KBase = other.Query.KBase
	}
	if other.Query.KFinal != 0 {
		c.Query.KFinal = other.Query.KFinal
	}
	if other.Query.Alpha != nil {
		alpha := *other.Query.Alpha
		c.Query.Alpha = &alpha
	}

	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.MaxUploadMB != 0 {
		c.Server.MaxUploadMB = other.Server.MaxUploadMB
	}
	if other.Server.ReadTimeout != "" {
		c.Server.ReadTimeout = other.Server.ReadTimeout
	}
	if other.Server.WriteTimeout != "" {
		c.Server.WriteTimeout = other.Server.WriteTimeout
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.RateLimit != 0 {
		c.Server.RateLimit = other.Server.RateLimit
	}
	if other.Server.Burst != 0 {
		c.Server.Burst = other.Server.Burst
	}

	if other.Watch.Enabled {
		c.Watch.Enabled = true
	}
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
}

// applyEnvOverrides applies DOCQA_* environment variable overrides.
// Malformed numeric values are ignored and leave the previous value.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCQA_DOCS_DIR"); v != "" {
		c.Paths.DocsDir = v
	}
	if v := os.Getenv("DOCQA_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("DOCQA_MAX_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Chunking.MaxChars = n
		}
	}
	if v := os.Getenv("DOCQA_LANGUAGE"); v != "" {
		c.Chunking.Language = v
	}

	if v := os.Getenv("DOCQA_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	// DOCQA_EMBEDDER is an alias for DOCQA_EMBEDDINGS_PROVIDER
	if v := os.Getenv("DOCQA_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("DOCQA_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("DOCQA_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("DOCQA_EXECUTION_TARGET"); v != "" {
		c.Embeddings.ExecutionTarget = v
	}

	if v := os.Getenv("DOCQA_K_BASE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.KBase = n
		}
	}
	if v := os.Getenv("DOCQA_K_FINAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.KFinal = n
		}
	}
	if v := os.Getenv("DOCQA_ALPHA"); v != "" {
		if a, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			c.Query.Alpha = &a
		}
	}

	if v := os.Getenv("DOCQA_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DOCQA_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("DOCQA_RATE_LIMIT"); v != "" {
		if r, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			c.Server.RateLimit = r
		}
	}
	if v := os.Getenv("DOCQA_WATCH"); v != "" {
		c.Watch.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
}

// Resolve makes relative document and data paths absolute against root.
func (c *Config) Resolve(root string) {
	if c.Paths.DocsDir != "" && !filepath.IsAbs(c.Paths.DocsDir) {
		c.Paths.DocsDir = filepath.Join(root, c.Paths.DocsDir)
	}
	if c.Paths.DataDir != "" && !filepath.IsAbs(c.Paths.DataDir) {
		c.Paths.DataDir = filepath.Join(root, c.Paths.DataDir)
	}
}

// FindProjectRoot walks up from startDir looking for .docqa.yaml or a .git
// directory. Returns the absolute startDir if neither is found.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	current := absDir
	for {
		if fileExists(filepath.Join(current, ProjectConfigName)) ||
			fileExists(filepath.Join(current, ".docqa.yml")) ||
			dirExists(filepath.Join(current, ".git")) {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return absDir, nil
		}
		current = parent
	}
}

// Validate checks the configuration and returns a CONFIG error describing
// the first invalid field.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return docqaerrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if c.Paths.DocsDir == "" {
		return invalid("paths.docs_dir must not be empty")
	}
	if c.Paths.DataDir == "" {
		return invalid("paths.data_dir must not be empty")
	}

	if c.Chunking.MaxChars <= 0 {
		return invalid("chunking.max_chars must be positive, got %d", c.Chunking.MaxChars)
	}
	switch strings.ToLower(c.Chunking.Language) {
	case "spanish", "english":
	default:
		return invalid("chunking.language must be 'spanish' or 'english', got %q", c.Chunking.Language)
	}

	if c.Lexical.MaxFeatures <= 0 {
		return invalid("lexical.max_features must be positive, got %d", c.Lexical.MaxFeatures)
	}
	if c.Lexical.MinTokenLength <= 0 {
		return invalid("lexical.min_token_length must be positive, got %d", c.Lexical.MinTokenLength)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "static", "ollama":
	default:
		return invalid("embeddings.provider must be 'static' or 'ollama', got %q", c.Embeddings.Provider)
	}
	switch strings.ToLower(c.Embeddings.ExecutionTarget) {
	case "accelerated", "standard":
	default:
		return invalid("embeddings.execution_target must be 'accelerated' or 'standard', got %q", c.Embeddings.ExecutionTarget)
	}
	if c.Embeddings.BatchSize <= 0 {
		return invalid("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}
	if c.Embeddings.CacheSize < 0 {
		return invalid("embeddings.cache_size must be non-negative, got %d", c.Embeddings.CacheSize)
	}
	if _, err := time.ParseDuration(c.Embeddings.Timeout); err != nil {
		return invalid("embeddings.timeout is not a duration: %q", c.Embeddings.Timeout)
	}

	if c.Query.KBase < 1 {
		return invalid("query.k_base must be at least 1, got %d", c.Query.KBase)
	}
	if c.Query.KFinal < 1 || c.Query.KFinal > c.Query.KBase {
		return invalid("query.k_final must be between 1 and k_base (%d), got %d", c.Query.KBase, c.Query.KFinal)
	}
	if alpha := c.Query.AlphaValue(); math.IsNaN(alpha) || alpha < 0 || alpha > 1 {
		return invalid("query.alpha must be between 0 and 1, got %v", alpha)
	}

	if c.Server.MaxUploadMB <= 0 {
		return invalid("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	if c.Server.RateLimit < 0 || math.IsNaN(c.Server.RateLimit) {
		return invalid("server.rate_limit must not be negative, got %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.Burst < 1 {
		return invalid("server.burst must be at least 1 when rate_limit is set, got %d", c.Server.Burst)
	}
	for name, v := range map[string]string{
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
		"watch.debounce":       c.Watch.Debounce,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return invalid("%s is not a duration: %q", name, v)
		}
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("server.log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel)
	}

	return nil
}

// Duration parses a duration field that Validate has already checked.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Package ui renders index build progress: a bubbletea view on
// interactive terminals and plain lines everywhere else.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/docqa/internal/index"
)

// stages lists the build phases in the order the builder runs them.
var stages = []index.Stage{index.StageChunking, index.StageLexical, index.StageEmbedding}

// stageLabel returns the short tag used in plain output.
func stageLabel(s index.Stage) string {
	switch s {
	case index.StageChunking:
		return "CHUNK"
	case index.StageLexical:
		return "TFIDF"
	case index.StageEmbedding:
		return "EMBED"
	default:
		return "???"
	}
}

// stageUnit names what a stage counts.
func stageUnit(s index.Stage) string {
	if s == index.StageChunking {
		return "documents"
	}
	return "chunks"
}

// CompletionStats summarizes a finished build.
type CompletionStats struct {
	Documents int
	Chunks    int
	Duration  time.Duration
	Model     string
	Err       error
}

// Renderer displays build progress.
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// UpdateProgress records a builder event. It is safe to call from the
	// build goroutine.
	UpdateProgress(event index.ProgressEvent)

	// Complete shows the final summary.
	Complete(stats CompletionStats)

	// Stop releases the terminal.
	Stop() error
}

// Config configures the renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
	DocsDir    string // Shown in the TUI header

	// OnInterrupt is called when the user presses ctrl+c in the TUI.
	OnInterrupt func()
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithDocsDir sets the folder shown in the header.
func WithDocsDir(dir string) ConfigOption {
	return func(c *Config) {
		c.DocsDir = dir
	}
}

// WithInterrupt sets the ctrl+c callback.
func WithInterrupt(fn func()) ConfigOption {
	return func(c *Config) {
		c.OnInterrupt = fn
	}
}

// NewConfig creates a Config for output with the given options.
func NewConfig(output io.Writer, opts ...ConfigOption) Config {
	cfg := Config{Output: output}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewRenderer returns a TUI renderer for interactive terminals and a plain
// renderer for pipes, CI, or when plain output is forced.
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok && f != nil {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}

package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Aman-CERP/docqa/internal/index"
)

// PlainRenderer writes one line per stage change and per tenth of a stage.
type PlainRenderer struct {
	mu    sync.Mutex
	out   io.Writer
	stage index.Stage
	step  int // last tenth printed in the current stage
}

// NewPlainRenderer creates a plain text renderer.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output, step: -1}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(context.Context) error {
	return nil
}

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event index.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage != r.stage {
		r.stage = event.Stage
		r.step = -1
	}
	if event.Total <= 0 {
		return
	}
	step := event.Current * 10 / event.Total
	if step == r.step {
		return
	}
	r.step = step
	_, _ = fmt.Fprintf(r.out, "[%s] %d/%d %s\n",
		stageLabel(event.Stage), event.Current, event.Total, stageUnit(event.Stage))
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stats.Err != nil {
		_, _ = fmt.Fprintf(r.out, "Failed after %s: %v\n", stats.Duration.Round(time.Millisecond), stats.Err)
		return
	}
	_, _ = fmt.Fprintf(r.out, "Complete: %d documents, %d chunks in %s\n",
		stats.Documents, stats.Chunks, stats.Duration.Round(time.Millisecond))
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}

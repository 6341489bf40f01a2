package ui

import (
	"sync"
	"time"

	"github.com/Aman-CERP/docqa/internal/index"
)

// ProgressTracker keeps the state of the running build. It is safe for
// concurrent use.
type ProgressTracker struct {
	mu         sync.RWMutex
	stage      index.Stage
	current    int
	total      int
	startTime  time.Time
	stageStart time.Time
	done       map[index.Stage]time.Duration
}

// ProgressStats is a snapshot of the tracker.
type ProgressStats struct {
	Stage    index.Stage
	Current  int
	Total    int
	Progress float64
	ETA      time.Duration
	Elapsed  time.Duration
}

// NewProgressTracker creates a tracker starting now.
func NewProgressTracker() *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		startTime:  now,
		stageStart: now,
		done:       make(map[index.Stage]time.Duration),
	}
}

// Update records event, moving to a new stage when it changes.
func (p *ProgressTracker) Update(event index.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.Stage != p.stage {
		now := time.Now()
		if p.stage != "" {
			p.done[p.stage] = now.Sub(p.stageStart)
		}
		p.stage = event.Stage
		p.stageStart = now
	}
	p.current = event.Current
	p.total = event.Total
}

// StageDuration returns how long a finished stage took.
func (p *ProgressTracker) StageDuration(s index.Stage) (time.Duration, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.done[s]
	return d, ok
}

// Stats returns a snapshot of the current stage.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := ProgressStats{
		Stage:   p.stage,
		Current: p.current,
		Total:   p.total,
		Elapsed: time.Since(p.startTime),
	}
	if p.total > 0 {
		stats.Progress = min(float64(p.current)/float64(p.total), 1)
	}
	if p.current > 0 && p.current < p.total {
		perItem := time.Since(p.stageStart) / time.Duration(p.current)
		stats.ETA = perItem * time.Duration(p.total-p.current)
	}
	return stats
}

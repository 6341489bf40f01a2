package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Aman-CERP/docqa/internal/index"
)

// TUIRenderer draws progress with bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *buildModel
	tracker *ProgressTracker
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer. It fails when the output is not
// a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	tracker := NewProgressTracker()
	model := newBuildModel(tracker, cfg.DocsDir, GetStyles(cfg.NoColor || DetectNoColor()))
	model.onInterrupt = cfg.OnInterrupt

	return &TUIRenderer{
		cfg:     cfg,
		tracker: tracker,
		model:   model,
		done:    make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		return nil
	}
	r.program = tea.NewProgram(r.model, tea.WithOutput(r.cfg.Output), tea.WithContext(ctx))
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event index.ProgressEvent) {
	r.tracker.Update(event)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(progressMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer. It waits briefly for the final frame.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()
	if program == nil {
		return nil
	}

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		program.Quit()
		<-r.done
	}
	return nil
}

type (
	progressMsg index.ProgressEvent
	completeMsg CompletionStats
	tickMsg     time.Time
)

// buildModel is the bubbletea model for a running build.
type buildModel struct {
	tracker     *ProgressTracker
	docsDir     string
	styles      Styles
	spinner     spinner.Model
	bar         progress.Model
	width       int
	complete    bool
	interrupted bool
	stats       CompletionStats
	onInterrupt func()
}

func newBuildModel(tracker *ProgressTracker, docsDir string, styles Styles) *buildModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Active

	return &buildModel{
		tracker: tracker,
		docsDir: docsDir,
		styles:  styles,
		spinner: s,
		bar: progress.New(
			progress.WithSolidFill(ColorLime),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		width: 80,
	}
}

// Init implements tea.Model.
func (m *buildModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *buildModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.interrupted = true
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(msg.Width-30, 20)

	case completeMsg:
		m.complete = true
		m.stats = CompletionStats(msg)
		return m, tea.Quit

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *buildModel) View() string {
	if m.interrupted {
		return "Cancelled.\n"
	}
	if m.complete {
		return m.renderComplete()
	}

	stats := m.tracker.Stats()
	title := "docqa index"
	if m.docsDir != "" {
		title += " • " + m.docsDir
	}

	lines := []string{
		m.styles.Header.Render(title),
		m.renderStages(stats.Stage),
		"",
	}
	if stats.Total > 0 {
		lines = append(lines, fmt.Sprintf("%s %s %d/%d %s",
			m.spinner.View(), m.bar.ViewAs(stats.Progress), stats.Current, stats.Total, stageUnit(stats.Stage)))
	} else {
		lines = append(lines, m.spinner.View()+" "+m.styles.Label.Render("reading documents"))
	}
	footer := "elapsed " + formatDuration(stats.Elapsed)
	if stats.ETA > 0 {
		footer += "  eta " + formatDuration(stats.ETA)
	}
	lines = append(lines, m.styles.Dim.Render(footer))

	return m.styles.Panel.Render(strings.Join(lines, "\n")) + "\n"
}

// renderStages shows each stage as done, active, or pending.
func (m *buildModel) renderStages(current index.Stage) string {
	parts := make([]string, 0, len(stages))
	reached := current == ""
	for _, s := range stages {
		switch {
		case s == current:
			parts = append(parts, m.styles.Active.Render("● "+string(s)))
			reached = true
		case !reached:
			label := "✓ " + string(s)
			if d, ok := m.tracker.StageDuration(s); ok {
				label += " " + formatDuration(d)
			}
			parts = append(parts, m.styles.Success.Render(label))
		default:
			parts = append(parts, m.styles.Dim.Render("○ "+string(s)))
		}
	}
	return strings.Join(parts, m.styles.Dim.Render("  →  "))
}

func (m *buildModel) renderComplete() string {
	if m.stats.Err != nil {
		return m.styles.Error.Render(fmt.Sprintf("✗ Build failed after %s: %v",
			formatDuration(m.stats.Duration), m.stats.Err)) + "\n"
	}
	summary := fmt.Sprintf("✓ %d documents, %d chunks in %s",
		m.stats.Documents, m.stats.Chunks, formatDuration(m.stats.Duration))
	if m.stats.Model != "" {
		summary += m.styles.Label.Render(" (" + m.stats.Model + ")")
	}
	return m.styles.Success.Render(summary) + "\n"
}

// formatDuration renders d as 850ms, 12.3s, or 2m05s.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		return fmt.Sprintf("%dm%02ds", m, s)
	}
}

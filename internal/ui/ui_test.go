package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/docqa/internal/index"
)

func TestStageLabels(t *testing.T) {
	tests := []struct {
		stage index.Stage
		label string
		unit  string
	}{
		{index.StageChunking, "CHUNK", "documents"},
		{index.StageLexical, "TFIDF", "chunks"},
		{index.StageEmbedding, "EMBED", "chunks"},
		{index.Stage("other"), "???", "chunks"},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			assert.Equal(t, tt.label, stageLabel(tt.stage))
			assert.Equal(t, tt.unit, stageUnit(tt.stage))
		})
	}
}

func TestIsTTY(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}

func TestNewConfig_WithOptions(t *testing.T) {
	called := false
	cfg := NewConfig(&bytes.Buffer{},
		WithForcePlain(true),
		WithNoColor(true),
		WithDocsDir("docs"),
		WithInterrupt(func() { called = true }))

	assert.True(t, cfg.ForcePlain)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, "docs", cfg.DocsDir)
	cfg.OnInterrupt()
	assert.True(t, called)
}

func TestNewRenderer_FallsBackToPlain(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"forced", NewConfig(&bytes.Buffer{}, WithForcePlain(true))},
		{"non tty", NewConfig(&bytes.Buffer{})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := NewRenderer(tt.cfg).(*PlainRenderer)
			assert.True(t, ok)
		})
	}
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}

func TestDetectCI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, DetectCI())
}

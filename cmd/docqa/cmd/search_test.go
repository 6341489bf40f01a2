package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/search"
)

type searchJSON struct {
	Results []search.Result `json:"results"`
}

func TestSearchCmd_NoIndex(t *testing.T) {
	setupProject(t)

	_, err := runCLI(t, "search", "factura")

	require.Error(t, err)
	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeIndexNotFound))
	de, ok := docqaerrors.As(err)
	require.True(t, ok)
	assert.Contains(t, de.Suggestion, "docqa index")
}

func TestSearchCmd_JSON(t *testing.T) {
	// Given: an indexed project
	setupProject(t)
	mustRun(t, "index")

	// When: searching with JSON output
	got := decodeJSON[searchJSON](t, mustRun(t, "search", "quien", "paga", "la", "factura", "--format", "json"))

	// Then: passages come back with attribution, best semantic score first
	require.NotEmpty(t, got.Results)
	assert.LessOrEqual(t, len(got.Results), 5)
	for i, r := range got.Results {
		assert.Equal(t, "contrato.pdf", r.Filename)
		assert.Equal(t, "Contrato de servicios", r.Title)
		assert.Contains(t, []int{1, 2}, r.Page)
		assert.Nil(t, r.Explain)
		if i > 0 {
			assert.GreaterOrEqual(t, got.Results[i-1].SemanticScore, r.SemanticScore)
		}
	}
	assert.Equal(t, 1, got.Results[0].Page)
}

func TestSearchCmd_Flags(t *testing.T) {
	setupProject(t)
	mustRun(t, "index")

	t.Run("k-final limits results", func(t *testing.T) {
		got := decodeJSON[searchJSON](t, mustRun(t, "search", "factura", "-n", "1", "-f", "json"))
		assert.Len(t, got.Results, 1)
	})

	t.Run("explain adds the score breakdown", func(t *testing.T) {
		got := decodeJSON[searchJSON](t, mustRun(t, "search", "factura", "--explain", "--alpha", "0.5", "-f", "json"))
		require.NotEmpty(t, got.Results)
		require.NotNil(t, got.Results[0].Explain)
		assert.InDelta(t, 0.5, got.Results[0].Explain.Alpha, 1e-9)
	})

	t.Run("text output", func(t *testing.T) {
		out := mustRun(t, "search", "factura")
		assert.Contains(t, out, "Contrato de servicios (contrato.pdf)")
		assert.Contains(t, out, "p. 1")
		assert.Contains(t, out, "semantic")
	})
}

func TestSearchCmd_InvalidInput(t *testing.T) {
	setupProject(t)
	mustRun(t, "index")

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"alpha above one", []string{"--alpha", "1.5"}, docqaerrors.ErrCodeInvalidQuery},
		{"negative alpha", []string{"--alpha=-0.1"}, docqaerrors.ErrCodeInvalidQuery},
		{"explicit zero k-final", []string{"--k-final", "0"}, docqaerrors.ErrCodeInvalidQuery},
		{"explicit zero k-base", []string{"--k-base", "0"}, docqaerrors.ErrCodeInvalidQuery},
		{"k-final above k-base", []string{"--k-base", "2", "--k-final", "3"}, docqaerrors.ErrCodeInvalidQuery},
		{"unknown format", []string{"--format", "xml"}, docqaerrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"search", "factura"}, tt.args...)
			_, err := runCLI(t, args...)
			require.Error(t, err)
			assert.True(t, docqaerrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestSearchCmd_ConfigFlag(t *testing.T) {
	// Given: an indexed project and an alternative config with k_final 1
	root := setupProject(t)
	mustRun(t, "index")
	alt := filepath.Join(root, "alt.yaml")
	writeFile(t, alt, "chunking:\n  max_chars: 80\nquery:\n  k_final: 1\n")

	// When: searching with --config
	got := decodeJSON[searchJSON](t, mustRun(t, "--config", alt, "search", "factura", "-f", "json"))

	// Then: the alternative query defaults apply
	assert.Len(t, got.Results, 1)
}

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docqa/internal/config"
	"github.com/Aman-CERP/docqa/internal/extract/extracttest"
)

var contratoPages = []string{
	"El cliente paga la factura dentro de treinta dias. El proveedor emite la factura al final de cada mes.",
	"El contrato dura un ano. Cualquiera de las partes puede terminarlo con aviso previo.",
}

// setupProject creates a project in a temp dir holding .docqa.yaml and
// docs/contrato.pdf, makes it the working directory, and isolates the
// home, user config and DOCQA_* environment. It returns the project root.
func setupProject(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, name := range []string{
		"DOCQA_DOCS_DIR", "DOCQA_DATA_DIR", "DOCQA_MAX_CHARS", "DOCQA_LANGUAGE",
		"DOCQA_EMBEDDER", "DOCQA_EMBEDDINGS_MODEL", "DOCQA_K_BASE", "DOCQA_K_FINAL",
		"DOCQA_ALPHA", "DOCQA_ADDR", "DOCQA_LOG_LEVEL", "DOCQA_WATCH",
	} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	t.Setenv("DOCQA_EMBEDDINGS_PROVIDER", "static")

	root := t.TempDir()
	writeFile(t, filepath.Join(root, config.ProjectConfigName), "chunking:\n  max_chars: 80\n")
	require.NoError(t, extracttest.WritePDF(
		filepath.Join(root, "docs", "contrato.pdf"), "Contrato de servicios", contratoPages...))

	t.Chdir(root)
	return root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// runCLI executes the root command with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// mustRun is runCLI for commands expected to succeed.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	require.NoError(t, err, "docqa %v: %s", args, out)
	return out
}

func decodeJSON[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(s), &v), s)
	return v
}

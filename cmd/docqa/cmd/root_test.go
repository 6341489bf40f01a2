package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/pkg/version"
)

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: a root command

	// When: executing with --help
	out, err := runCLI(t, "--help")

	// Then: usage lists the subcommands
	require.NoError(t, err)
	for _, sub := range []string{"index", "search", "serve", "docs", "config", "doctor", "logs", "eval", "version"} {
		assert.Contains(t, out, sub)
	}
	assert.Contains(t, out, "--config")
	assert.Contains(t, out, "--debug")
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := runCLI(t, "--version")

	require.NoError(t, err)
	assert.Equal(t, "docqa version "+version.Version+"\n", out)
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	_, err := runCLI(t, "frobnicate")

	assert.Error(t, err)
}

func TestRootCmd_MissingConfigFile(t *testing.T) {
	// Given: a project and a --config path that does not exist
	setupProject(t)

	// When: running any command that loads config
	_, err := runCLI(t, "--config", "missing.yaml", "config", "show")

	// Then: it fails with a config-not-found error
	require.Error(t, err)
	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeConfigNotFound))
}

func TestRootCmd_ProfileFlags(t *testing.T) {
	// Given: profile outputs in a temp dir
	dir := t.TempDir()
	cpu := filepath.Join(dir, "cpu.prof")
	heap := filepath.Join(dir, "heap.prof")

	// When: running a command with profiling on
	mustRun(t, "--profile-cpu", cpu, "--profile-mem", heap, "version", "--short")

	// Then: both profiles were flushed
	for _, path := range []string{cpu, heap} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

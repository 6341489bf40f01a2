package docs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReindexer struct {
	calls atomic.Int32
	count int
	err   error
}

func (f *fakeReindexer) Reindex(context.Context) (int, error) {
	f.calls.Add(1)
	return f.count, f.err
}

func newTestManager(t *testing.T, opts ...Option) (*Manager, *fakeReindexer) {
	t.Helper()
	r := &fakeReindexer{count: 7}
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	m, err := NewManager(filepath.Join(t.TempDir(), "docs"), r, opts...)
	require.NoError(t, err)
	return m, r
}

func TestNewManager_RequiresDependencies(t *testing.T) {
	_, err := NewManager("", &fakeReindexer{})
	assert.Error(t, err)
	_, err = NewManager(t.TempDir(), nil)
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	// Given: a directory with two PDFs, a text file and a subdirectory
	m, _ := newTestManager(t)
	require.NoError(t, os.MkdirAll(filepath.Join(m.Dir(), "sub.pdf"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "b.pdf"), make([]byte, 1536), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "A.PDF"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "notes.txt"), []byte("x"), 0o644))

	// When: listing
	infos, err := m.List()

	// Then: only regular PDFs appear, sorted, with sizes in KB
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "A.PDF", infos[0].Filename)
	assert.Equal(t, 0.1, infos[0].SizeKB)
	assert.Equal(t, "b.pdf", infos[1].Filename)
	assert.Equal(t, 1.5, infos[1].SizeKB)
	assert.WithinDuration(t, time.Now(), infos[1].Modified, time.Minute)
}

func TestList_MissingDirectory(t *testing.T) {
	m, _ := newTestManager(t)

	infos, err := m.List()

	require.NoError(t, err)
	assert.NotNil(t, infos)
	assert.Empty(t, infos)
}

func TestSizeKB(t *testing.T) {
	tests := []struct {
		bytes int64
		want  float64
	}{
		{0, 0},
		{1024, 1},
		{1536, 1.5},
		{1000, 0.98},
		{123456, 120.56},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SizeKB(tt.bytes), "bytes=%d", tt.bytes)
	}
}

func TestAdd_WritesAndReindexes(t *testing.T) {
	m, r := newTestManager(t)

	n, err := m.Add(context.Background(), "guia.pdf", strings.NewReader("%PDF-1.4 body"))

	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, int32(1), r.calls.Load())
	data, err := os.ReadFile(filepath.Join(m.Dir(), "guia.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))
}

func TestAdd_ReplacesExisting(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.Add(ctx, "guia.pdf", strings.NewReader("old"))
	require.NoError(t, err)
	_, err = m.Add(ctx, "guia.pdf", strings.NewReader("new content"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(m.Dir(), "guia.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))

	entries, err := os.ReadDir(m.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestAdd_TooLarge(t *testing.T) {
	m, r := newTestManager(t, WithMaxBytes(10))

	_, err := m.Add(context.Background(), "big.pdf", bytes.NewReader(make([]byte, 11)))

	require.Error(t, err)
	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeFileTooLarge))
	assert.Zero(t, r.calls.Load())
	assert.False(t, m.Exists("big.pdf"))
	entries, _ := os.ReadDir(m.Dir())
	assert.Empty(t, entries)
}

func TestAdd_ReaderError(t *testing.T) {
	m, r := newTestManager(t)
	boom := errors.New("connection reset")

	_, err := m.Add(context.Background(), "guia.pdf", io.MultiReader(strings.NewReader("part"), &errReader{err: boom}))

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, r.calls.Load())
	assert.False(t, m.Exists("guia.pdf"))
}

func TestAdd_ReindexErrorPropagates(t *testing.T) {
	m, r := newTestManager(t)
	r.err = docqaerrors.New(docqaerrors.ErrCodeReindexLocked, "busy", nil)

	_, err := m.Add(context.Background(), "guia.pdf", strings.NewReader("x"))

	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeReindexLocked))
	assert.True(t, m.Exists("guia.pdf"))
}

func TestRemove(t *testing.T) {
	m, r := newTestManager(t)
	ctx := context.Background()
	_, err := m.Add(ctx, "guia.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	n, err := m.Remove(ctx, "guia.pdf")

	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, int32(2), r.calls.Load())
	assert.False(t, m.Exists("guia.pdf"))
}

func TestRemove_MissingDoesNotReindex(t *testing.T) {
	m, r := newTestManager(t)

	n, err := m.Remove(context.Background(), "nada.pdf")

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Zero(t, r.calls.Load())
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"reglamento.pdf", true},
		{"Reglamento Académico 2024.PDF", true},
		{"", false},
		{"   ", false},
		{"../etc/passwd.pdf", false},
		{"sub/doc.pdf", false},
		{`sub\doc.pdf`, false},
		{"..", false},
		{".hidden.pdf", false},
		{"doc.txt", false},
		{"doc", false},
		{"doc\x00.pdf", false},
		{"doc\n.pdf", false},
		{strings.Repeat("a", 300) + ".pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.name)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeInvalidFilename))
		})
	}
}

func TestOperationsRejectInvalidNames(t *testing.T) {
	m, r := newTestManager(t)
	ctx := context.Background()

	_, err := m.Add(ctx, "../escape.pdf", strings.NewReader("x"))
	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeInvalidFilename))

	_, err = m.Remove(ctx, "../escape.pdf")
	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeInvalidFilename))

	assert.Zero(t, r.calls.Load())
	_, statErr := os.Stat(filepath.Join(filepath.Dir(m.Dir()), "escape.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

type errReader struct{ err error }

func (e *errReader) Read([]byte) (int, error) { return 0, e.err }

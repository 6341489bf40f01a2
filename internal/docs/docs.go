// Package docs manages the PDF files in the docs directory. Every change
// is followed by a full reindex.
package docs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/extract"
)

// DefaultMaxBytes caps uploads when no limit is configured.
const DefaultMaxBytes = 50 << 20

// Info describes one document on disk.
type Info struct {
	Filename string    `json:"filename"`
	SizeKB   float64   `json:"size_kb"`
	Modified time.Time `json:"modified"`
}

// Reindexer rebuilds the index and reports its chunk count.
type Reindexer interface {
	Reindex(ctx context.Context) (int, error)
}

// Manager lists, adds, and removes documents.
type Manager struct {
	dir       string
	reindexer Reindexer
	maxBytes  int64
	logger    *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxBytes limits the size of an added document.
func WithMaxBytes(n int64) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxBytes = n
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a manager over dir that calls r after every change.
func NewManager(dir string, r Reindexer, opts ...Option) (*Manager, error) {
	if dir == "" {
		return nil, fmt.Errorf("docs directory is required")
	}
	if r == nil {
		return nil, fmt.Errorf("reindexer is required")
	}
	m := &Manager{
		dir:       dir,
		reindexer: r,
		maxBytes:  DefaultMaxBytes,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Dir returns the managed directory.
func (m *Manager) Dir() string {
	return m.dir
}

// List returns every PDF in the directory sorted by filename. A missing
// directory is an empty list.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, docqaerrors.New(docqaerrors.ErrCodeFilePermission,
			fmt.Sprintf("cannot read docs directory %s", m.dir), err)
	}

	infos := []Info{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !extract.IsPDF(e.Name()) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		infos = append(infos, Info{
			Filename: e.Name(),
			SizeKB:   SizeKB(fi.Size()),
			Modified: fi.ModTime().UTC(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Filename < infos[j].Filename })
	return infos, nil
}

// SizeKB converts bytes to kilobytes rounded to two decimals.
func SizeKB(n int64) float64 {
	return math.Round(float64(n)/1024*100) / 100
}

// Add writes r to name, replacing any existing file of that name, then
// reindexes. The file appears under its final name only once fully written.
func (m *Manager) Add(ctx context.Context, name string, r io.Reader) (int, error) {
	if err := ValidateFilename(name); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return 0, docqaerrors.New(docqaerrors.ErrCodeWriteFailed, "cannot create docs directory", err)
	}

	if err := m.write(name, r); err != nil {
		return 0, err
	}
	m.logger.Info("document_added", slog.String("filename", name))

	return m.reindexer.Reindex(ctx)
}

func (m *Manager) write(name string, r io.Reader) (err error) {
	// The temp name has no .pdf extension, so a concurrent rebuild skips it.
	tmp, err := os.CreateTemp(m.dir, "."+name+".upload-*")
	if err != nil {
		return docqaerrors.New(docqaerrors.ErrCodeWriteFailed, "cannot create temp file", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(r, m.maxBytes+1))
	if err != nil {
		return docqaerrors.New(docqaerrors.ErrCodeWriteFailed, "cannot write document", err)
	}
	if n > m.maxBytes {
		return docqaerrors.Newf(docqaerrors.ErrCodeFileTooLarge,
			"%s exceeds the %d MB limit", name, m.maxBytes>>20)
	}
	if err := tmp.Sync(); err != nil {
		return docqaerrors.New(docqaerrors.ErrCodeWriteFailed, "cannot sync document", err)
	}
	if err := tmp.Close(); err != nil {
		return docqaerrors.New(docqaerrors.ErrCodeWriteFailed, "cannot close document", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return docqaerrors.New(docqaerrors.ErrCodeWriteFailed, "cannot set document permissions", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(m.dir, name)); err != nil {
		return docqaerrors.New(docqaerrors.ErrCodeWriteFailed, "cannot replace document", err)
	}
	return nil
}

// Remove deletes name and reindexes. When name does not exist nothing is
// rebuilt and the count is 0.
func (m *Manager) Remove(ctx context.Context, name string) (int, error) {
	if err := ValidateFilename(name); err != nil {
		return 0, err
	}

	err := os.Remove(filepath.Join(m.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		m.logger.Info("document_remove_missing", slog.String("filename", name))
		return 0, nil
	}
	if err != nil {
		return 0, docqaerrors.New(docqaerrors.ErrCodeFilePermission,
			fmt.Sprintf("cannot remove %s", name), err)
	}
	m.logger.Info("document_removed", slog.String("filename", name))

	return m.reindexer.Reindex(ctx)
}

// Exists reports whether name is present in the directory.
func (m *Manager) Exists(name string) bool {
	if ValidateFilename(name) != nil {
		return false
	}
	fi, err := os.Stat(filepath.Join(m.dir, name))
	return err == nil && fi.Mode().IsRegular()
}

// ValidateFilename accepts a bare base name with a .pdf extension.
func ValidateFilename(name string) error {
	invalid := func(reason string) error {
		return docqaerrors.Newf(docqaerrors.ErrCodeInvalidFilename, "invalid filename %q: %s", name, reason).
			WithSuggestion("Use a plain file name ending in .pdf")
	}

	switch {
	case strings.TrimSpace(name) == "":
		return invalid("empty")
	case strings.ContainsAny(name, `/\`):
		return invalid("must not contain a path")
	case name == "." || name == ".." || strings.HasPrefix(name, "."):
		return invalid("must not start with a dot")
	case strings.ContainsRune(name, 0) || strings.IndexFunc(name, isControl) >= 0:
		return invalid("contains control characters")
	case !extract.IsPDF(name):
		return invalid("must end in .pdf")
	case len(name) > 255:
		return invalid("too long")
	}
	return nil
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

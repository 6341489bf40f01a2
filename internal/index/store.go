package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
)

// Store persists an Index as a single file. Saves replace the file
// atomically: readers of the path see the old blob or the new one.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store for the blob at path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the blob path.
func (s *Store) Path() string {
	return s.path
}

// LockPath returns the path of the rebuild lock file.
func (s *Store) LockPath() string {
	return s.path + ".lock"
}

// Exists reports whether a blob has been written.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and validates the blob. A missing file is ERR_501_INDEX_NOT_FOUND.
func (s *Store) Load() (*Index, error) {
	start := time.Now()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, docqaerrors.New(docqaerrors.ErrCodeIndexNotFound, "no index has been built", err).
				WithDetail("path", s.path).
				WithSuggestion("Run 'docqa index' to build one")
		}
		return nil, docqaerrors.New(docqaerrors.ErrCodeFilePermission, "cannot open index", err).
			WithDetail("path", s.path)
	}
	defer func() { _ = f.Close() }()

	idx, err := Decode(f)
	if err != nil {
		return nil, err
	}

	s.logger.Info("index_loaded",
		slog.String("path", s.path),
		slog.Int("chunks", idx.Len()),
		slog.String("embedder_model", idx.EmbeddingModel),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return idx, nil
}

// Save writes idx to a temp file in the same directory, syncs it, and
// renames it over the blob.
func (s *Store) Save(idx *Index) (err error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return writeFailed("cannot create data directory", err, dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return writeFailed("cannot create temp file", err, dir)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := Encode(tmp, idx); err != nil {
		return writeFailed("cannot write index", err, tmpPath)
	}
	if err := tmp.Sync(); err != nil {
		return writeFailed("cannot sync index", err, tmpPath)
	}
	if err := tmp.Close(); err != nil {
		return writeFailed("cannot close index", err, tmpPath)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return writeFailed("cannot replace index", err, s.path)
	}
	syncDir(dir)

	s.logger.Debug("index_saved",
		slog.String("path", s.path),
		slog.Int("chunks", idx.Len()))
	return nil
}

// Lock takes the cross-process rebuild lock, waiting until ctx is done.
// The returned func releases it.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	lock := NewFileLock(s.LockPath())
	if err := lock.Lock(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, docqaerrors.New(docqaerrors.ErrCodeReindexLocked,
				"another process is rebuilding the index", err).
				WithDetail("lock", lock.Path())
		}
		return nil, err
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("index_unlock_failed", slog.String("error", err.Error()))
		}
	}, nil
}

// TryLock takes the rebuild lock without waiting. It returns
// ERR_504_REINDEX_LOCKED when another holder has it.
func (s *Store) TryLock() (func(), error) {
	lock := NewFileLock(s.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, docqaerrors.New(docqaerrors.ErrCodeReindexLocked,
			"another process is rebuilding the index", nil).
			WithDetail("lock", lock.Path())
	}
	return func() { _ = lock.Unlock() }, nil
}

func writeFailed(msg string, cause error, path string) error {
	return docqaerrors.New(docqaerrors.ErrCodeWriteFailed, fmt.Sprintf("%s: %s", msg, path), cause)
}

// syncDir flushes the directory entry after a rename. Not every platform
// supports it, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

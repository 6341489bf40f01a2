// Package history records index builds in a small SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Status is the outcome of a build.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Build is one recorded rebuild.
type Build struct {
	ID             string        `json:"id"`
	Trigger        string        `json:"trigger"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration_ns"`
	Documents      int           `json:"documents"`
	Chunks         int           `json:"chunks"`
	EmbeddingModel string        `json:"embedding_model"`
	Status         Status        `json:"status"`
	Error          string        `json:"error,omitempty"`
	// Waiters is the number of reindex requests the build satisfied.
	Waiters int `json:"waiters"`
}

// Store is the build log. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	closed bool
}

// Open opens or creates the build log at path. An empty path opens an
// in-memory log.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}

	// Single connection: an in-memory database exists per connection, and
	// the log has one writer anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if path != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS builds (
		id              TEXT PRIMARY KEY,
		source          TEXT NOT NULL,
		started_at      INTEGER NOT NULL,
		duration_ns     INTEGER NOT NULL,
		documents       INTEGER NOT NULL,
		chunks          INTEGER NOT NULL,
		embedding_model TEXT NOT NULL,
		status          TEXT NOT NULL,
		error           TEXT NOT NULL DEFAULT '',
		waiters         INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS builds_started_at ON builds(started_at);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database path, empty for an in-memory log.
func (s *Store) Path() string {
	return s.path
}

// Record appends b to the log, assigning an ID when b has none, and
// returns the stored build.
func (s *Store) Record(ctx context.Context, b Build) (Build, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.StartedAt.IsZero() {
		b.StartedAt = time.Now()
	}
	b.StartedAt = b.StartedAt.UTC()
	if b.Status == "" {
		b.Status = StatusOK
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Build{}, fmt.Errorf("history is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builds (id, source, started_at, duration_ns, documents, chunks,
			embedding_model, status, error, waiters)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Trigger, b.StartedAt.UnixNano(), int64(b.Duration), b.Documents, b.Chunks,
		b.EmbeddingModel, string(b.Status), b.Error, b.Waiters)
	if err != nil {
		return Build{}, fmt.Errorf("failed to record build: %w", err)
	}
	return b, nil
}

// Recent returns up to limit builds, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Build, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("history is closed")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, duration_ns, documents, chunks,
			embedding_model, status, error, waiters
		FROM builds
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query builds: %w", err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		var (
			b         Build
			startedAt int64
			duration  int64
			status    string
		)
		if err := rows.Scan(&b.ID, &b.Trigger, &startedAt, &duration, &b.Documents, &b.Chunks,
			&b.EmbeddingModel, &status, &b.Error, &b.Waiters); err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		b.StartedAt = time.Unix(0, startedAt).UTC()
		b.Duration = time.Duration(duration)
		b.Status = Status(status)
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// Count returns the number of recorded builds.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("history is closed")
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM builds`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count builds: %w", err)
	}
	return n, nil
}

// Close closes the log. It is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.path != "" {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.db.Close()
}

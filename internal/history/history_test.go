package history

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecord_AssignsIDAndDefaults(t *testing.T) {
	// Given: an empty log
	s := openMemory(t)

	// When: recording a build without ID, time or status
	b, err := s.Record(context.Background(), Build{Trigger: "cli", Chunks: 12, Documents: 2, Waiters: 1})

	// Then: a UUID, a start time and status ok are filled in
	require.NoError(t, err)
	_, parseErr := uuid.Parse(b.ID)
	assert.NoError(t, parseErr)
	assert.False(t, b.StartedAt.IsZero())
	assert.Equal(t, StatusOK, b.Status)
}

func TestRecent_NewestFirst(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 5 {
		_, err := s.Record(ctx, Build{
			Trigger:   "api",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Chunks:    i,
			Waiters:   1,
		})
		require.NoError(t, err)
	}

	builds, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, builds, 3)
	assert.Equal(t, 4, builds[0].Chunks)
	assert.Equal(t, 3, builds[1].Chunks)
	assert.Equal(t, 2, builds[2].Chunks)
	assert.True(t, builds[0].StartedAt.Equal(base.Add(4*time.Minute)))
}

func TestRecent_RoundTripsFields(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	want := Build{
		ID:             "b-1",
		Trigger:        "watch",
		StartedAt:      time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC),
		Duration:       1500 * time.Millisecond,
		Documents:      3,
		Chunks:         41,
		EmbeddingModel: "static",
		Status:         StatusFailed,
		Error:          "embedder unavailable",
		Waiters:        4,
	}

	_, err := s.Record(ctx, want)
	require.NoError(t, err)

	got, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want, got[0])
}

func TestRecent_Empty(t *testing.T) {
	s := openMemory(t)

	builds, err := s.Recent(context.Background(), 0)

	require.NoError(t, err)
	assert.NotNil(t, builds)
	assert.Empty(t, builds)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Record(ctx, Build{Trigger: "cli", Chunks: 7, Waiters: 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, path, s.Path())
}

func TestStore_ClosedRejectsUse(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Record(context.Background(), Build{Trigger: "cli"})
	assert.Error(t, err)
	_, err = s.Recent(context.Background(), 5)
	assert.Error(t, err)
}

func TestStore_ConcurrentRecords(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Record(ctx, Build{Trigger: "api", Chunks: i, Waiters: 1})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

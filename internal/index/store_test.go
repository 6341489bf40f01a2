package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	// Given: a built index
	idx := buildSample(t)

	// When: encoding and decoding it
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, idx))
	assert.Equal(t, magic, buf.String()[:4])

	got, err := Decode(&buf)
	require.NoError(t, err)

	// Then: everything survives
	assert.Equal(t, idx.Chunks, got.Chunks)
	assert.Equal(t, idx.Lexical.State(), got.Lexical.State())
	assert.Equal(t, idx.LexicalMatrix, got.LexicalMatrix)
	assert.Equal(t, idx.DenseMatrix, got.DenseMatrix)
	assert.Equal(t, idx.EmbeddingModel, got.EmbeddingModel)
	assert.Equal(t, idx.Dimensions, got.Dimensions)
	assert.Equal(t, idx.MaxChars, got.MaxChars)
	assert.True(t, idx.BuiltAt.Equal(got.BuiltAt))

	// And: the restored model transforms queries identically
	q := "factura del cliente"
	assert.Equal(t, idx.Lexical.Transform(q), got.Lexical.Transform(q))
}

func TestEncodeDecode_EmptyIndex(t *testing.T) {
	idx, err := Empty("spanish", "static", 384)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, idx))
	got, err := Decode(&buf)
	require.NoError(t, err)

	assert.NotNil(t, got.Chunks)
	assert.Zero(t, got.Len())
	assert.NotNil(t, got.LexicalMatrix)
	assert.NotNil(t, got.DenseMatrix)
}

func TestDecode_RejectsBadInput(t *testing.T) {
	var valid bytes.Buffer
	require.NoError(t, Encode(&valid, buildSample(t)))

	wrongVersion := []byte(magic)
	wrongVersion = binary.BigEndian.AppendUint32(wrongVersion, FormatVersion+1)
	wrongVersion = append(wrongVersion, valid.Bytes()[8:]...)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"wrong magic", []byte("PK\x03\x04rest")},
		{"header only", []byte(magic)},
		{"future version", wrongVersion},
		{"truncated payload", valid.Bytes()[:valid.Len()/2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeIndexCorrupt), err.Error())
		})
	}
}

func TestStore_SaveLoad(t *testing.T) {
	// Given: a store in a nested, not yet created directory
	path := filepath.Join(t.TempDir(), "data", "index.bin")
	s := NewStore(path, quietLogger())
	assert.False(t, s.Exists())

	// When: saving and loading
	idx := buildSample(t)
	require.NoError(t, s.Save(idx))
	got, err := s.Load()
	require.NoError(t, err)

	// Then: the index is intact and no temp files remain
	assert.True(t, s.Exists())
	assert.Equal(t, idx.Chunks, got.Chunks)
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "index.bin", entries[0].Name())
}

func TestStore_SaveReplaces(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "index.bin"), quietLogger())
	require.NoError(t, s.Save(buildSample(t)))

	empty, err := Empty("spanish", "static", 384)
	require.NoError(t, err)
	require.NoError(t, s.Save(empty))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Zero(t, got.Len())
}

func TestStore_LoadMissing(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "index.bin"), quietLogger())

	_, err := s.Load()

	require.Error(t, err)
	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeIndexNotFound))
}

func TestStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	_, err := NewStore(path, quietLogger()).Load()

	require.Error(t, err)
	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeIndexCorrupt))
}

func TestStore_TryLock(t *testing.T) {
	// Given: one holder of the rebuild lock
	s := NewStore(filepath.Join(t.TempDir(), "index.bin"), quietLogger())
	unlock, err := s.TryLock()
	require.NoError(t, err)

	// When: a second holder tries
	_, err = NewStore(s.Path(), quietLogger()).TryLock()

	// Then: it is refused with ERR_504_REINDEX_LOCKED
	require.Error(t, err)
	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeReindexLocked))
	assert.True(t, docqaerrors.IsRetryable(err))

	// And: after release the lock is free again
	unlock()
	unlock2, err := s.TryLock()
	require.NoError(t, err)
	unlock2()
}

func TestStore_LockWaitsForContext(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "index.bin"), quietLogger())
	unlock, err := s.Lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = s.Lock(ctx)

	require.Error(t, err)
	assert.True(t, docqaerrors.HasCode(err, docqaerrors.ErrCodeReindexLocked))
}

func TestStore_LockAcquiresAfterRelease(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "index.bin"), quietLogger())
	unlock, err := s.Lock(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		u, err := s.Lock(context.Background())
		if err == nil {
			u()
		}
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	unlock()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("second Lock never acquired")
	}
}

func TestFileLock_UnlockIsIdempotent(t *testing.T) {
	// Given: a lock that was never taken
	path := filepath.Join(t.TempDir(), "x.lock")
	l := NewFileLock(path)
	require.NoError(t, l.Unlock())

	// When: it is taken and released twice
	ok, err := l.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, l.Unlock())
	require.NoError(t, l.Unlock())

	// Then: another holder can take it
	other := NewFileLock(path)
	ok, err = other.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, other.Unlock())
}

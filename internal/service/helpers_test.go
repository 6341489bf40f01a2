package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Aman-CERP/docqa/internal/config"
	"github.com/Aman-CERP/docqa/internal/embed"
	"github.com/Aman-CERP/docqa/internal/extract"
	"github.com/Aman-CERP/docqa/internal/history"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExtractor serves page text from memory. The files must still exist
// in the docs dir so they are listed.
type fakeExtractor struct {
	mu     sync.Mutex
	corpus map[string][]string

	// calls counts Extract calls.
	calls atomic.Int32

	// When gate is set, the first call signals started and every call
	// waits for gate to close.
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
}

func newFakeExtractor(corpus map[string][]string) *fakeExtractor {
	return &fakeExtractor{corpus: corpus}
}

func (f *fakeExtractor) setCorpus(corpus map[string][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.corpus = corpus
}

func (f *fakeExtractor) block() {
	f.gate = make(chan struct{})
	f.started = make(chan struct{})
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (extract.Document, error) {
	f.calls.Add(1)
	if f.gate != nil {
		f.once.Do(func() { close(f.started) })
		select {
		case <-f.gate:
		case <-ctx.Done():
			return extract.Document{}, ctx.Err()
		}
	}

	name := filepath.Base(path)
	f.mu.Lock()
	texts := f.corpus[name]
	f.mu.Unlock()

	doc := extract.Document{Filename: name, Path: path, Title: name}
	for i, t := range texts {
		doc.Pages = append(doc.Pages, extract.Page{Number: i + 1, Text: t})
	}
	return doc, nil
}

type fixture struct {
	cfg       *config.Config
	extractor *fakeExtractor
	history   *history.Store
	svc       *Service
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.NewConfig()
	cfg.Paths.DocsDir = filepath.Join(root, "docs")
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Chunking.MaxChars = 80
	require.NoError(t, os.MkdirAll(cfg.Paths.DocsDir, 0o755))
	return cfg
}

// touchDocs creates empty placeholder PDFs for every name in corpus.
func touchDocs(t *testing.T, dir string, corpus map[string][]string) {
	t.Helper()
	for name := range corpus {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4\n"), 0o644))
	}
}

func newFixture(t *testing.T, corpus map[string][]string) *fixture {
	t.Helper()
	cfg := testConfig(t)
	touchDocs(t, cfg.Paths.DocsDir, corpus)

	hist, err := history.Open("")
	require.NoError(t, err)

	f := &fixture{cfg: cfg, extractor: newFakeExtractor(corpus), history: hist}
	f.svc = f.open(t, Dependencies{})
	return f
}

func (f *fixture) open(t *testing.T, deps Dependencies) *Service {
	t.Helper()
	if deps.Embedder == nil {
		deps.Embedder = embed.NewStaticEmbedder()
	}
	if deps.Extractor == nil {
		deps.Extractor = f.extractor
	}
	if deps.History == nil {
		deps.History = f.history
	}
	if deps.LockTimeout == 0 {
		deps.LockTimeout = 200 * time.Millisecond
	}
	deps.Logger = quietLogger()

	svc, err := New(f.cfg, deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

// pendingWaiters reports how many requests have joined the next rebuild.
func (s *Service) pendingWaiters() int {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	if s.next == nil {
		return 0
	}
	return s.next.waiters
}

var corpusA = map[string][]string{
	"contrato.pdf": {
		"El proveedor entrega el servicio cada mes. El cliente paga la factura en treinta días.",
		"El contrato vence en diciembre. Puede renovarse por un año más.",
	},
	"manual.pdf": {
		"Encienda el equipo con el botón rojo. Espere a que la luz verde se encienda.",
	},
}

var corpusB = map[string][]string{
	"contrato.pdf": {
		"La garantía cubre defectos de fabricación durante dos años.",
	},
	"manual.pdf": {},
}

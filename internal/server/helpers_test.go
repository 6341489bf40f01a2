package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Aman-CERP/docqa/internal/config"
	"github.com/Aman-CERP/docqa/internal/docs"
	"github.com/Aman-CERP/docqa/internal/embed"
	"github.com/Aman-CERP/docqa/internal/extract/extracttest"
	"github.com/Aman-CERP/docqa/internal/history"
	"github.com/Aman-CERP/docqa/internal/index"
	"github.com/Aman-CERP/docqa/internal/search"
	"github.com/Aman-CERP/docqa/internal/service"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var contratoPages = []string{
	"El cliente paga la factura dentro de treinta dias. El proveedor emite la factura al final de cada mes.",
	"El contrato dura un ano. Cualquiera de las partes puede terminarlo con aviso previo.",
}

type testEnv struct {
	cfg     *config.Config
	svc     *service.Service
	handler http.Handler
}

// newTestEnv starts a real service over a docs dir holding contrato.pdf
// and builds the index once.
func newTestEnv(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()
	root := t.TempDir()
	cfg := config.NewConfig()
	cfg.Paths.DocsDir = filepath.Join(root, "docs")
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Chunking.MaxChars = 80

	require.NoError(t, extracttest.WritePDF(
		filepath.Join(cfg.Paths.DocsDir, "contrato.pdf"), "Contrato de servicios", contratoPages...))

	hist, err := history.Open("")
	require.NoError(t, err)

	svc, err := service.New(cfg, service.Dependencies{
		Embedder: embed.NewStaticEmbedder(),
		History:  hist,
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	_, err = svc.Reindex(context.Background())
	require.NoError(t, err)

	mgr, err := docs.NewManager(cfg.Paths.DocsDir, svc,
		docs.WithMaxBytes(maxUpload), docs.WithLogger(quietLogger()))
	require.NoError(t, err)

	srv, err := New(Dependencies{
		Backend:        svc,
		Docs:           mgr,
		MaxUploadBytes: maxUpload,
		Logger:         quietLogger(),
	})
	require.NoError(t, err)

	return &testEnv{cfg: cfg, svc: svc, handler: srv.Handler()}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, method, target, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		Category   string `json:"category"`
		Suggestion string `json:"suggestion"`
		Retryable  bool   `json:"retryable"`
	} `json:"error"`
}

// stubBackend lets tests force backend behavior.
type stubBackend struct {
	queryFn   func(ctx context.Context, text string, opts search.Options) ([]search.Result, error)
	reindexFn func(ctx context.Context) (int, error)
}

func (b *stubBackend) Query(ctx context.Context, text string, opts search.Options) ([]search.Result, error) {
	return b.queryFn(ctx, text, opts)
}

func (b *stubBackend) Reindex(ctx context.Context) (int, error) {
	return b.reindexFn(ctx)
}

func (b *stubBackend) Current() *index.Index {
	return nil
}

func newStubServer(t *testing.T, b *stubBackend) http.Handler {
	t.Helper()
	mgr, err := docs.NewManager(t.TempDir(), b, docs.WithLogger(quietLogger()))
	require.NoError(t, err)
	srv, err := New(Dependencies{Backend: b, Docs: mgr, Logger: quietLogger()})
	require.NoError(t, err)
	return srv.Handler()
}

package server

import (
	"embed"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/Aman-CERP/docqa/internal/docs"
	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
	"github.com/Aman-CERP/docqa/internal/index"
	"github.com/Aman-CERP/docqa/internal/search"
	"github.com/Aman-CERP/docqa/internal/service"
	"github.com/Aman-CERP/docqa/internal/telemetry"
)

//go:embed static/index.html
var staticFS embed.FS

// AskRequest is the body of POST /ask. Omitted parameters take the
// configured defaults.
type AskRequest struct {
	Question string   `json:"question"`
	KBase    *int     `json:"k_base,omitempty"`
	KFinal   *int     `json:"k_final,omitempty"`
	Alpha    *float64 `json:"alpha,omitempty"`
	Explain  bool     `json:"explain,omitempty"`
}

// AskResponse is the body returned by POST /ask.
type AskResponse struct {
	Results []search.Result `json:"results"`
}

// DocResponse reports the outcome of a document change.
type DocResponse struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunk_count"`
}

// ReindexResponse is the body returned by POST /admin/reindex.
type ReindexResponse struct {
	ChunkCount int `json:"chunk_count"`
}

// StatsResponse is the body returned by GET /admin/stats. Queries is
// omitted when the backend keeps no statistics.
type StatsResponse struct {
	Index   index.Stats         `json:"index"`
	Queries *telemetry.Snapshot `json:"queries,omitempty"`
}

// HealthResponse is the body returned by GET /healthz.
type HealthResponse struct {
	OK      bool      `json:"ok"`
	Chunks  int       `json:"chunks"`
	Model   string    `json:"model"`
	BuiltAt time.Time `json:"built_at,omitzero"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		s.writeError(w, r, docqaerrors.InternalError("missing page", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{OK: true}
	if idx := s.backend.Current(); idx != nil {
		resp.Chunks = idx.Len()
		resp.Model = idx.EmbeddingModel
		resp.BuiltAt = idx.BuiltAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, docqaerrors.New(docqaerrors.ErrCodeInvalidInput,
			"request body must be a JSON object", err).
			WithSuggestion(`Send {"question": "..."} with optional k_base, k_final and alpha`))
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		s.writeError(w, r, docqaerrors.New(docqaerrors.ErrCodeQueryEmpty, "question is empty", nil))
		return
	}

	opts, err := req.options()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	results, err := s.backend.Query(r.Context(), question, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AskResponse{Results: results})
}

// options converts the request into query options. Parameters that are
// present must be positive; zero is not read as "use the default".
func (req AskRequest) options() (search.Options, error) {
	opts := search.Options{Alpha: req.Alpha, Explain: req.Explain}
	if req.KBase != nil {
		if *req.KBase < 1 {
			return opts, docqaerrors.Newf(docqaerrors.ErrCodeInvalidQuery,
				"k_base must be at least 1, got %d", *req.KBase)
		}
		opts.KBase = *req.KBase
	}
	if req.KFinal != nil {
		if *req.KFinal < 1 {
			return opts, docqaerrors.Newf(docqaerrors.ErrCodeInvalidQuery,
				"k_final must be at least 1, got %d", *req.KFinal)
		}
		opts.KFinal = *req.KFinal
	}
	return opts, nil
}

func (s *Server) handleListDocs(w http.ResponseWriter, r *http.Request) {
	list, err := s.docs.List()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": list})
}

// handleUploadDoc stores the multipart "file" part under its own filename.
// It answers 201 for a new document and 200 for a replacement.
func (s *Server) handleUploadDoc(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)

	part, err := filePart(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer part.Close()

	name := part.FileName()
	s.storeDocument(w, r, name, part)
}

// handleReplaceDoc accepts either a multipart "file" part or the raw PDF
// bytes as the body. The path name wins over any uploaded filename.
func (s *Server) handleReplaceDoc(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+1<<20)

	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		part, err := filePart(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		defer part.Close()
		body = part
	}
	s.storeDocument(w, r, name, body)
}

func (s *Server) storeDocument(w http.ResponseWriter, r *http.Request, name string, body io.Reader) {
	if err := docs.ValidateFilename(name); err != nil {
		s.writeError(w, r, err)
		return
	}
	existed := s.docs.Exists(name)

	ctx := service.WithTrigger(r.Context(), service.TriggerAdmin)
	chunks, err := s.docs.Add(ctx, name, body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			err = docqaerrors.Newf(docqaerrors.ErrCodeFileTooLarge,
				"%s exceeds the %d MB limit", name, s.maxUpload>>20)
		}
		s.writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	s.logger.Info("document_stored",
		slog.String("request_id", RequestID(r.Context())),
		slog.String("filename", name),
		slog.Bool("replaced", existed),
		slog.Int("chunks", chunks))
	writeJSON(w, status, DocResponse{Filename: name, ChunkCount: chunks})
}

func (s *Server) handleDeleteDoc(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := docs.ValidateFilename(name); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !s.docs.Exists(name) {
		s.writeError(w, r, docqaerrors.Newf(docqaerrors.ErrCodeFileNotFound,
			"document %s not found", name))
		return
	}

	ctx := service.WithTrigger(r.Context(), service.TriggerAdmin)
	chunks, err := s.docs.Remove(ctx, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DocResponse{Filename: name, ChunkCount: chunks})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	var resp StatsResponse
	if idx := s.backend.Current(); idx != nil {
		resp.Index = idx.Stats()
	}
	if sb, ok := s.backend.(StatsBackend); ok {
		snap := sb.QueryStats()
		resp.Queries = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	ctx := service.WithTrigger(r.Context(), service.TriggerHTTP)
	chunks, err := s.backend.Reindex(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReindexResponse{ChunkCount: chunks})
}

// filePart returns the first multipart part named "file".
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, docqaerrors.New(docqaerrors.ErrCodeInvalidInput,
			"expected a multipart/form-data body", err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, docqaerrors.New(docqaerrors.ErrCodeInvalidInput,
				`multipart body has no "file" field`, nil)
		}
		if err != nil {
			return nil, docqaerrors.New(docqaerrors.ErrCodeInvalidInput,
				"malformed multipart body", err)
		}
		if part.FormName() == "file" {
			return part, nil
		}
		_ = part.Close()
	}
}

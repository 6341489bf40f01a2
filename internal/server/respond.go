package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	docqaerrors "github.com/Aman-CERP/docqa/internal/errors"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status for err and a body of the form
// {"error": {"code": ..., "message": ...}}.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := docqaerrors.HTTPStatus(err)
	body, encErr := docqaerrors.FormatJSON(err)
	if encErr != nil {
		body = []byte(`{"code":"ERR_901_INTERNAL","message":"internal error"}`)
	}

	attrs := []any{
		slog.String("request_id", RequestID(r.Context())),
		slog.Int("status", status),
	}
	for k, v := range docqaerrors.FormatForLog(err) {
		attrs = append(attrs, slog.Any(k, v))
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("http_request_failed", attrs...)
	} else {
		s.logger.Debug("http_request_rejected", attrs...)
	}

	writeJSON(w, status, map[string]json.RawMessage{"error": body})
}

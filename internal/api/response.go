package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vitaai/vita/internal/chat"
	"github.com/vitaai/vita/internal/conversation"
	"github.com/vitaai/vita/internal/knowledge"
	"github.com/vitaai/vita/internal/scrape"
)

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
// Buffer-first so headers are only sent after successful encoding.
func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("failed to write response body", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps domain sentinel errors to HTTP responses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, knowledge.ErrNotFound), errors.Is(err, conversation.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, knowledge.ErrInvalidInput),
		errors.Is(err, chat.ErrInvalidInput),
		errors.Is(err, conversation.ErrInvalidInput),
		errors.Is(err, scrape.ErrInvalidURL):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, knowledge.ErrEmbeddingUnavailable),
		errors.Is(err, chat.ErrGenerationUnavailable):
		s.logger.Error("provider unavailable", "error", err)
		writeError(w, http.StatusBadGateway, "provider_unavailable", "model provider unavailable")
	case errors.Is(err, scrape.ErrFetchFailed), errors.Is(err, scrape.ErrEmptyPage):
		writeError(w, http.StatusUnprocessableEntity, "scrape_failed", err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// decodeJSON decodes a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vitaai/vita/internal/chat"
)

// chatRequest is the body of POST /chat and POST /chat/stream. The
// tuning knobs are pointers so an explicit zero survives decoding while
// an absent field falls back to the pipeline defaults.
type chatRequest struct {
	Question    string   `json:"question"`
	Limit       int      `json:"limit"`
	Similarity  *float64 `json:"similarity"`
	Temperature *float32 `json:"temperature"`
}

func (req chatRequest) options() chat.Options {
	return chat.Options{
		Limit:       req.Limit,
		Threshold:   req.Similarity,
		Temperature: req.Temperature,
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	resp, err := s.pipeline.Answer(r.Context(), req.Question, req.options())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	frames, err := s.pipeline.AnswerStream(r.Context(), req.Question, req.options())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		s.logger.Error("sse unsupported", "error", err)
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "streaming not supported")
		return
	}

	for frame := range frames {
		if err := sse.WriteFrame(frame); err != nil {
			// Client gone. Keep draining so the producer can finish.
			s.logger.Debug("sse write failed", "error", err)
			for range frames {
			}
			return
		}
	}
}

// sseWriter streams JSON frames as Server-Sent Events.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEWriter sets the SSE headers and returns a writer for the
// response. Fails when the ResponseWriter cannot flush.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flusher interface")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &sseWriter{w: w, flusher: flusher}, nil
}

// WriteFrame sends one frame as an SSE data event and flushes it to the
// client immediately.
func (sw *sseWriter) WriteFrame(frame chat.Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	sw.flusher.Flush()
	return nil
}

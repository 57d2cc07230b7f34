package api

import (
	"net/http"

	"github.com/google/uuid"
)

// conversationChatRequest is the body of POST /conversations/chat.
type conversationChatRequest struct {
	Question       string   `json:"question"`
	ConversationID *string  `json:"conversationId"`
	IsNew          bool     `json:"isNewConversation"`
	Limit          int      `json:"limit"`
	Similarity     *float64 `json:"similarity"`
	Temperature    *float32 `json:"temperature"`
}

// renameRequest is the body of PATCH /conversations/{id}.
type renameRequest struct {
	Title string `json:"title"`
}

// requireOwner extracts the caller identity or rejects the request.
func (s *Server) requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := ownerID(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "owner_required", ownerHeader+" header is required")
		return "", false
	}
	return owner, true
}

// pathID parses the {id} path segment as a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleConversationChat(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	var req conversationChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	var conversationID *uuid.UUID
	if req.ConversationID != nil && *req.ConversationID != "" {
		id, err := uuid.Parse(*req.ConversationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "conversationId must be a UUID")
			return
		}
		conversationID = &id
	}

	result, err := s.conversations.Chat(r.Context(), owner, req.Question, conversationID, req.IsNew, chatRequest{
		Limit:       req.Limit,
		Similarity:  req.Similarity,
		Temperature: req.Temperature,
	}.options())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	summaries, err := s.conversations.List(r.Context(), owner)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleConversationSearch(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}

	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "query parameter q is required")
		return
	}

	summaries, err := s.conversations.Search(r.Context(), owner, term)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleConversationGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	history, err := s.conversations.Get(r.Context(), owner, id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleConversationRename(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	conv, err := s.conversations.Rename(r.Context(), owner, id, req.Title)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleConversationDelete(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	conv, err := s.conversations.Delete(r.Context(), owner, id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

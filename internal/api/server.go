// Package api provides the HTTP server: JSON endpoints for chat,
// conversations and knowledge entries, plus the SSE streaming endpoint.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/vitaai/vita/internal/chat"
	"github.com/vitaai/vita/internal/conversation"
	"github.com/vitaai/vita/internal/knowledge"
	"github.com/vitaai/vita/internal/scrape"
)

// Pipeline answers questions, synchronously or as a frame stream.
type Pipeline interface {
	Answer(ctx context.Context, question string, opts chat.Options) (*chat.Response, error)
	AnswerStream(ctx context.Context, question string, opts chat.Options) (<-chan chat.Frame, error)
}

// Conversations manages owner-scoped multi-turn chats.
type Conversations interface {
	Chat(ctx context.Context, ownerID, question string, conversationID *uuid.UUID, isNew bool, opts chat.Options) (*conversation.TurnResult, error)
	List(ctx context.Context, ownerID string) ([]conversation.Summary, error)
	Search(ctx context.Context, ownerID, term string) ([]conversation.Summary, error)
	Get(ctx context.Context, ownerID string, id uuid.UUID) (*conversation.History, error)
	Rename(ctx context.Context, ownerID string, id uuid.UUID, title string) (*conversation.Conversation, error)
	Delete(ctx context.Context, ownerID string, id uuid.UUID) (*conversation.Conversation, error)
}

// Knowledge manages knowledge entries and similarity search.
type Knowledge interface {
	Create(ctx context.Context, arg knowledge.CreateParams) (*knowledge.Entry, error)
	Get(ctx context.Context, id uuid.UUID) (*knowledge.Entry, error)
	Update(ctx context.Context, id uuid.UUID, arg knowledge.UpdateParams) (*knowledge.Entry, error)
	Delete(ctx context.Context, id uuid.UUID) (*knowledge.Entry, error)
	List(ctx context.Context) ([]*knowledge.Entry, error)
	Search(ctx context.Context, query string, limit int, threshold float64) ([]knowledge.SimilarityResult, error)
}

// Scraper extracts entry candidates from reference pages.
type Scraper interface {
	Scrape(ctx context.Context, pageURL string) (*scrape.Page, error)
}

// Config contains configuration for creating the API server.
type Config struct {
	Pipeline      Pipeline
	Conversations Conversations
	Knowledge     Knowledge
	Scraper       Scraper
	Logger        *slog.Logger

	TrustProxy bool // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst  int  // Rate limiter burst size per IP (0 = default 60)
}

func (cfg Config) validate() error {
	if cfg.Pipeline == nil {
		return errors.New("pipeline is required")
	}
	if cfg.Conversations == nil {
		return errors.New("conversations service is required")
	}
	if cfg.Knowledge == nil {
		return errors.New("knowledge repository is required")
	}
	if cfg.Scraper == nil {
		return errors.New("scraper is required")
	}
	return nil
}

// Server is the HTTP API server.
type Server struct {
	handler       http.Handler
	pipeline      Pipeline
	conversations Conversations
	knowledge     Knowledge
	scraper       Scraper
	logger        *slog.Logger
}

// NewServer creates a Server with all routes configured.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		pipeline:      cfg.Pipeline,
		conversations: cfg.Conversations,
		knowledge:     cfg.Knowledge,
		scraper:       cfg.Scraper,
		logger:        logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /chat/stream", s.handleChatStream)

	mux.HandleFunc("POST /conversations/chat", s.handleConversationChat)
	mux.HandleFunc("GET /conversations", s.handleConversationList)
	mux.HandleFunc("GET /conversations/search", s.handleConversationSearch)
	mux.HandleFunc("GET /conversations/{id}", s.handleConversationGet)
	mux.HandleFunc("PATCH /conversations/{id}", s.handleConversationRename)
	mux.HandleFunc("DELETE /conversations/{id}", s.handleConversationDelete)

	mux.HandleFunc("POST /entries", s.handleEntryCreate)
	mux.HandleFunc("GET /entries", s.handleEntryList)
	mux.HandleFunc("GET /entries/{id}", s.handleEntryGet)
	mux.HandleFunc("PATCH /entries/{id}", s.handleEntryUpdate)
	mux.HandleFunc("DELETE /entries/{id}", s.handleEntryDelete)
	mux.HandleFunc("POST /entries/search", s.handleEntrySearch)
	mux.HandleFunc("POST /entries/scrape", s.handleEntryScrape)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(10, burst)

	// Middleware stack: recovery catches panics, logging tracks
	// requests, rate limiting rejects floods before any handler runs.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)
	s.handler = handler

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Package conversation manages multi-turn chats: creating and naming
// conversations, persisting turns, and owner-scoped access to history.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vitaai/vita/internal/chat"
)

// Title generation constants.
const (
	titleTemperature     = float32(0.7)
	titleGenerationLimit = 5 * time.Second
	titleMaxTokens       = int32(100)
	titleMaxRunes        = 100
	untitledTitle        = "untitled"
)

// Store is the persistence contract the service depends on. PGStore is
// the production implementation.
type Store interface {
	InsertConversation(ctx context.Context, ownerID, title string) (*Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID, ownerID string) (*Conversation, error)
	ListConversations(ctx context.Context, ownerID string) ([]Summary, error)
	SearchConversations(ctx context.Context, ownerID, term string) ([]Summary, error)
	UpdateTitle(ctx context.Context, id uuid.UUID, ownerID, title string) (*Conversation, error)
	DeleteConversation(ctx context.Context, id uuid.UUID, ownerID string) (*Conversation, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, sender Sender, content string) (*Message, error)
	GetMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error)
}

// Answerer produces a grounded answer for a question. chat.Pipeline is
// the production implementation.
type Answerer interface {
	Answer(ctx context.Context, question string, opts chat.Options) (*chat.Response, error)
}

// Generator produces model output for a prompt with a hard cap on
// output tokens. Used only for naming new conversations, where a short
// answer is all that is wanted.
type Generator interface {
	GenerateCapped(ctx context.Context, prompt string, temperature float32, maxTokens int32) (string, error)
}

// Config contains all required parameters for the service.
type Config struct {
	Store     Store
	Answerer  Answerer
	Generator Generator
	Logger    *slog.Logger
}

func (cfg Config) validate() error {
	if cfg.Store == nil {
		return errors.New("store is required")
	}
	if cfg.Answerer == nil {
		return errors.New("answerer is required")
	}
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	return nil
}

// Service coordinates conversations with the answering pipeline.
//
// Service is stateless and safe for concurrent use.
type Service struct {
	store     Store
	answerer  Answerer
	generator Generator
	logger    *slog.Logger
}

// New creates a Service from required configuration.
func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:     cfg.Store,
		answerer:  cfg.Answerer,
		generator: cfg.Generator,
		logger:    logger,
	}, nil
}

// Chat runs one turn. A new conversation is created and named after the
// question when conversationID is nil or isNew is set; isNew wins even
// when an id is supplied. Otherwise the turn lands in the existing
// conversation, which must belong to ownerID.
//
// The user message is persisted before generation, so a failed turn
// still leaves the question in history. The bot message is only written
// when generation produced text.
func (s *Service) Chat(ctx context.Context, ownerID, question string, conversationID *uuid.UUID, isNew bool, opts chat.Options) (*TurnResult, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question must not be empty", ErrInvalidInput)
	}

	var conv *Conversation
	var err error
	if isNew || conversationID == nil {
		title := s.generateTitle(ctx, question)
		conv, err = s.store.InsertConversation(ctx, ownerID, title)
		if err != nil {
			return nil, fmt.Errorf("creating conversation: %w", err)
		}
	} else {
		conv, err = s.store.GetConversation(ctx, *conversationID, ownerID)
		if err != nil {
			return nil, err
		}
	}

	userMsg, err := s.store.AppendMessage(ctx, conv.ID, SenderUser, question)
	if err != nil {
		return nil, fmt.Errorf("saving user message: %w", err)
	}

	resp, err := s.answerer.Answer(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	messages := []Message{*userMsg}
	if resp.Text != "" {
		botMsg, err := s.store.AppendMessage(ctx, conv.ID, SenderBot, resp.Text)
		if err != nil {
			return nil, fmt.Errorf("saving bot message: %w", err)
		}
		messages = append(messages, *botMsg)
	} else {
		s.logger.Warn("empty answer, bot message not saved", "conversation_id", conv.ID)
	}

	return &TurnResult{
		Conversation: *conv,
		Messages:     messages,
		Response:     resp,
	}, nil
}

// generateTitle names a new conversation after its opening question.
// Best-effort: a generation failure falls back to a dated placeholder
// and an empty result to "untitled".
func (s *Service) generateTitle(ctx context.Context, question string) string {
	titleCtx, cancel := context.WithTimeout(ctx, titleGenerationLimit)
	defer cancel()

	title, err := s.generator.GenerateCapped(titleCtx, chat.BuildTitlePrompt(question), titleTemperature, titleMaxTokens)
	if err != nil {
		s.logger.Debug("title generation failed", "error", err)
		return fmt.Sprintf("Percakapan %s", time.Now().Format("02/01/2006"))
	}

	title = strings.TrimSpace(strings.ReplaceAll(title, `"`, ""))
	if title == "" {
		return untitledTitle
	}

	runes := []rune(title)
	if len(runes) > titleMaxRunes {
		title = string(runes[:titleMaxRunes])
	}
	return title
}

// List returns the owner's conversation summaries, most recently active
// first.
func (s *Service) List(ctx context.Context, ownerID string) ([]Summary, error) {
	return s.store.ListConversations(ctx, ownerID)
}

// Search returns the owner's conversations whose title contains the
// term, case-insensitively.
func (s *Service) Search(ctx context.Context, ownerID, term string) ([]Summary, error) {
	return s.store.SearchConversations(ctx, ownerID, term)
}

// Get returns a conversation with its messages in chronological order.
func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (*History, error) {
	conv, err := s.store.GetConversation(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.GetMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &History{Conversation: *conv, Messages: messages}, nil
}

// Rename sets a conversation's title.
func (s *Service) Rename(ctx context.Context, ownerID string, id uuid.UUID, title string) (*Conversation, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	return s.store.UpdateTitle(ctx, id, ownerID, title)
}

// Delete removes a conversation and all of its messages.
func (s *Service) Delete(ctx context.Context, ownerID string, id uuid.UUID) (*Conversation, error) {
	return s.store.DeleteConversation(ctx, id, ownerID)
}

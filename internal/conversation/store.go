package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const conversationCols = "id, owner_id, title, created_at, updated_at"

// PGStore persists conversations and messages in PostgreSQL. Every
// conversation query is scoped by owner, so one user can never read or
// mutate another user's conversations.
//
// PGStore is safe for concurrent use by multiple goroutines.
type PGStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPGStore creates a PGStore backed by the given pool.
func NewPGStore(pool *pgxpool.Pool, logger *slog.Logger) (*PGStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PGStore{pool: pool, logger: logger}, nil
}

// InsertConversation creates a conversation for the owner.
func (s *PGStore) InsertConversation(ctx context.Context, ownerID, title string) (*Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (owner_id, title)
		VALUES ($1, $2)
		RETURNING `+conversationCols,
		ownerID, title)

	conv, err := scanConversation(row)
	if err != nil {
		return nil, fmt.Errorf("inserting conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID, "owner", ownerID)
	return conv, nil
}

// GetConversation retrieves a conversation by ID, scoped to the owner.
func (s *PGStore) GetConversation(ctx context.Context, id uuid.UUID, ownerID string) (*Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+conversationCols+`
		FROM conversations
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID)

	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	return conv, nil
}

// ListConversations returns the owner's conversation summaries, most
// recently active first.
func (s *PGStore) ListConversations(ctx context.Context, ownerID string) ([]Summary, error) {
	return s.querySummaries(ctx, `
		SELECT c.id, c.title, COUNT(m.id), c.created_at, c.updated_at
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		WHERE c.owner_id = $1
		GROUP BY c.id
		ORDER BY c.updated_at DESC`,
		ownerID)
}

// SearchConversations returns the owner's conversations whose title
// contains the term, case-insensitively.
func (s *PGStore) SearchConversations(ctx context.Context, ownerID, term string) ([]Summary, error) {
	return s.querySummaries(ctx, `
		SELECT c.id, c.title, COUNT(m.id), c.created_at, c.updated_at
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		WHERE c.owner_id = $1 AND c.title ILIKE '%' || $2 || '%'
		GROUP BY c.id
		ORDER BY c.updated_at DESC`,
		ownerID, escapeLike(term))
}

func (s *PGStore) querySummaries(ctx context.Context, sql string, args ...any) ([]Summary, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.MessageCount, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return summaries, nil
}

// UpdateTitle renames a conversation, scoped to the owner.
func (s *PGStore) UpdateTitle(ctx context.Context, id uuid.UUID, ownerID, title string) (*Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE conversations
		SET title = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+conversationCols,
		id, ownerID, title)

	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("updating conversation title: %w", err)
	}

	s.logger.Debug("renamed conversation", "id", id, "title", title)
	return conv, nil
}

// DeleteConversation deletes a conversation and, via the schema's
// cascade, all of its messages. Scoped to the owner.
func (s *PGStore) DeleteConversation(ctx context.Context, id uuid.UUID, ownerID string) (*Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		DELETE FROM conversations
		WHERE id = $1 AND owner_id = $2
		RETURNING `+conversationCols,
		id, ownerID)

	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("deleting conversation: %w", err)
	}

	s.logger.Debug("deleted conversation", "id", id, "owner", ownerID)
	return conv, nil
}

// AppendMessage inserts a message and bumps the conversation's
// updated_at in the same transaction, so listings sort by last activity.
func (s *PGStore) AppendMessage(ctx context.Context, conversationID uuid.UUID, sender Sender, content string) (*Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Warn("rolling back message transaction", "error", rbErr)
		}
	}()

	row := tx.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, sender, content)
		VALUES ($1, $2, $3)
		RETURNING id, conversation_id, sender, content, created_at`,
		conversationID, string(sender), content)

	var msg Message
	if err := row.Scan(&msg.ID, &msg.ConversationID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE conversations SET updated_at = now() WHERE id = $1`,
		conversationID); err != nil {
		return nil, fmt.Errorf("bumping conversation activity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}
	return &msg, nil
}

// GetMessages returns a conversation's messages in chronological order.
// Ownership must already be verified by the caller.
func (s *PGStore) GetMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, sender, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("getting messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Sender, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getting messages: %w", err)
	}
	return messages, nil
}

func scanConversation(row pgx.Row) (*Conversation, error) {
	var conv Conversation
	if err := row.Scan(&conv.ID, &conv.OwnerID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, err
	}
	return &conv, nil
}

// escapeLike neutralizes LIKE metacharacters so a search term matches
// literally.
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

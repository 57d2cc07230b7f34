package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/vitaai/vita/internal/chat"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "USER"
	SenderBot  Sender = "BOT"
)

// Conversation is a multi-turn exchange owned by a single user.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is one turn entry within a conversation.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"-"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Summary is a conversation listing row: the conversation metadata plus
// its message count, without the messages themselves.
type Summary struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// History is a conversation with its messages in chronological order.
type History struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

// TurnResult is the outcome of one chat turn: the conversation it landed
// in, the messages persisted by the turn, and the pipeline response.
type TurnResult struct {
	Conversation Conversation   `json:"conversation"`
	Messages     []Message      `json:"messages"`
	Response     *chat.Response `json:"chatResponse"`
}

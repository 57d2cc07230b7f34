package conversation

import "errors"

// Sentinel errors for conversation operations.
var (
	// ErrNotFound indicates the conversation does not exist or belongs
	// to another owner. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("conversation not found")

	// ErrInvalidInput indicates a missing owner, question, or title.
	ErrInvalidInput = errors.New("invalid input")
)

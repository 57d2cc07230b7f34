package knowledge

import "errors"

// Sentinel errors for knowledge operations. Check with errors.Is().
var (
	// ErrNotFound indicates the requested entry does not exist.
	ErrNotFound = errors.New("entry not found")

	// ErrInvalidInput indicates a caller-supplied parameter is out of range
	// or missing. Returned before any external call is made.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates the embedding provider failed or
	// returned a vector of unexpected shape.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
)

package knowledge

import (
	"time"

	"github.com/google/uuid"
)

// VectorDimension is the embedding dimensionality stored in the pgvector
// column. gemini-embedding-001 output is truncated to this size via
// OutputDimensionality.
const VectorDimension int32 = 768

// Entry is a knowledge base entry. The embedding itself never leaves the
// store layer; an Entry with no embedding simply does not participate in
// similarity search.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	SourceURL string    `json:"sourceUrl"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SimilarityResult is a transient search hit: entry fields plus the cosine
// similarity (1 - distance) against the query vector, in [0,1].
type SimilarityResult struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	SourceURL  string    `json:"sourceUrl"`
	Similarity float64   `json:"similarity"`
}

// CreateParams holds the fields for a new entry.
type CreateParams struct {
	Title     string
	Content   string
	SourceURL string
}

// UpdateParams holds a partial update. Nil fields are left unchanged.
// A non-nil Content triggers embedding recomputation unless the content
// is identical to what is already stored.
type UpdateParams struct {
	Title     *string
	Content   *string
	SourceURL *string
}

package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// embedTimeout bounds every embedding provider call so a stuck provider
// cannot hold a request open indefinitely.
const embedTimeout = 10 * time.Second

// Embedder turns text into a fixed-length vector. Implementations must be
// safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the persistence contract the repository depends on. PGStore is
// the production implementation; tests substitute a mock.
type Store interface {
	InsertEntry(ctx context.Context, arg CreateParams, embedding pgvector.Vector) (*Entry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	UpdateEntry(ctx context.Context, id uuid.UUID, arg UpdateParams, embedding *pgvector.Vector) (*Entry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListEntries(ctx context.Context) ([]*Entry, error)
	QuerySimilar(ctx context.Context, query pgvector.Vector, limit int, threshold float64) ([]SimilarityResult, error)
}

// Repository owns knowledge entry CRUD and similarity search. Writes that
// change content recompute the embedding synchronously before the row is
// written, so search never sees a stale vector.
//
// Repository is safe for concurrent use by multiple goroutines.
type Repository struct {
	store    Store
	embedder Embedder
	logger   *slog.Logger
}

// NewRepository creates a Repository.
func NewRepository(store Store, embedder Embedder, logger *slog.Logger) (*Repository, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{store: store, embedder: embedder, logger: logger}, nil
}

// embed generates an embedding and validates its shape. Provider errors
// and wrong-dimension vectors both surface as ErrEmbeddingUnavailable.
func (r *Repository) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	values, err := r.embedder.Embed(embedCtx, text)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	if len(values) != int(VectorDimension) {
		return pgvector.Vector{}, fmt.Errorf("%w: expected %d dimensions, got %d",
			ErrEmbeddingUnavailable, VectorDimension, len(values))
	}
	return pgvector.NewVector(values), nil
}

// Search returns up to limit entries whose cosine similarity to the query
// is at least threshold, ordered by similarity descending (ties broken by
// entry recency). An empty result is the "no relevant knowledge" branch,
// not an error.
func (r *Repository) Search(ctx context.Context, query string, limit int, threshold float64) ([]SimilarityResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", ErrInvalidInput)
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be >= 1, got %d", ErrInvalidInput, limit)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold must be in [0,1], got %v", ErrInvalidInput, threshold)
	}

	vec, err := r.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.store.QuerySimilar(ctx, vec, limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	r.logger.Debug("similarity search", "limit", limit, "threshold", threshold, "results", len(results))
	return results, nil
}

// Create embeds the content and inserts the entry. The write is only
// acknowledged once the embedding is stored alongside it.
func (r *Repository) Create(ctx context.Context, arg CreateParams) (*Entry, error) {
	if strings.TrimSpace(arg.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	if strings.TrimSpace(arg.Content) == "" {
		return nil, fmt.Errorf("%w: content must not be empty", ErrInvalidInput)
	}

	vec, err := r.embed(ctx, arg.Content)
	if err != nil {
		return nil, fmt.Errorf("embedding content: %w", err)
	}

	entry, err := r.store.InsertEntry(ctx, arg, vec)
	if err != nil {
		return nil, err
	}

	r.logger.Info("created knowledge entry", "id", entry.ID, "title", entry.Title)
	return entry, nil
}

// Get retrieves an entry by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return r.store.GetEntry(ctx, id)
}

// Update applies a partial update. The embedding is recomputed only when
// the new content actually differs from what is stored; title- or
// source-only edits never touch the provider.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, arg UpdateParams) (*Entry, error) {
	if arg.Title != nil && strings.TrimSpace(*arg.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	if arg.Content != nil && strings.TrimSpace(*arg.Content) == "" {
		return nil, fmt.Errorf("%w: content must not be empty", ErrInvalidInput)
	}

	var embedding *pgvector.Vector
	if arg.Content != nil {
		existing, err := r.store.GetEntry(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing.Content != *arg.Content {
			vec, err := r.embed(ctx, *arg.Content)
			if err != nil {
				return nil, fmt.Errorf("embedding content: %w", err)
			}
			embedding = &vec
		}
	}

	entry, err := r.store.UpdateEntry(ctx, id, arg, embedding)
	if err != nil {
		return nil, err
	}

	r.logger.Info("updated knowledge entry", "id", entry.ID, "embedding_refreshed", embedding != nil)
	return entry, nil
}

// Delete removes an entry. Entries have no dependents, so deletion never
// cascades.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*Entry, error) {
	entry, err := r.store.DeleteEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	r.logger.Info("deleted knowledge entry", "id", entry.ID, "title", entry.Title)
	return entry, nil
}

// List returns all entries, newest first.
func (r *Repository) List(ctx context.Context) ([]*Entry, error) {
	return r.store.ListEntries(ctx)
}

package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// entryCols is the standard SELECT column list for scanEntry.
const entryCols = `id, title, content, source_url, created_at, updated_at`

// PGStore persists knowledge entries in PostgreSQL + pgvector. It is the
// only place that touches the embedding column or the <=> distance
// operator.
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

// InsertEntry inserts a new entry with its embedding and returns the
// stored row.
func (s *PGStore) InsertEntry(ctx context.Context, arg CreateParams, embedding pgvector.Vector) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO entries (title, content, source_url, embedding)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+entryCols,
		arg.Title, arg.Content, arg.SourceURL, embedding,
	)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("inserting entry: %w", err)
	}

	s.logger.Debug("inserted entry", "id", entry.ID, "title", entry.Title)
	return entry, nil
}

// GetEntry retrieves an entry by ID. Returns ErrNotFound if absent.
func (s *PGStore) GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+entryCols+` FROM entries WHERE id = $1`, id)

	entry, err := scanEntry(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("getting entry %s: %w", id, err)
	}
	return entry, nil
}

// UpdateEntry applies a partial update. Nil fields keep their stored
// values via COALESCE; a nil embedding keeps the stored vector.
// Returns ErrNotFound if the entry does not exist.
func (s *PGStore) UpdateEntry(ctx context.Context, id uuid.UUID, arg UpdateParams, embedding *pgvector.Vector) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE entries
		 SET title      = COALESCE($2, title),
		     content    = COALESCE($3, content),
		     source_url = COALESCE($4, source_url),
		     embedding  = COALESCE($5, embedding),
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+entryCols,
		id, arg.Title, arg.Content, arg.SourceURL, embedding,
	)

	entry, err := scanEntry(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("updating entry %s: %w", id, err)
	}

	s.logger.Debug("updated entry", "id", entry.ID, "embedding_refreshed", embedding != nil)
	return entry, nil
}

// DeleteEntry removes an entry and returns its last stored state.
// Returns ErrNotFound if the entry does not exist.
func (s *PGStore) DeleteEntry(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		`DELETE FROM entries WHERE id = $1 RETURNING `+entryCols, id)

	entry, err := scanEntry(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("entry %s: %w", id, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("deleting entry %s: %w", id, err)
	}

	s.logger.Debug("deleted entry", "id", entry.ID, "title", entry.Title)
	return entry, nil
}

// ListEntries returns all entries ordered by creation time, newest first.
func (s *PGStore) ListEntries(ctx context.Context) ([]*Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+entryCols+` FROM entries ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return entries, nil
}

// QuerySimilar runs the vector similarity query. Rows with a NULL
// embedding are excluded. Results satisfy similarity >= threshold and come
// back ordered by similarity descending with created_at descending as the
// deterministic tie-break, truncated to limit.
func (s *PGStore) QuerySimilar(ctx context.Context, query pgvector.Vector, limit int, threshold float64) ([]SimilarityResult, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, content, source_url,
		        1 - (embedding <=> $1) AS similarity
		 FROM entries
		 WHERE embedding IS NOT NULL
		   AND 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1, created_at DESC
		 LIMIT $3`,
		query, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying similar entries: %w", err)
	}
	defer rows.Close()

	results := make([]SimilarityResult, 0, limit)
	for rows.Next() {
		var r SimilarityResult
		if err := rows.Scan(&r.ID, &r.Title, &r.Content, &r.SourceURL, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning similarity row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying similar entries: %w", err)
	}
	return results, nil
}

// scanEntry scans a single entry row.
func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	if err := row.Scan(&e.ID, &e.Title, &e.Content, &e.SourceURL, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

package knowledge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaai/vita/internal/knowledge"
	"github.com/vitaai/vita/internal/testutil"
)

// unitVector returns a 768-dimension unit vector pointing along axis.
// Distinct axes are orthogonal, so cosine similarity between different
// axes is 0 and between identical axes is 1.
func unitVector(axis int) pgvector.Vector {
	values := make([]float32, knowledge.VectorDimension)
	values[axis] = 1
	return pgvector.NewVector(values)
}

func TestPGStore_EntryLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := knowledge.NewPGStore(tdb.Pool, nil)
	require.NoError(t, err)

	entry, err := store.InsertEntry(ctx, knowledge.CreateParams{
		Title:     "Influenza",
		Content:   "Flu is a contagious respiratory illness.",
		SourceURL: "https://example.org/flu",
	}, unitVector(0))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, "Influenza", entry.Title)

	got, err := store.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Content, got.Content)

	newTitle := "Influenza (flu)"
	updated, err := store.UpdateEntry(ctx, entry.ID, knowledge.UpdateParams{Title: &newTitle}, nil)
	require.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)
	assert.Equal(t, entry.Content, updated.Content, "unset fields must be kept")
	assert.True(t, updated.UpdatedAt.After(entry.UpdatedAt) || updated.UpdatedAt.Equal(entry.UpdatedAt))

	entries, err := store.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	deleted, err := store.DeleteEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, deleted.ID)

	_, err = store.GetEntry(ctx, entry.ID)
	assert.True(t, errors.Is(err, knowledge.ErrNotFound))
}

func TestPGStore_QuerySimilar_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := knowledge.NewPGStore(tdb.Pool, nil)
	require.NoError(t, err)

	flu, err := store.InsertEntry(ctx, knowledge.CreateParams{
		Title:   "Influenza",
		Content: "Flu is a contagious respiratory illness.",
	}, unitVector(0))
	require.NoError(t, err)

	_, err = store.InsertEntry(ctx, knowledge.CreateParams{
		Title:   "Diabetes",
		Content: "Diabetes affects how the body turns food into energy.",
	}, unitVector(1))
	require.NoError(t, err)

	// Query aligned with the flu vector. The orthogonal diabetes entry
	// has similarity 0 and falls below threshold.
	results, err := store.QuerySimilar(ctx, unitVector(0), 3, 0.6)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, flu.ID, results[0].ID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)

	// Threshold of 0 admits everything, ordered by similarity.
	results, err = store.QuerySimilar(ctx, unitVector(0), 3, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, flu.ID, results[0].ID)

	// Limit caps the result set.
	results, err = store.QuerySimilar(ctx, unitVector(0), 1, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestPGStore_QuerySimilar_EqualSimilarityOrder_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := knowledge.NewPGStore(tdb.Pool, nil)
	require.NoError(t, err)

	// Two entries with the same embedding, written a day apart. Explicit
	// timestamps keep the tie-break observable; NOW() could collide.
	vec := unitVector(0)
	var olderID, newerID uuid.UUID
	err = tdb.Pool.QueryRow(ctx,
		"INSERT INTO entries (title, content, embedding, created_at) VALUES ($1, $2, $3, $4) RETURNING id",
		"Flu (older)", "First revision.", vec, "2026-01-01T00:00:00Z").Scan(&olderID)
	require.NoError(t, err)
	err = tdb.Pool.QueryRow(ctx,
		"INSERT INTO entries (title, content, embedding, created_at) VALUES ($1, $2, $3, $4) RETURNING id",
		"Flu (newer)", "Second revision.", vec, "2026-01-02T00:00:00Z").Scan(&newerID)
	require.NoError(t, err)

	// Equal similarity falls through to created_at DESC, newest first.
	first, err := store.QuerySimilar(ctx, vec, 10, 0.6)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, newerID, first[0].ID)
	assert.Equal(t, olderID, first[1].ID)

	// Repeating the query must not reshuffle the tie.
	second, err := store.QuerySimilar(ctx, vec, 10, 0.6)
	require.NoError(t, err)
	require.Len(t, second, 2)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestPGStore_QuerySimilar_SkipsNullEmbeddings_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store, err := knowledge.NewPGStore(tdb.Pool, nil)
	require.NoError(t, err)

	// Row written without an embedding, as left behind by a failed
	// backfill. It must never appear in search results.
	_, err = tdb.Pool.Exec(ctx,
		"INSERT INTO entries (title, content) VALUES ($1, $2)",
		"Orphan", "No embedding here.")
	require.NoError(t, err)

	results, err := store.QuerySimilar(ctx, unitVector(0), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

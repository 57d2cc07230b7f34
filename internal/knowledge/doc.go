// Package knowledge manages the medical knowledge base backing the RAG
// pipeline: entry CRUD with synchronous embedding maintenance, and vector
// similarity search over PostgreSQL + pgvector.
//
// The package has two layers:
//
//   - PGStore: the single adapter that knows about the pgvector column and
//     the <=> distance operator. All vector SQL lives here.
//   - Repository: the business layer. It owns the embedding lifecycle
//     (content changes force re-embedding before the write is acknowledged)
//     and the search contract (threshold filtering, descending similarity,
//     recency tie-break, limit).
//
// Entries whose embedding column is NULL are excluded from similarity
// search; they appear after a crash between "compute embedding" and
// "write row" and are otherwise harmless.
package knowledge

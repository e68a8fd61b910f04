// Package sqlite implements the vector index over a single SQLite database.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. Two collections live in
// one database file:
//
//   - courses/lessons: the course catalog, one embedded record per course,
//     used for fuzzy title resolution and outline retrieval
//   - chunks: the content collection, one embedded record per chunk, with
//     course title and lesson number as filterable columns
//
// Embeddings are stored as little-endian float32 blobs and compared by
// cosine distance with a brute-force scan. A course library is a few
// thousand chunks at most; an approximate index would cost more than it
// saves here.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.lectern/data/index.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode.
package sqlite

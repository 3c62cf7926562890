// Package sqlite provides a SQLite-backed vector index.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. Chunk embeddings are stored as little-endian float32 BLOBs
// and scored by brute-force cosine similarity; category scoping is pushed into
// the query.
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory.
//
// # Data Location
//
// Each rebuild writes a new generation directory under the index path holding
// an index.db file. See the generation package for the swap protocol.
package sqlite

package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/generation"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/ranking"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

const (
	dbFileName       = "index.db"
	generationPrefix = "sqlite"
)

// Index is a VectorIndex persisted in SQLite.
type Index struct {
	gens *generation.Set[*generationDB]
}

var _ driven.VectorIndex = (*Index)(nil)

// generationDB is an open connection to one index generation.
type generationDB struct {
	db   *sql.DB
	dims int
}

func (g *generationDB) Close() error {
	return g.db.Close()
}

// NewIndex opens the index stored under dir.
// If dir is empty, defaults to ~/.docrag/index.
func NewIndex(dir string) (*Index, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".docrag", "index")
	}

	gens, err := generation.Open(dir, generationPrefix, openGeneration)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite index: %w", err)
	}
	return &Index{gens: gens}, nil
}

// Dir returns the index directory.
func (i *Index) Dir() string {
	return i.gens.Dir()
}

// Close closes the live generation and releases the directory lock.
func (i *Index) Close() error {
	return i.gens.Close()
}

// Rebuild writes chunks to a new generation and swaps it in.
func (i *Index) Rebuild(ctx context.Context, chunks []domain.Chunk) error {
	dims, err := ranking.Validate(chunks)
	if err != nil {
		return err
	}
	return i.gens.Rebuild(func(path string) error {
		return writeGeneration(ctx, path, chunks, dims)
	})
}

// Search scores every chunk in scope against query.
func (i *Index) Search(ctx context.Context, query []float32, k int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return []domain.RetrievedChunk{}, nil
	}

	var results []domain.RetrievedChunk
	err := i.gens.View(func(g *generationDB, ok bool) error {
		if !ok {
			return nil
		}
		if g.dims > 0 && len(query) != g.dims {
			return fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrInvalidInput, len(query), g.dims)
		}

		q := `SELECT seq, id, document_id, content, position, origin_path, category, version, page, embedding FROM chunks`
		var args []any
		if filter.Category != "" {
			q += ` WHERE category = ?`
			args = append(args, filter.Category)
		}

		rows, err := g.db.QueryContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("querying chunks: %w", err)
		}
		defer rows.Close()

		var cands []ranking.Candidate
		for rows.Next() {
			var c domain.Chunk
			var seq int64
			var blob []byte
			if err := rows.Scan(&seq, &c.ID, &c.DocumentID, &c.Content, &c.Position,
				&c.OriginPath, &c.Category, &c.Version, &c.Page, &blob); err != nil {
				return fmt.Errorf("scanning chunk: %w", err)
			}
			c.Embedding = decodeEmbedding(blob)
			sim, err := ranking.Cosine(query, c.Embedding)
			if err != nil {
				return err
			}
			cands = append(cands, ranking.Candidate{Chunk: c, Similarity: sim, Seq: seq})
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterating chunks: %w", err)
		}
		results = ranking.Top(cands, k)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []domain.RetrievedChunk{}
	}
	return results, nil
}

// Count returns the number of chunks in the live generation.
func (i *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := i.gens.View(func(g *generationDB, ok bool) error {
		if !ok {
			return nil
		}
		return g.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Categories returns the distinct categories in the live generation.
func (i *Index) Categories(ctx context.Context) ([]string, error) {
	cats := []string{}
	err := i.gens.View(func(g *generationDB, ok bool) error {
		if !ok {
			return nil
		}
		rows, err := g.db.QueryContext(ctx, `SELECT DISTINCT category FROM chunks ORDER BY category`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var c string
			if err := rows.Scan(&c); err != nil {
				return err
			}
			cats = append(cats, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

// Clear removes every generation.
func (i *Index) Clear(_ context.Context) error {
	return i.gens.Clear()
}

func openGeneration(path string) (*generationDB, error) {
	db, err := openDB(filepath.Join(path, dbFileName))
	if err != nil {
		return nil, err
	}

	g := &generationDB{db: db}
	var dims string
	err = db.QueryRow(`SELECT value FROM index_meta WHERE key = 'dimensions'`).Scan(&dims)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("reading index metadata: %w", err)
	default:
		g.dims, _ = strconv.Atoi(dims)
	}
	return g, nil
}

func writeGeneration(ctx context.Context, path string, chunks []domain.Chunk, dims int) error {
	db, err := openDB(filepath.Join(path, dbFileName))
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (seq, id, document_id, content, position, origin_path, category, version, page, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for seq, c := range chunks {
		if _, err := stmt.ExecContext(ctx, seq, c.ID, c.DocumentID, c.Content, c.Position,
			c.OriginPath, c.Category, c.Version, c.Page, encodeEmbedding(c.Embedding)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}

	meta := map[string]string{
		"dimensions": strconv.Itoa(dims),
		"built_at":   time.Now().UTC().Format(time.RFC3339),
		"chunks":     strconv.Itoa(len(chunks)),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO index_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("writing index metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

func openDB(path string) (*sql.DB, error) {
	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := migrate(db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// migrate runs all pending migrations.
func migrate(db *sql.DB, fsys embed.FS) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

// encodeEmbedding packs a vector as little-endian float32 values.
func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(data []byte) []float32 {
	if len(data)%4 != 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

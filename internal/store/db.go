// Package store is the SQLite repository for items, connections and
// suggestions. Embeddings are stored as JSON blobs next to their items; when
// the sqlite-vec extension is available an ANN index over item embeddings
// speeds up candidate-pool fetches, with a full-scan fallback otherwise.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/polymath-app/polymath/internal/logging"
)

func init() {
	sqlite_vec.Auto() // registers the vec0 virtual table with go-sqlite3
}

// DB wraps the SQLite database connection for the knowledge store
type DB struct {
	db           *sql.DB
	path         string
	vecAvailable bool
	vecDim       int // embedding dimension used in item_vec (0 = not yet determined)
}

// Open opens or creates the knowledge database under dataDir
func Open(dataDir string) (*DB, error) {
	dbPath := filepath.Join(dataDir, "polymath.db")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &DB{db: db, path: dbPath}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	// Check if sqlite-vec extension is available
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		logging.Warn("store", "sqlite-vec not available, falling back to full scan: %v", err)
	} else {
		logging.Info("store", "sqlite-vec %s loaded", vecVersion)
		s.vecAvailable = true
		if err := s.initVecTableFromItems(); err != nil {
			logging.Warn("store", "vec init: %v", err)
		}
	}

	return s, nil
}

// Close closes the database connection
func (s *DB) Close() error {
	return s.db.Close()
}

// migrate runs database migrations
func (s *DB) migrate() error {
	schema := `
	-- Schema version tracking
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Content items (thoughts, projects, articles)
	CREATE TABLE IF NOT EXISTS items (
		id TEXT NOT NULL,
		type TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT,
		embedding BLOB,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (type, id)
	);

	CREATE INDEX IF NOT EXISTS idx_items_type ON items(type);
	CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at);

	-- Extracted entities per item (people/places/topics for thoughts)
	CREATE TABLE IF NOT EXISTS item_entities (
		item_type TEXT NOT NULL,
		item_id TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		PRIMARY KEY (item_type, item_id, name),
		FOREIGN KEY (item_type, item_id) REFERENCES items(type, id) ON DELETE CASCADE
	);

	-- Connections: strong edges. pair_key is the normalized unordered endpoint
	-- pair; its UNIQUE index is what enforces the one-edge-per-pair invariant,
	-- so concurrent linkers cannot race a duplicate past the pre-check.
	CREATE TABLE IF NOT EXISTS connections (
		id TEXT PRIMARY KEY,
		pair_key TEXT NOT NULL,
		source_type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		connection_type TEXT NOT NULL DEFAULT 'related',
		created_by TEXT NOT NULL,
		reasoning TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_connections_pair ON connections(pair_key);
	CREATE INDEX IF NOT EXISTS idx_connections_source ON connections(source_type, source_id);
	CREATE INDEX IF NOT EXISTS idx_connections_target ON connections(target_type, target_id);

	-- Connection suggestions: weaker edges awaiting accept/dismiss
	CREATE TABLE IF NOT EXISTS suggestions (
		id TEXT PRIMARY KEY,
		pair_key TEXT NOT NULL,
		from_type TEXT NOT NULL,
		from_id TEXT NOT NULL,
		to_type TEXT NOT NULL,
		to_id TEXT NOT NULL,
		confidence REAL NOT NULL,
		reasoning TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- One pending suggestion per pair; resolved rows are kept as history
	CREATE UNIQUE INDEX IF NOT EXISTS idx_suggestions_pending
		ON suggestions(pair_key) WHERE status = 'pending';
	CREATE INDEX IF NOT EXISTS idx_suggestions_status ON suggestions(status);

	-- Rebuilt maps, one JSON payload per version
	CREATE TABLE IF NOT EXISTS maps (
		version INTEGER PRIMARY KEY AUTOINCREMENT,
		payload TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	return nil
}

// initVecTableFromItems reads the embedding dimension from existing items,
// creates the item_vec virtual table with that dimension (if missing) and
// backfills existing embeddings. No-ops when no embedded items exist yet.
func (s *DB) initVecTableFromItems() error {
	var embBytes []byte
	err := s.db.QueryRow(`SELECT embedding FROM items WHERE embedding IS NOT NULL AND LENGTH(embedding) > 4 LIMIT 1`).Scan(&embBytes)
	if err != nil {
		return nil // no embedded items yet; defer to first UpsertItem
	}
	var emb []float64
	if err := json.Unmarshal(embBytes, &emb); err != nil || len(emb) == 0 {
		return nil
	}
	return s.ensureVecTable(len(emb))
}

// ensureVecTable creates the item_vec virtual table for the given embedding
// dimension (if not yet created) and backfills all embedded items.
// Idempotent for the same dim.
//
// Uses integer rowid (from the items table) + auxiliary +item_type/+item_id
// columns, avoiding vec0's TEXT PRIMARY KEY partitioning behaviour which
// breaks KNN queries.
func (s *DB) ensureVecTable(dim int) error {
	if s.vecDim == dim {
		return nil
	}
	if s.vecDim != 0 && s.vecDim != dim {
		return fmt.Errorf("embedding dim %d doesn't match vec table dim %d", dim, s.vecDim)
	}

	_, err := s.db.Exec(fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS item_vec USING vec0(
			embedding float[%d],
			+item_type TEXT,
			+item_id TEXT
		)
	`, dim))
	if err != nil {
		return fmt.Errorf("failed to create item_vec(float[%d]): %w", dim, err)
	}
	s.vecDim = dim

	rows, err := s.db.Query(`SELECT rowid, type, id, embedding FROM items WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil // backfill failure is non-fatal
	}
	defer rows.Close()

	tx, err := s.db.Begin()
	if err != nil {
		return nil
	}

	var count int
	for rows.Next() {
		var rowid int64
		var itemType, id string
		var embBytes []byte
		if err := rows.Scan(&rowid, &itemType, &id, &embBytes); err != nil {
			continue
		}
		var emb []float64
		if err := json.Unmarshal(embBytes, &emb); err != nil || len(emb) != dim {
			continue
		}
		if err := upsertVecRow(tx, rowid, itemType, id, emb); err != nil {
			logging.Warn("store", "vec backfill failed for %s:%s: %v", itemType, id, err)
			continue
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return nil
	}
	if count > 0 {
		logging.Info("store", "vec backfill: indexed %d items (dim=%d)", count, dim)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// upsertVecRow writes one normalized embedding into item_vec. vec0 does not
// reliably support INSERT OR REPLACE; use DELETE + INSERT.
func upsertVecRow(e execer, rowid int64, itemType, id string, emb []float64) error {
	serialized, err := sqlite_vec.SerializeFloat32(normalizeFloat32(float64ToFloat32(emb)))
	if err != nil {
		return err
	}
	e.Exec(`DELETE FROM item_vec WHERE rowid = ?`, rowid)
	_, err = e.Exec(`INSERT INTO item_vec(rowid, embedding, item_type, item_id) VALUES (?, ?, ?, ?)`,
		rowid, serialized, itemType, id)
	return err
}

// float64ToFloat32 converts a float64 slice to float32
func float64ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// normalizeFloat32 returns a unit-length copy of the vector.
// Normalizing before storing in vec0 makes L2 distance equivalent to cosine
// distance: cosine_dist = L2_dist² / 2 (for unit vectors).
func normalizeFloat32(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Stats returns row counts per table
func (s *DB) Stats() (map[string]int, error) {
	stats := make(map[string]int)

	tables := []string{"items", "item_entities", "connections", "suggestions", "maps"}
	for _, table := range tables {
		var count int
		err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
		if err != nil {
			return nil, err
		}
		stats[table] = count
	}

	return stats, nil
}

// Clear removes all data (for testing/reset)
func (s *DB) Clear() error {
	tables := []string{"suggestions", "connections", "item_entities", "items", "maps"}
	for _, table := range tables {
		if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if s.vecDim != 0 {
		s.db.Exec("DELETE FROM item_vec")
	}
	return nil
}

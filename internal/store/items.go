package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// UpsertItem inserts or updates an item and keeps the vec index in sync
func (s *DB) UpsertItem(it *Item) error {
	if it.ID == "" || !it.Type.Valid() {
		return fmt.Errorf("item id and valid type are required")
	}

	var embeddingBytes []byte
	if len(it.Embedding) > 0 {
		b, err := json.Marshal(it.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		embeddingBytes = b
	}

	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now()
	}
	it.UpdatedAt = time.Now()

	_, err := s.db.Exec(`
		INSERT INTO items (id, type, title, content, embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(type, id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`, it.ID, string(it.Type), it.Title, it.Content, embeddingBytes, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}

	if s.vecAvailable && len(it.Embedding) > 0 {
		if err := s.indexItemVec(it); err != nil {
			// Index maintenance is best-effort; the full-scan path still works
			return nil
		}
	}

	return nil
}

// indexItemVec writes the item's embedding into the ANN index
func (s *DB) indexItemVec(it *Item) error {
	if s.vecDim == 0 {
		if err := s.ensureVecTable(len(it.Embedding)); err != nil {
			return err
		}
	}
	if len(it.Embedding) != s.vecDim {
		return fmt.Errorf("embedding dim %d doesn't match index dim %d", len(it.Embedding), s.vecDim)
	}

	var rowid int64
	err := s.db.QueryRow(`SELECT rowid FROM items WHERE type = ? AND id = ?`, string(it.Type), it.ID).Scan(&rowid)
	if err != nil {
		return err
	}
	return upsertVecRow(s.db, rowid, string(it.Type), it.ID, it.Embedding)
}

// GetItem retrieves an item by type and id. Returns nil when absent.
func (s *DB) GetItem(ref ItemRef) (*Item, error) {
	row := s.db.QueryRow(`
		SELECT id, type, title, content, embedding, created_at, updated_at
		FROM items WHERE type = ? AND id = ?
	`, string(ref.Type), ref.ID)
	return scanItem(row)
}

// DeleteItem removes an item, its entities and its vec index row
func (s *DB) DeleteItem(ref ItemRef) error {
	if s.vecDim != 0 {
		var rowid int64
		if err := s.db.QueryRow(`SELECT rowid FROM items WHERE type = ? AND id = ?`,
			string(ref.Type), ref.ID).Scan(&rowid); err == nil {
			s.db.Exec(`DELETE FROM item_vec WHERE rowid = ?`, rowid)
		}
	}
	_, err := s.db.Exec(`DELETE FROM items WHERE type = ? AND id = ?`, string(ref.Type), ref.ID)
	return err
}

// AllEmbedded returns every item that currently has an embedding, across all
// types. This is the clustering snapshot; items without embeddings are
// excluded by definition.
func (s *DB) AllEmbedded() ([]*Item, error) {
	rows, err := s.db.Query(`
		SELECT id, type, title, content, embedding, created_at, updated_at
		FROM items WHERE embedding IS NOT NULL
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embedded items: %w", err)
	}
	defer rows.Close()
	return scanItemRows(rows)
}

// Candidates fetches up to limit embedded items of the given type, excluding
// the listed refs (the source item and anything already connected to it).
// When the ANN index is available, candidates come back nearest-first for the
// query embedding; otherwise a recency-ordered full scan is used. Either way
// the caller rescores with exact cosine similarity.
func (s *DB) Candidates(itemType ItemType, queryEmb []float64, exclude []ItemRef, limit int) ([]*Item, error) {
	if limit <= 0 {
		limit = 50
	}

	excluded := make(map[string]bool, len(exclude))
	for _, ref := range exclude {
		excluded[ref.Key()] = true
	}

	if s.vecAvailable && s.vecDim != 0 && len(queryEmb) == s.vecDim {
		items, err := s.candidatesViaVec(itemType, queryEmb, excluded, limit)
		if err == nil {
			return items, nil
		}
		// fall through to full scan
	}

	rows, err := s.db.Query(`
		SELECT id, type, title, content, embedding, created_at, updated_at
		FROM items WHERE type = ? AND embedding IS NOT NULL
		ORDER BY created_at DESC
	`, string(itemType))
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	all, err := scanItemRows(rows)
	if err != nil {
		return nil, err
	}

	items := make([]*Item, 0, limit)
	for _, it := range all {
		if excluded[it.Ref().Key()] {
			continue
		}
		items = append(items, it)
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

// candidatesViaVec runs a KNN query against item_vec. vec0 cannot filter on
// auxiliary columns inside the MATCH, so it over-fetches and filters by type
// and exclusion afterwards.
func (s *DB) candidatesViaVec(itemType ItemType, queryEmb []float64, excluded map[string]bool, limit int) ([]*Item, error) {
	serialized, err := sqlite_vec.SerializeFloat32(normalizeFloat32(float64ToFloat32(queryEmb)))
	if err != nil {
		return nil, err
	}

	// Over-fetch: the index holds all types plus excluded ids
	k := limit*4 + len(excluded)
	rows, err := s.db.Query(`
		SELECT item_type, item_id FROM item_vec
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance
	`, serialized, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []ItemRef
	for rows.Next() {
		var t, id string
		if err := rows.Scan(&t, &id); err != nil {
			continue
		}
		ref := ItemRef{Type: ItemType(t), ID: id}
		if ref.Type != itemType || excluded[ref.Key()] {
			continue
		}
		refs = append(refs, ref)
		if len(refs) >= limit {
			break
		}
	}

	items := make([]*Item, 0, len(refs))
	for _, ref := range refs {
		it, err := s.GetItem(ref)
		if err != nil || it == nil {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// SetItemEntities replaces the extracted entity set for an item
func (s *DB) SetItemEntities(ref ItemRef, entities map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM item_entities WHERE item_type = ? AND item_id = ?`,
		string(ref.Type), ref.ID); err != nil {
		return fmt.Errorf("failed to clear item entities: %w", err)
	}
	for name, kind := range entities {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO item_entities (item_type, item_id, name, kind) VALUES (?, ?, ?, ?)
		`, string(ref.Type), ref.ID, name, kind); err != nil {
			return fmt.Errorf("failed to insert item entity: %w", err)
		}
	}
	return tx.Commit()
}

// ItemEntities returns the extracted entity names for an item, keyed by name
// with the entity kind as value
func (s *DB) ItemEntities(ref ItemRef) (map[string]string, error) {
	rows, err := s.db.Query(`
		SELECT name, kind FROM item_entities WHERE item_type = ? AND item_id = ?
	`, string(ref.Type), ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query item entities: %w", err)
	}
	defer rows.Close()

	entities := make(map[string]string)
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			continue
		}
		entities[name] = kind
	}
	return entities, nil
}

// scannable covers *sql.Row and *sql.Rows
type scannable interface {
	Scan(dest ...any) error
}

func scanItem(row scannable) (*Item, error) {
	var it Item
	var itemType string
	var content sql.NullString
	var embBytes []byte

	err := row.Scan(&it.ID, &itemType, &it.Title, &content, &embBytes, &it.CreatedAt, &it.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}

	it.Type = ItemType(itemType)
	it.Content = content.String
	if len(embBytes) > 0 {
		if err := json.Unmarshal(embBytes, &it.Embedding); err != nil {
			it.Embedding = nil
		}
	}
	return &it, nil
}

func scanItemRows(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			continue
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConnectionExists reports whether a connection exists between the two
// endpoints, in either direction
func (s *DB) ConnectionExists(a, b ItemRef) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM connections WHERE pair_key = ?`, PairKey(a, b)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check connection: %w", err)
	}
	return count > 0, nil
}

// InsertConnection creates a connection if none exists for the endpoint pair.
// The UNIQUE index on pair_key makes this an idempotent insert-if-absent:
// losing a race to a concurrent linker is reported as created=false, not an
// error. Self-edges are rejected.
func (s *DB) InsertConnection(c *Connection) (bool, error) {
	if c.Source == c.Target {
		return false, ErrSelfEdge
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ConnectionType == "" {
		c.ConnectionType = "related"
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO connections
			(id, pair_key, source_type, source_id, target_type, target_id,
			 connection_type, created_by, reasoning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, PairKey(c.Source, c.Target),
		string(c.Source.Type), c.Source.ID, string(c.Target.Type), c.Target.ID,
		c.ConnectionType, c.CreatedBy, c.Reasoning, c.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert connection: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteConnection removes a connection by id
func (s *DB) DeleteConnection(id string) error {
	_, err := s.db.Exec(`DELETE FROM connections WHERE id = ?`, id)
	return err
}

// ConnectedRefs returns the refs of every item connected to the given item,
// regardless of which endpoint it was recorded as
func (s *DB) ConnectedRefs(ref ItemRef) ([]ItemRef, error) {
	rows, err := s.db.Query(`
		SELECT source_type, source_id, target_type, target_id
		FROM connections
		WHERE (source_type = ? AND source_id = ?) OR (target_type = ? AND target_id = ?)
	`, string(ref.Type), ref.ID, string(ref.Type), ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var refs []ItemRef
	for rows.Next() {
		var st, sid, tt, tid string
		if err := rows.Scan(&st, &sid, &tt, &tid); err != nil {
			continue
		}
		source := ItemRef{Type: ItemType(st), ID: sid}
		target := ItemRef{Type: ItemType(tt), ID: tid}
		if source == ref {
			refs = append(refs, target)
		} else {
			refs = append(refs, source)
		}
	}
	return refs, rows.Err()
}

// ConnectionsFor returns all connections touching the given item
func (s *DB) ConnectionsFor(ref ItemRef) ([]*Connection, error) {
	rows, err := s.db.Query(`
		SELECT id, source_type, source_id, target_type, target_id,
			connection_type, created_by, reasoning, created_at
		FROM connections
		WHERE (source_type = ? AND source_id = ?) OR (target_type = ? AND target_id = ?)
		ORDER BY created_at DESC
	`, string(ref.Type), ref.ID, string(ref.Type), ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []*Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			continue
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func scanConnection(rows *sql.Rows) (*Connection, error) {
	var c Connection
	var st, sid, tt, tid string
	var reasoning sql.NullString
	err := rows.Scan(&c.ID, &st, &sid, &tt, &tid,
		&c.ConnectionType, &c.CreatedBy, &reasoning, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Source = ItemRef{Type: ItemType(st), ID: sid}
	c.Target = ItemRef{Type: ItemType(tt), ID: tid}
	c.Reasoning = reasoning.String
	return &c, nil
}

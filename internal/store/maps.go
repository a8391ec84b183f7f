package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveMap stores a rebuilt map payload and returns its version. Older
// versions are pruned so the table holds only the latest rebuild plus one
// predecessor for debugging.
func (s *DB) SaveMap(payload []byte) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO maps (payload, created_at) VALUES (?, ?)`,
		string(payload), time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to save map: %w", err)
	}
	version, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	s.db.Exec(`DELETE FROM maps WHERE version < ?`, version-1)
	return version, nil
}

// LatestMap returns the newest map payload and its version. Returns version 0
// and a nil payload when no map has been built yet.
func (s *DB) LatestMap() (int64, []byte, error) {
	var version int64
	var payload string
	err := s.db.QueryRow(`SELECT version, payload FROM maps ORDER BY version DESC LIMIT 1`).
		Scan(&version, &payload)
	if err == sql.ErrNoRows {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load map: %w", err)
	}
	return version, []byte(payload), nil
}

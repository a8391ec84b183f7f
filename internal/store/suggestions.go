package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/polymath-app/polymath/internal/logging"
)

// InsertSuggestions persists a batch of suggestions best-effort: a failure on
// one row is logged and skipped without aborting siblings. Returns the number
// actually inserted. A pair that already has a pending suggestion is skipped
// via the partial UNIQUE index, so re-running the linker does not pile up
// duplicate pending rows.
func (s *DB) InsertSuggestions(suggestions []*Suggestion) (int, error) {
	var inserted int
	for _, sg := range suggestions {
		if sg.From == sg.To {
			logging.Debug("store", "skipping self-suggestion for %s", sg.From.Key())
			continue
		}
		if sg.ID == "" {
			sg.ID = uuid.NewString()
		}
		if sg.Status == "" {
			sg.Status = SuggestionPending
		}
		if sg.CreatedAt.IsZero() {
			sg.CreatedAt = time.Now()
		}

		res, err := s.db.Exec(`
			INSERT OR IGNORE INTO suggestions
				(id, pair_key, from_type, from_id, to_type, to_id,
				 confidence, reasoning, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, sg.ID, PairKey(sg.From, sg.To),
			string(sg.From.Type), sg.From.ID, string(sg.To.Type), sg.To.ID,
			sg.Confidence, sg.Reasoning, string(sg.Status), sg.CreatedAt)
		if err != nil {
			logging.Info("store", "failed to insert suggestion %s -> %s: %v",
				sg.From.Key(), sg.To.Key(), err)
			continue
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// ListSuggestions returns suggestions with the given status, newest first
func (s *DB) ListSuggestions(status SuggestionStatus, limit int) ([]*Suggestion, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, from_type, from_id, to_type, to_id, confidence, reasoning, status, created_at
		FROM suggestions WHERE status = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	var out []*Suggestion
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			continue
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

// GetSuggestion retrieves a suggestion by id. Returns nil when absent.
func (s *DB) GetSuggestion(id string) (*Suggestion, error) {
	rows, err := s.db.Query(`
		SELECT id, from_type, from_id, to_type, to_id, confidence, reasoning, status, created_at
		FROM suggestions WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestion: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, nil
	}
	return scanSuggestion(rows)
}

// ResolveSuggestion moves a pending suggestion to a terminal status. Accepting
// creates the corresponding connection through the same insert-if-absent path
// the linker uses, with created_by = 'user'. Resolving an already-terminal
// suggestion is an error: accepted and dismissed have no further transitions.
func (s *DB) ResolveSuggestion(id string, accept bool) error {
	sg, err := s.GetSuggestion(id)
	if err != nil {
		return err
	}
	if sg == nil {
		return fmt.Errorf("suggestion not found: %s", id)
	}
	if sg.Status != SuggestionPending {
		return fmt.Errorf("suggestion %s is already %s", id, sg.Status)
	}

	status := SuggestionDismissed
	if accept {
		status = SuggestionAccepted
	}
	if _, err := s.db.Exec(`UPDATE suggestions SET status = ? WHERE id = ?`, string(status), id); err != nil {
		return fmt.Errorf("failed to update suggestion: %w", err)
	}

	if accept {
		_, err := s.InsertConnection(&Connection{
			Source:    sg.From,
			Target:    sg.To,
			CreatedBy: CreatedByUser,
			Reasoning: sg.Reasoning,
		})
		if err != nil {
			return fmt.Errorf("failed to create connection from suggestion: %w", err)
		}
	}
	return nil
}

func scanSuggestion(rows *sql.Rows) (*Suggestion, error) {
	var sg Suggestion
	var ft, fid, tt, tid, status string
	var reasoning sql.NullString
	err := rows.Scan(&sg.ID, &ft, &fid, &tt, &tid, &sg.Confidence, &reasoning, &status, &sg.CreatedAt)
	if err != nil {
		return nil, err
	}
	sg.From = ItemRef{Type: ItemType(ft), ID: fid}
	sg.To = ItemRef{Type: ItemType(tt), ID: tid}
	sg.Reasoning = reasoning.String
	sg.Status = SuggestionStatus(status)
	return &sg, nil
}

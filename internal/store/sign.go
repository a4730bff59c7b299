package store

import (
	"database/sql"
	"time"
)

// ConfirmedSign is a sign the stabilizer confirmed.
type ConfirmedSign struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Label       string    `json:"label"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// SignRepository stores confirmed signs.
type SignRepository struct {
	db *sql.DB
}

// Signs returns the confirmed sign repository for this store.
func (s *Store) Signs() *SignRepository {
	return &SignRepository{db: s.db}
}

// Record inserts a confirmed sign.
func (r *SignRepository) Record(sessionID, label string, at time.Time) error {
	_, err := r.db.Exec(
		`INSERT INTO confirmed_signs (session_id, label, confirmed_at) VALUES (?, ?, ?)`,
		sessionID, label, at.UTC(),
	)
	return err
}

// ListBySession returns the signs of a session in confirmation order.
func (r *SignRepository) ListBySession(sessionID string) ([]ConfirmedSign, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, label, confirmed_at
		 FROM confirmed_signs
		 WHERE session_id = ?
		 ORDER BY confirmed_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signs []ConfirmedSign
	for rows.Next() {
		var c ConfirmedSign
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Label, &c.ConfirmedAt); err != nil {
			return nil, err
		}
		signs = append(signs, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return signs, nil
}

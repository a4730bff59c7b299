package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentence is a sentence saved by a client.
type Sentence struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SentenceRepository provides CRUD operations for sentences.
type SentenceRepository struct {
	db *sql.DB
}

// Sentences returns the sentence repository for this store.
func (s *Store) Sentences() *SentenceRepository {
	return &SentenceRepository{db: s.db}
}

// Create inserts a sentence, assigning an ID when it has none.
func (r *SentenceRepository) Create(sn *Sentence) error {
	if sn.ID == "" {
		sn.ID = uuid.NewString()
	}
	sn.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO sentences (id, session_id, text, created_at) VALUES (?, ?, ?, ?)`,
		sn.ID, sn.SessionID, sn.Text, sn.CreatedAt,
	)
	return err
}

// GetByID retrieves a sentence by its ID.
func (r *SentenceRepository) GetByID(id string) (*Sentence, error) {
	sn := &Sentence{}
	err := r.db.QueryRow(
		`SELECT id, session_id, text, created_at FROM sentences WHERE id = ?`,
		id,
	).Scan(&sn.ID, &sn.SessionID, &sn.Text, &sn.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sn, nil
}

// List retrieves all sentences, newest first.
func (r *SentenceRepository) List() ([]*Sentence, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, text, created_at FROM sentences ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sentences []*Sentence
	for rows.Next() {
		sn := &Sentence{}
		if err := rows.Scan(&sn.ID, &sn.SessionID, &sn.Text, &sn.CreatedAt); err != nil {
			return nil, err
		}
		sentences = append(sentences, sn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sentences, nil
}

// Delete removes a sentence by its ID.
func (r *SentenceRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sentences WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Capture is a labelled image saved to the dataset directory.
type Capture struct {
	ID        string    `json:"id"`
	Hand      string    `json:"hand"`
	Gesture   string    `json:"gesture"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// GestureCount is the number of captures of one gesture for one hand.
type GestureCount struct {
	Hand    string `json:"hand"`
	Gesture string `json:"gesture"`
	Count   int    `json:"count"`
}

// CaptureRepository indexes saved captures.
type CaptureRepository struct {
	db *sql.DB
}

// Captures returns the capture repository for this store.
func (s *Store) Captures() *CaptureRepository {
	return &CaptureRepository{db: s.db}
}

// Create inserts a capture, assigning an ID when it has none.
func (r *CaptureRepository) Create(c *Capture) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO captures (id, hand, gesture, path, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Hand, c.Gesture, c.Path, c.CreatedAt,
	)
	return err
}

// List retrieves captures, optionally filtered by hand and gesture.
// Empty filters match everything.
func (r *CaptureRepository) List(hand, gesture string) ([]*Capture, error) {
	rows, err := r.db.Query(
		`SELECT id, hand, gesture, path, created_at
		 FROM captures
		 WHERE (? = '' OR hand = ?) AND (? = '' OR gesture = ?)
		 ORDER BY created_at, path`,
		hand, hand, gesture, gesture,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []*Capture
	for rows.Next() {
		c := &Capture{}
		if err := rows.Scan(&c.ID, &c.Hand, &c.Gesture, &c.Path, &c.CreatedAt); err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return captures, nil
}

// Counts returns the number of captures per hand and gesture.
func (r *CaptureRepository) Counts() ([]GestureCount, error) {
	rows, err := r.db.Query(
		`SELECT hand, gesture, COUNT(*) FROM captures GROUP BY hand, gesture ORDER BY hand, gesture`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []GestureCount
	for rows.Next() {
		var c GestureCount
		if err := rows.Scan(&c.Hand, &c.Gesture, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}

	return counts, rows.Err()
}

package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Sample is one feature vector extracted from a capture for offline training.
type Sample struct {
	ID        int64     `json:"id"`
	Label     string    `json:"label"`
	Hand      string    `json:"hand"`
	Source    string    `json:"source"`
	Features  []float64 `json:"features"`
	CreatedAt time.Time `json:"created_at"`
}

// SampleRepository stores the extracted dataset.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Replace swaps the whole dataset for samples in a single transaction.
func (r *SampleRepository) Replace(samples []Sample) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM dataset_samples`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO dataset_samples (label, hand, source, features, created_at) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, s := range samples {
		data, err := json.Marshal(s.Features)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(s.Label, s.Hand, s.Source, string(data), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// List retrieves every sample in insertion order.
func (r *SampleRepository) List() ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, label, hand, source, features, created_at FROM dataset_samples ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.Label, &s.Hand, &s.Source, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &s.Features); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// Count returns the number of stored samples.
func (r *SampleRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM dataset_samples`).Scan(&n)
	return n, err
}

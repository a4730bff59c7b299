package store

import "time"

// Recorder adapts the store to the session history a worker writes.
type Recorder struct {
	store *Store
}

// Recorder returns the session history recorder backed by this store.
func (s *Store) Recorder() *Recorder {
	return &Recorder{store: s}
}

// RecordSign stores a confirmed sign.
func (r *Recorder) RecordSign(sessionID, label string, at time.Time) error {
	return r.store.Signs().Record(sessionID, label, at)
}

// SaveSentence stores text and returns the new sentence ID.
func (r *Recorder) SaveSentence(sessionID, text string) (string, error) {
	sn := &Sentence{SessionID: sessionID, Text: text}
	if err := r.store.Sentences().Create(sn); err != nil {
		return "", err
	}
	return sn.ID, nil
}

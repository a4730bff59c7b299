package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per connected client
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Confirmed signs table - signs the stabilizer confirmed during a session
		`CREATE TABLE IF NOT EXISTS confirmed_signs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			label TEXT NOT NULL,
			confirmed_at DATETIME NOT NULL
		)`,

		// Sentences table - sentences saved by clients
		`CREATE TABLE IF NOT EXISTS sentences (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Captures table - labelled images saved for the training dataset
		`CREATE TABLE IF NOT EXISTS captures (
			id TEXT PRIMARY KEY,
			hand TEXT NOT NULL CHECK(hand IN ('left', 'right')),
			gesture TEXT NOT NULL,
			path TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL
		)`,

		// Dataset samples table - feature vectors extracted from captures
		`CREATE TABLE IF NOT EXISTS dataset_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			label TEXT NOT NULL,
			hand TEXT NOT NULL,
			source TEXT NOT NULL,
			features TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_confirmed_signs_session_id ON confirmed_signs(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sentences_session_id ON sentences(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_captures_gesture ON captures(hand, gesture)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

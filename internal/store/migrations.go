package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Gesture events - one row per emitted gesture and the command it triggered
		`CREATE TABLE IF NOT EXISTS gesture_events (
			id TEXT PRIMARY KEY,
			gesture TEXT NOT NULL CHECK(gesture IN ('pinch_toggle', 'swipe_forward', 'swipe_backward')),
			command TEXT NOT NULL,
			handedness TEXT NOT NULL DEFAULT '',
			succeeded INTEGER NOT NULL DEFAULT 1,
			error TEXT NOT NULL DEFAULT '',
			emitted_ms INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_gesture_events_created_at ON gesture_events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_gesture_events_gesture ON gesture_events(gesture)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

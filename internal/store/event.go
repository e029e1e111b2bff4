package store

import (
	"database/sql"
	"errors"
	"time"
)

// DefaultEventLimit is the number of events List returns when no limit is given.
const DefaultEventLimit = 50

// Event is a recorded gesture emission. EmittedMs is the classifier's
// monotonic timestamp, comparable only within one pipeline run; CreatedAt is
// wall time.
type Event struct {
	ID         string    `json:"id"`
	Gesture    string    `json:"gesture"`
	Command    string    `json:"command"`
	Handedness string    `json:"handedness,omitempty"`
	Succeeded  bool      `json:"succeeded"`
	Error      string    `json:"error,omitempty"`
	EmittedMs  int64     `json:"emittedMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// EventRepository provides access to the gesture history.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts a new event. CreatedAt is set when zero.
func (r *EventRepository) Create(e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO gesture_events (id, gesture, command, handedness, succeeded, error, emitted_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Gesture, e.Command, e.Handedness, e.Succeeded, e.Error, e.EmittedMs, e.CreatedAt,
	)
	return err
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(id string) (*Event, error) {
	row := r.db.QueryRow(
		`SELECT id, gesture, command, handedness, succeeded, error, emitted_ms, created_at
		 FROM gesture_events WHERE id = ?`,
		id,
	)

	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns the most recent events, newest first.
// A non-positive limit means DefaultEventLimit.
func (r *EventRepository) List(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	rows, err := r.db.Query(
		`SELECT id, gesture, command, handedness, succeeded, error, emitted_ms, created_at
		 FROM gesture_events ORDER BY created_at DESC, emitted_ms DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// CountByGesture returns how many times each gesture has been emitted.
func (r *EventRepository) CountByGesture() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT gesture, COUNT(*) FROM gesture_events GROUP BY gesture`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var gesture string
		var n int
		if err := rows.Scan(&gesture, &n); err != nil {
			return nil, err
		}
		counts[gesture] = n
	}

	return counts, rows.Err()
}

// DeleteBefore removes events created before t and returns how many were removed.
func (r *EventRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM gesture_events WHERE created_at < ?`, t)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	e := &Event{}
	var succeeded int

	err := row.Scan(&e.ID, &e.Gesture, &e.Command, &e.Handedness, &succeeded, &e.Error, &e.EmittedMs, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.Succeeded = succeeded != 0
	return e, nil
}

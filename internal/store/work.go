package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const workColumns = `id, token, next_run, period_seconds, attempts, registered_at`

func scanWork(row rowScanner) (Work, error) {
	var w Work
	var token, nextRun, registeredAt string
	var period int64
	if err := row.Scan(&w.ID, &token, &nextRun, &period, &w.Attempts, &registeredAt); err != nil {
		return Work{}, err
	}
	var err error
	if w.Token, err = uuid.Parse(token); err != nil {
		return Work{}, fmt.Errorf("work %q token: %w", w.ID, err)
	}
	w.NextRun, _ = time.Parse(time.RFC3339Nano, nextRun)
	w.RegisteredAt, _ = time.Parse(time.RFC3339Nano, registeredAt)
	w.Period = time.Duration(period) * time.Second
	return w, nil
}

// EnqueueUniquePeriodic registers id to first run after delay and then every
// period, replacing any earlier registration of the same id. The returned
// work carries a fresh token.
func (s *Store) EnqueueUniquePeriodic(id string, delay, period time.Duration) (*Work, error) {
	now := time.Now().UTC()
	w := &Work{
		ID:           id,
		Token:        uuid.New(),
		NextRun:      now.Add(delay),
		Period:       period,
		RegisteredAt: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO work (`+workColumns+`) VALUES (?, ?, ?, ?, 0, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   token = excluded.token,
		   next_run = excluded.next_run,
		   period_seconds = excluded.period_seconds,
		   attempts = 0,
		   registered_at = excluded.registered_at`,
		w.ID, w.Token.String(), w.NextRun.Format(time.RFC3339Nano), int64(period/time.Second), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue work %q: %w", id, err)
	}
	s.changed()
	return w, nil
}

// CancelUniqueWork removes the registration of id. Cancelling an absent
// registration is not an error.
func (s *Store) CancelUniqueWork(id string) error {
	if _, err := s.db.Exec(`DELETE FROM work WHERE id = ?`, id); err != nil {
		return fmt.Errorf("cancel work %q: %w", id, err)
	}
	s.changed()
	return nil
}

// GetWork returns the registration of id.
func (s *Store) GetWork(id string) (*Work, error) {
	w, err := scanWork(s.db.QueryRow(`SELECT `+workColumns+` FROM work WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get work %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get work %q: %w", id, err)
	}
	return &w, nil
}

// DueWork lists registrations whose next run is at or before now.
func (s *Store) DueWork(now time.Time) ([]Work, error) {
	rows, err := s.db.Query(`SELECT `+workColumns+` FROM work ORDER BY next_run`)
	if err != nil {
		return nil, fmt.Errorf("due work: %w", err)
	}
	defer rows.Close()

	var due []Work
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		if !w.NextRun.After(now) {
			due = append(due, w)
		}
	}
	return due, rows.Err()
}

// RescheduleWork moves a registration to next, only if it still carries
// token. It reports whether the registration was updated; a false result
// means the work was replaced or cancelled while it ran.
func (s *Store) RescheduleWork(id string, token uuid.UUID, next time.Time, attempts int) (bool, error) {
	res, err := s.db.Exec(
		`UPDATE work SET next_run = ?, attempts = ? WHERE id = ? AND token = ?`,
		next.UTC().Format(time.RFC3339Nano), attempts, id, token.String(),
	)
	if err != nil {
		return false, fmt.Errorf("reschedule work %q: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

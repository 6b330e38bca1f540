package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
)

// GetDuration loads one countdown event by raw identifier.
func (s *Store) GetDuration(ctx context.Context, id int64) (*domain.DurationEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, duration_minutes, created_at, trigger_at
		FROM duration_events WHERE id = ?`, id)

	d, err := scanDuration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get duration event: %w", err)
	}

	return d, nil
}

// CreateDuration starts a countdown of the given length. The trigger instant
// is fixed at creation time, so it is always future-dated when scheduled.
func (s *Store) CreateDuration(ctx context.Context, minutes int) (*domain.DurationEvent, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("create duration event: non-positive duration %d", minutes)
	}

	createdAt := time.Now().Truncate(time.Second)
	d := &domain.DurationEvent{
		DurationMinutes: minutes,
		CreatedAt:       createdAt,
		TriggerAt:       createdAt.Add(time.Duration(minutes) * time.Minute),
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO duration_events (duration_minutes, created_at, trigger_at)
		VALUES (?, ?, ?)`,
		d.DurationMinutes, d.CreatedAt.Unix(), d.TriggerAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("insert duration event: %w", err)
	}

	d.ID, err = s.nextRawID(ctx, "duration_events", result)
	if err != nil {
		return nil, err
	}

	return d, nil
}

// DeleteDuration removes a countdown. Unknown identifiers are a no-op:
// fired countdowns are deleted from the dispatch path and from explicit
// cancellation, and the two may race harmlessly.
func (s *Store) DeleteDuration(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM duration_events WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete duration event: %w", err)
	}

	return nil
}

// ListDurations returns every pending countdown ordered by trigger instant.
func (s *Store) ListDurations(ctx context.Context) ([]*domain.DurationEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, duration_minutes, created_at, trigger_at
		FROM duration_events ORDER BY trigger_at`)
	if err != nil {
		return nil, fmt.Errorf("list duration events: %w", err)
	}
	defer rows.Close()

	var events []*domain.DurationEvent

	for rows.Next() {
		d, err := scanDuration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan duration event: %w", err)
		}

		events = append(events, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate duration events: %w", err)
	}

	return events, nil
}

// scanDuration decodes one duration_events row.
func scanDuration(row rowScanner) (*domain.DurationEvent, error) {
	var (
		d         domain.DurationEvent
		createdAt int64
		triggerAt int64
	)

	if err := row.Scan(&d.ID, &d.DurationMinutes, &createdAt, &triggerAt); err != nil {
		return nil, err
	}

	d.CreatedAt = time.Unix(createdAt, 0)
	d.TriggerAt = time.Unix(triggerAt, 0)

	return &d, nil
}

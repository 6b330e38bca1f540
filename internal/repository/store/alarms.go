package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
)

// alarmColumns is the select list matching scanAlarm.
const alarmColumns = `id, schedule_kind, trigger_at, hour, minute, weekdays,
	active, label, sound_ref, task_id, task_params, created_at`

// GetAlarm loads one standard event by raw identifier.
func (s *Store) GetAlarm(ctx context.Context, id int64) (*domain.Event, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+alarmColumns+" FROM alarms WHERE id = ?", id)

	e, err := scanAlarm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get alarm: %w", err)
	}

	return e, nil
}

// UpsertAlarm inserts the event when its ID is zero, otherwise updates it in
// place. The stored event is returned with its identifier filled in.
func (s *Store) UpsertAlarm(ctx context.Context, e *domain.Event) (*domain.Event, error) {
	stored := e.Clone()
	stored.Kind = domain.KindStandard

	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().Truncate(time.Second)
	}

	params, err := json.Marshal(stored.Task.Params)
	if err != nil {
		return nil, fmt.Errorf("encode task params: %w", err)
	}

	if stored.ID == 0 {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO alarms
				(schedule_kind, trigger_at, hour, minute, weekdays,
				 active, label, sound_ref, task_id, task_params, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int(stored.ScheduleKind), unixOrZero(stored.TriggerAt),
			stored.TimeOfDay.Hour, stored.TimeOfDay.Minute, int(stored.Weekdays),
			stored.Active, stored.Label, stored.SoundRef,
			stored.Task.ID, string(params), stored.CreatedAt.Unix())
		if err != nil {
			return nil, fmt.Errorf("insert alarm: %w", err)
		}

		stored.ID, err = s.nextRawID(ctx, "alarms", result)
		if err != nil {
			return nil, err
		}
	} else {
		result, err := s.db.ExecContext(ctx, `
			UPDATE alarms SET
				schedule_kind = ?, trigger_at = ?, hour = ?, minute = ?,
				weekdays = ?, active = ?, label = ?, sound_ref = ?,
				task_id = ?, task_params = ?
			WHERE id = ?`,
			int(stored.ScheduleKind), unixOrZero(stored.TriggerAt),
			stored.TimeOfDay.Hour, stored.TimeOfDay.Minute, int(stored.Weekdays),
			stored.Active, stored.Label, stored.SoundRef,
			stored.Task.ID, string(params), stored.ID)
		if err != nil {
			return nil, fmt.Errorf("update alarm: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("update alarm: %w", err)
		}

		if affected == 0 {
			return nil, ErrNotFound
		}
	}

	s.notifyAlarmsChanged(ctx)

	return stored, nil
}

// SetAlarmActive flips the active flag and returns the updated event.
func (s *Store) SetAlarmActive(ctx context.Context, id int64, active bool) (*domain.Event, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE alarms SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return nil, fmt.Errorf("set alarm active: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("set alarm active: %w", err)
	}

	if affected == 0 {
		return nil, ErrNotFound
	}

	e, err := s.GetAlarm(ctx, id)
	if err != nil {
		return nil, err
	}

	s.notifyAlarmsChanged(ctx)

	return e, nil
}

// DeleteAlarm removes the event. Deleting an unknown identifier is an error.
func (s *Store) DeleteAlarm(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM alarms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete alarm: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	s.notifyAlarmsChanged(ctx)

	return nil
}

// ListAlarms returns every standard event ordered by identifier.
func (s *Store) ListAlarms(ctx context.Context) ([]*domain.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+alarmColumns+" FROM alarms ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event

	for rows.Next() {
		e, err := scanAlarm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alarm: %w", err)
		}

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alarms: %w", err)
	}

	return events, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanAlarm.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAlarm decodes one alarms row into a domain event.
func scanAlarm(row rowScanner) (*domain.Event, error) {
	var (
		e            domain.Event
		scheduleKind int
		triggerAt    int64
		weekdays     int
		taskParams   string
		createdAt    int64
	)

	err := row.Scan(
		&e.ID, &scheduleKind, &triggerAt,
		&e.TimeOfDay.Hour, &e.TimeOfDay.Minute, &weekdays,
		&e.Active, &e.Label, &e.SoundRef,
		&e.Task.ID, &taskParams, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.Kind = domain.KindStandard
	e.ScheduleKind = domain.ScheduleKind(scheduleKind)
	e.Weekdays = domain.WeekdaySet(weekdays)
	e.CreatedAt = time.Unix(createdAt, 0)

	if triggerAt != 0 {
		e.TriggerAt = time.Unix(triggerAt, 0)
	}

	if taskParams != "" && taskParams != "{}" {
		if err := json.Unmarshal([]byte(taskParams), &e.Task.Params); err != nil {
			return nil, fmt.Errorf("decode task params: %w", err)
		}
	}

	return &e, nil
}

// unixOrZero stores zero instants as 0 instead of a negative epoch.
func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.Unix()
}

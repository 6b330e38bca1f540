package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// errRawIDOverflow is returned when the auto-increment sequence would leave
// the namespace range. Letting such an ID through would silently misclassify
// the event kind in the flat timer keyspace.
var errRawIDOverflow = errors.New("raw identifier outside namespace range")

// Alarms is the persistence contract for standard wake events.
type Alarms interface {
	GetAlarm(ctx context.Context, id int64) (*domain.Event, error)
	UpsertAlarm(ctx context.Context, e *domain.Event) (*domain.Event, error)
	SetAlarmActive(ctx context.Context, id int64, active bool) (*domain.Event, error)
	DeleteAlarm(ctx context.Context, id int64) error
	ListAlarms(ctx context.Context) ([]*domain.Event, error)
	Watch(ctx context.Context) <-chan []*domain.Event
}

// Durations is the persistence contract for countdown events.
type Durations interface {
	GetDuration(ctx context.Context, id int64) (*domain.DurationEvent, error)
	CreateDuration(ctx context.Context, minutes int) (*domain.DurationEvent, error)
	DeleteDuration(ctx context.Context, id int64) error
	ListDurations(ctx context.Context) ([]*domain.DurationEvent, error)
}

// History is the persistence contract for completed dismissals.
type History interface {
	AppendHistory(ctx context.Context, record *domain.HistoryRecord) error
	ListHistory(ctx context.Context, limit int) ([]*domain.HistoryRecord, error)
}

// Store persists alarms, duration events and wake history in one SQLite
// database. It implements Alarms, Durations and History.
type Store struct {
	// db is the underlying SQLite handle.
	db *sql.DB
	// retention is how long history records are kept.
	retention time.Duration
	// watcher fans out alarm list snapshots to subscribers.
	watcher *watcher
}

// Options tunes the store.
type Options struct {
	// RetentionDays is the wake history retention window in days.
	RetentionDays int
}

const schema = `
CREATE TABLE IF NOT EXISTS alarms (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	schedule_kind INTEGER NOT NULL,
	trigger_at    INTEGER NOT NULL DEFAULT 0,
	hour          INTEGER NOT NULL DEFAULT 0,
	minute        INTEGER NOT NULL DEFAULT 0,
	weekdays      INTEGER NOT NULL DEFAULT 0,
	active        INTEGER NOT NULL DEFAULT 1,
	label         TEXT    NOT NULL DEFAULT '',
	sound_ref     TEXT    NOT NULL DEFAULT '',
	task_id       TEXT    NOT NULL DEFAULT '',
	task_params   TEXT    NOT NULL DEFAULT '{}',
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS duration_events (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	duration_minutes INTEGER NOT NULL,
	created_at       INTEGER NOT NULL,
	trigger_at       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS wake_history (
	id           TEXT PRIMARY KEY,
	event_id     INTEGER NOT NULL,
	label        TEXT NOT NULL DEFAULT '',
	task_id      TEXT NOT NULL DEFAULT '',
	completed_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_wake_history_completed_at
	ON wake_history (completed_at);
`

// Open opens (creating if necessary) the SQLite database at path.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The modernc driver serializes writes anyway; one connection avoids
	// SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("apply schema: %w", err)
	}

	retentionDays := opts.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 365
	}

	return &Store{
		db:        db,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		watcher:   newWatcher(),
	}, nil
}

// Close releases the database handle and ends all watch subscriptions.
func (s *Store) Close() error {
	s.watcher.closeAll()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	return nil
}

// nextRawID validates an auto-increment result against the namespace range.
// The offending row is removed so the invariant cannot leak into the keyspace.
func (s *Store) nextRawID(ctx context.Context, table string, result sql.Result) (int64, error) {
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	if !domain.ValidRawID(id) {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)

		return 0, fmt.Errorf("%w: %d", errRawIDOverflow, id)
	}

	return id, nil
}

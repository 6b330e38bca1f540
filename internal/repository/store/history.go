package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
	"github.com/oshokin/wake-engine/internal/logger"
)

// AppendHistory stores one completed dismissal and opportunistically prunes
// records older than the retention window.
func (s *Store) AppendHistory(ctx context.Context, record *domain.HistoryRecord) error {
	stored := *record

	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}

	if stored.CompletedAt.IsZero() {
		stored.CompletedAt = time.Now().Truncate(time.Second)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wake_history (id, event_id, label, task_id, completed_at)
		VALUES (?, ?, ?, ?, ?)`,
		stored.ID, stored.EventID, stored.Label, stored.TaskID,
		stored.CompletedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}

	*record = stored

	s.pruneHistory(ctx, stored.CompletedAt)

	return nil
}

// ListHistory returns the most recent records, newest first.
func (s *Store) ListHistory(ctx context.Context, limit int) ([]*domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, label, task_id, completed_at
		FROM wake_history ORDER BY completed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var records []*domain.HistoryRecord

	for rows.Next() {
		var (
			r           domain.HistoryRecord
			completedAt int64
		)

		if err := rows.Scan(&r.ID, &r.EventID, &r.Label, &r.TaskID, &completedAt); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}

		r.CompletedAt = time.Unix(completedAt, 0)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return records, nil
}

// pruneHistory drops records past the retention window. Pruning failures are
// logged only: losing a prune pass never blocks recording the dismissal.
func (s *Store) pruneHistory(ctx context.Context, now time.Time) {
	cutoff := now.Add(-s.retention).Unix()

	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM wake_history WHERE completed_at < ?", cutoff); err != nil {
		logger.WarnKV(ctx, "Failed to prune wake history", "error", err)
	}
}

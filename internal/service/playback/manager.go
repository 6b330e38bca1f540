package playback

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
	"github.com/oshokin/wake-engine/internal/logger"
	"github.com/oshokin/wake-engine/internal/repository/store"
)

// session is one active ringing session.
type session struct {
	// id is the namespaced event identifier.
	id int64
	// label is a snapshot of the event label at start time.
	label string
	// taskID is a snapshot of the dismissal task identifier.
	taskID string
	// startedAt is when ringing began.
	startedAt time.Time
	// acknowledged is set once a companion device acknowledged the ring.
	acknowledged bool
}

// Manager tracks ringing sessions by namespaced identifier. All operations
// are idempotent per ID: starting an already-ringing session, stopping or
// acknowledging an unknown one are no-ops.
type Manager struct {
	// alarms resolves standard event snapshots.
	alarms store.Alarms
	// durations resolves countdown snapshots.
	durations store.Durations
	// history records completed dismissals.
	history store.History

	// mu protects active.
	mu sync.Mutex
	// active holds the ringing sessions.
	active map[int64]*session
}

// NewManager creates a session manager over the given stores.
func NewManager(alarms store.Alarms, durations store.Durations, history store.History) *Manager {
	return &Manager{
		alarms:    alarms,
		durations: durations,
		history:   history,
		active:    make(map[int64]*session),
	}
}

// Start begins a ringing session for the identifier. Starting an ID that
// already has one is a no-op.
func (m *Manager) Start(ctx context.Context, id int64) {
	// Snapshot label and task before publishing the session so Stop never
	// observes partially filled fields; the record may legitimately be gone
	// already.
	label, taskID := m.snapshot(ctx, id)

	m.mu.Lock()

	if _, ok := m.active[id]; ok {
		m.mu.Unlock()
		logger.DebugKV(ctx, "Session already ringing", "id", id)

		return
	}

	m.active[id] = &session{
		id:        id,
		label:     label,
		taskID:    taskID,
		startedAt: time.Now().Truncate(time.Second),
	}
	m.mu.Unlock()

	logger.InfoKV(ctx, "Ringing session started", "id", id, "label", label)
}

// Stop ends the ringing session and records the completed dismissal.
// Unknown identifiers are a no-op.
func (m *Manager) Stop(ctx context.Context, id int64) {
	m.mu.Lock()
	s, ok := m.active[id]
	if ok {
		delete(m.active, id)
	}
	m.mu.Unlock()

	if !ok {
		logger.DebugKV(ctx, "Stop for unknown session ignored", "id", id)

		return
	}

	record := &domain.HistoryRecord{
		EventID: s.id,
		Label:   s.label,
		TaskID:  s.taskID,
	}

	if err := m.history.AppendHistory(ctx, record); err != nil {
		logger.ErrorKV(ctx, "Failed to record dismissal", "id", id, "error", err)
	}

	logger.InfoKV(ctx, "Ringing session stopped", "id", id)
}

// Acknowledge marks the session as acknowledged by a companion device
// without ending it. Unknown identifiers are a no-op.
func (m *Manager) Acknowledge(ctx context.Context, id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.active[id]
	if !ok {
		logger.DebugKV(ctx, "Acknowledge for unknown session ignored", "id", id)

		return
	}

	if s.acknowledged {
		return
	}

	s.acknowledged = true

	logger.InfoKV(ctx, "Ringing session acknowledged", "id", id)
}

// Active returns the identifiers of all ringing sessions, ascending.
func (m *Manager) Active() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// snapshot resolves the event behind the identifier for the history record.
func (m *Manager) snapshot(ctx context.Context, id int64) (label, taskID string) {
	raw := domain.RawID(id)

	switch domain.KindOfID(id) {
	case domain.KindDuration:
		d, err := m.durations.GetDuration(ctx, raw)
		if err != nil {
			return "", ""
		}

		return d.AsEvent().Label, ""
	default:
		e, err := m.alarms.GetAlarm(ctx, raw)
		if err != nil {
			return "", ""
		}

		return e.Label, e.Task.ID
	}
}

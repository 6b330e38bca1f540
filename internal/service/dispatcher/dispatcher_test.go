package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
	"github.com/oshokin/wake-engine/internal/repository/store"
	"github.com/oshokin/wake-engine/internal/timer"
)

// fakeAlarms serves a single event and records deactivations.
type fakeAlarms struct {
	// event is returned by GetAlarm when its raw ID matches.
	event *domain.Event
	// deactivated records SetAlarmActive(false) calls.
	deactivated []int64
}

func (f *fakeAlarms) GetAlarm(_ context.Context, id int64) (*domain.Event, error) {
	if f.event != nil && f.event.ID == id {
		return f.event.Clone(), nil
	}

	return nil, store.ErrNotFound
}

func (f *fakeAlarms) SetAlarmActive(_ context.Context, id int64, active bool) (*domain.Event, error) {
	if f.event == nil || f.event.ID != id {
		return nil, store.ErrNotFound
	}

	f.event.Active = active
	if !active {
		f.deactivated = append(f.deactivated, id)
	}

	return f.event.Clone(), nil
}

// fakeDurations serves a single countdown and records deletions.
type fakeDurations struct {
	// event is returned by GetDuration when its raw ID matches.
	event *domain.DurationEvent
	// deleted records DeleteDuration calls.
	deleted []int64
}

func (f *fakeDurations) GetDuration(_ context.Context, id int64) (*domain.DurationEvent, error) {
	if f.event != nil && f.event.ID == id {
		return f.event, nil
	}

	return nil, store.ErrNotFound
}

func (f *fakeDurations) DeleteDuration(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)

	return nil
}

// fakeScheduler records schedule and cancel calls.
type fakeScheduler struct {
	// scheduled are the re-armed events.
	scheduled []*domain.Event
	// cancelled are the retired identifiers.
	cancelled []int64
}

func (f *fakeScheduler) Schedule(_ context.Context, e *domain.Event) {
	f.scheduled = append(f.scheduled, e)
}

func (f *fakeScheduler) Cancel(_ context.Context, id int64) {
	f.cancelled = append(f.cancelled, id)
}

// fakeSessions records started sessions and can panic on demand.
type fakeSessions struct {
	// started are the handed-off identifiers.
	started []int64
	// panics makes Start panic to exercise the finalizer.
	panics bool
}

func (f *fakeSessions) Start(_ context.Context, id int64) {
	if f.panics {
		panic("session start failed")
	}

	f.started = append(f.started, id)
}

// fakeNotifier records companion notifications.
type fakeNotifier struct {
	// notified are the broadcast identifiers.
	notified []int64
}

func (f *fakeNotifier) NotifyStarted(_ context.Context, id int64) {
	f.notified = append(f.notified, id)
}

// fakeScreen reports a fixed interactivity state.
type fakeScreen struct {
	// interactive is the reported display state.
	interactive bool
}

func (f *fakeScreen) Interactive(context.Context) bool { return f.interactive }

// fakeForeground records ringing-screen requests.
type fakeForeground struct {
	// surfaced are the identifiers brought to the front.
	surfaced []int64
}

func (f *fakeForeground) BringRingingToFront(_ context.Context, id int64) {
	f.surfaced = append(f.surfaced, id)
}

// rig bundles a dispatcher with all its fakes.
type rig struct {
	alarms     *fakeAlarms
	durations  *fakeDurations
	scheduler  *fakeScheduler
	sessions   *fakeSessions
	notifier   *fakeNotifier
	screen     *fakeScreen
	foreground *fakeForeground
	dispatcher *Dispatcher
	// done counts finalizer acknowledgments.
	done int
}

func newRig() *rig {
	r := &rig{
		alarms:     new(fakeAlarms),
		durations:  new(fakeDurations),
		scheduler:  new(fakeScheduler),
		sessions:   new(fakeSessions),
		notifier:   new(fakeNotifier),
		screen:     &fakeScreen{interactive: true},
		foreground: new(fakeForeground),
	}

	r.dispatcher = New(
		r.alarms, r.durations, r.scheduler,
		r.sessions, r.notifier, r.screen, r.foreground,
	)

	return r
}

// fire runs one dispatch synchronously.
func (r *rig) fire(id int64) {
	r.dispatcher.HandleFired(context.Background(), timer.Fire{
		ID:   id,
		At:   time.Now(),
		Done: func() { r.done++ },
	})
}

// TestFireNonRepeatingAlarm deactivates and disarms the event, then hands off.
func TestFireNonRepeatingAlarm(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.alarms.event = &domain.Event{
		ID:           6,
		ScheduleKind: domain.ScheduleOneShot,
		TriggerAt:    time.Now(),
		Active:       true,
	}

	r.fire(6)

	require.Equal(t, []int64{6}, r.alarms.deactivated)
	require.Equal(t, []int64{6}, r.scheduler.cancelled)
	require.Empty(t, r.scheduler.scheduled)
	require.Equal(t, []int64{6}, r.sessions.started)
	require.Equal(t, []int64{6}, r.notifier.notified)
	require.Equal(t, 1, r.done)
}

// TestFireRepeatingAlarm re-arms without touching the active flag.
func TestFireRepeatingAlarm(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.alarms.event = &domain.Event{
		ID:           3,
		ScheduleKind: domain.ScheduleWeekly,
		TimeOfDay:    domain.TimeOfDay{Hour: 7},
		Weekdays:     domain.NewWeekdaySet(time.Monday, time.Thursday),
		Active:       true,
	}

	r.fire(3)

	require.Empty(t, r.alarms.deactivated)
	require.True(t, r.alarms.event.Active)
	require.Len(t, r.scheduler.scheduled, 1)
	require.Empty(t, r.scheduler.cancelled)
	require.Equal(t, []int64{3}, r.sessions.started)
	require.Equal(t, 1, r.done)
}

// TestFireDurationEvent deletes the countdown, never re-arms, hands off.
func TestFireDurationEvent(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.durations.event = &domain.DurationEvent{
		ID:              4,
		DurationMinutes: 5,
		TriggerAt:       time.Now(),
	}

	id := domain.EncodeID(domain.KindDuration, 4)
	r.fire(id)

	require.Equal(t, []int64{4}, r.durations.deleted)
	require.Equal(t, []int64{id}, r.scheduler.cancelled)
	require.Empty(t, r.scheduler.scheduled)
	require.Equal(t, []int64{id}, r.sessions.started)
	require.Equal(t, 1, r.done)
}

// TestFireMissingEvents retires the stray timer without a hand-off.
func TestFireMissingEvents(t *testing.T) {
	t.Parallel()

	r := newRig()

	r.fire(11)
	require.Equal(t, []int64{11}, r.scheduler.cancelled)
	require.Empty(t, r.sessions.started)
	require.Equal(t, 1, r.done)

	missingDuration := domain.EncodeID(domain.KindDuration, 12)
	r.fire(missingDuration)
	require.Equal(t, []int64{11, missingDuration}, r.scheduler.cancelled)
	require.Empty(t, r.durations.deleted)
	require.Equal(t, 2, r.done)
}

// TestFireInvalidID terminates with no side effects beyond the finalizer.
func TestFireInvalidID(t *testing.T) {
	t.Parallel()

	r := newRig()

	r.fire(domain.InvalidID)

	require.Empty(t, r.scheduler.cancelled)
	require.Empty(t, r.sessions.started)
	require.Equal(t, 1, r.done)
}

// TestFireScreenOffSurfacesRingingScreen covers the display-off branch.
func TestFireScreenOffSurfacesRingingScreen(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.screen.interactive = false
	r.alarms.event = &domain.Event{
		ID:           2,
		ScheduleKind: domain.ScheduleOneShot,
		TriggerAt:    time.Now(),
		Active:       true,
	}

	r.fire(2)

	require.Equal(t, []int64{2}, r.foreground.surfaced)
	require.Equal(t, 1, r.done)
}

// TestFinalizerRunsOnPanic guarantees completion is acknowledged even when a
// hand-off step blows up.
func TestFinalizerRunsOnPanic(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.sessions.panics = true
	r.alarms.event = &domain.Event{
		ID:           5,
		ScheduleKind: domain.ScheduleOneShot,
		TriggerAt:    time.Now(),
		Active:       true,
	}

	require.NotPanics(t, func() { r.fire(5) })
	require.Equal(t, 1, r.done)
}

// TestFinalizerRunsUnderCancelledContext keeps the dispatch shielded from
// task-group cancellation.
func TestFinalizerRunsUnderCancelledContext(t *testing.T) {
	t.Parallel()

	r := newRig()
	r.alarms.event = &domain.Event{
		ID:           7,
		ScheduleKind: domain.ScheduleOneShot,
		TriggerAt:    time.Now(),
		Active:       true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := 0
	r.dispatcher.HandleFired(ctx, timer.Fire{
		ID:   7,
		At:   time.Now(),
		Done: func() { done++ },
	})

	require.Equal(t, 1, done)
	require.Equal(t, []int64{7}, r.sessions.started)
}

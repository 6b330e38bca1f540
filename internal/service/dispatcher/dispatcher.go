package dispatcher

import (
	"context"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
	"github.com/oshokin/wake-engine/internal/logger"
	"github.com/oshokin/wake-engine/internal/timer"
)

// Alarms is the slice of the event store the dispatcher needs.
type Alarms interface {
	GetAlarm(ctx context.Context, id int64) (*domain.Event, error)
	SetAlarmActive(ctx context.Context, id int64, active bool) (*domain.Event, error)
}

// Durations is the slice of the countdown store the dispatcher needs.
type Durations interface {
	GetDuration(ctx context.Context, id int64) (*domain.DurationEvent, error)
	DeleteDuration(ctx context.Context, id int64) error
}

// Scheduler re-arms repeating events and retires stray timers.
type Scheduler interface {
	Schedule(ctx context.Context, e *domain.Event)
	Cancel(ctx context.Context, id int64)
}

// Sessions starts the ringing session for a fired event.
// Starting an already-ringing identifier is a no-op owned by the collaborator.
type Sessions interface {
	Start(ctx context.Context, id int64)
}

// Notifier fans the "alarm started" notice out to companion devices.
type Notifier interface {
	NotifyStarted(ctx context.Context, id int64)
}

// Screen reports whether the display is currently interactive.
type Screen interface {
	Interactive(ctx context.Context) bool
}

// Foreground brings the ringing surface to the front when the screen is off.
type Foreground interface {
	BringRingingToFront(ctx context.Context, id int64)
}

// state names the steps of the fired-event machine for logging.
type state int

const (
	stateReceived state = iota
	stateClassified
	stateDurationPath
	stateStandardPath
	stateHandedOff
	stateFinished
)

// String returns the state name.
func (s state) String() string {
	switch s {
	case stateReceived:
		return "received"
	case stateClassified:
		return "classified"
	case stateDurationPath:
		return "duration-path"
	case stateStandardPath:
		return "standard-path"
	case stateHandedOff:
		return "handed-off"
	case stateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Dispatcher decides what happens when an armed timer fires: whether the
// event deactivates, reschedules or disappears, and hands the ringing
// session off to playback.
type Dispatcher struct {
	// alarms resolves standard events.
	alarms Alarms
	// durations resolves countdown events.
	durations Durations
	// scheduler re-arms or retires timers.
	scheduler Scheduler
	// sessions starts ringing sessions.
	sessions Sessions
	// notifier reaches companion devices.
	notifier Notifier
	// screen queries display interactivity.
	screen Screen
	// foreground surfaces the ringing screen when the display is off.
	foreground Foreground
}

// New wires a dispatcher from its collaborators.
func New(
	alarms Alarms,
	durations Durations,
	scheduler Scheduler,
	sessions Sessions,
	notifier Notifier,
	screen Screen,
	foreground Foreground,
) *Dispatcher {
	return &Dispatcher{
		alarms:     alarms,
		durations:  durations,
		scheduler:  scheduler,
		sessions:   sessions,
		notifier:   notifier,
		screen:     screen,
		foreground: foreground,
	}
}

// HandleFired runs the dispatch machine for one fired timer. It satisfies
// timer.FireFunc.
//
// Completion is acknowledged in a finalizer that runs no matter how the
// steps end, and the dispatch itself is shielded from cancellation of the
// surrounding task group: once a fire is received it either completes or
// fails on its own terms.
func (d *Dispatcher) HandleFired(ctx context.Context, fire timer.Fire) {
	ctx = logger.WithName(context.WithoutCancel(ctx), "dispatcher")

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Dispatch panicked", "id", fire.ID, "panic", r)
		}

		d.transition(ctx, fire.ID, stateFinished)
		fire.Done()
	}()

	d.transition(ctx, fire.ID, stateReceived)

	if fire.ID <= 0 {
		logger.WarnKV(ctx, "Fire callback without a valid identifier ignored", "id", fire.ID)

		return
	}

	d.transition(ctx, fire.ID, stateClassified)

	var handedOff bool

	switch domain.KindOfID(fire.ID) {
	case domain.KindDuration:
		handedOff = d.durationPath(ctx, fire.ID)
	default:
		handedOff = d.standardPath(ctx, fire.ID)
	}

	if !handedOff {
		return
	}

	d.transition(ctx, fire.ID, stateHandedOff)
	d.handOff(ctx, fire.ID)
}

// durationPath retires a fired countdown. Countdowns never repeat: the timer
// is cancelled and the record removed before hand-off.
func (d *Dispatcher) durationPath(ctx context.Context, id int64) bool {
	d.transition(ctx, id, stateDurationPath)

	raw := domain.RawID(id)

	if _, err := d.durations.GetDuration(ctx, raw); err != nil {
		logger.WarnKV(ctx, "Fired countdown not found, retiring timer", "id", id, "error", err)
		d.scheduler.Cancel(ctx, id)

		return false
	}

	d.scheduler.Cancel(ctx, id)

	if err := d.durations.DeleteDuration(ctx, raw); err != nil {
		logger.ErrorKV(ctx, "Failed to delete fired countdown", "id", id, "error", err)
	}

	return true
}

// standardPath deactivates a non-repeating alarm or re-arms a repeating one.
// The active flag of a repeating alarm is untouched: it stays armed for the
// rest of the week.
func (d *Dispatcher) standardPath(ctx context.Context, id int64) bool {
	d.transition(ctx, id, stateStandardPath)

	raw := domain.RawID(id)

	e, err := d.alarms.GetAlarm(ctx, raw)
	if err != nil {
		logger.WarnKV(ctx, "Fired alarm not found, retiring timer", "id", id, "error", err)
		d.scheduler.Cancel(ctx, id)

		return false
	}

	if e.Repeats() {
		d.scheduler.Schedule(ctx, e)
	} else {
		if _, err := d.alarms.SetAlarmActive(ctx, raw, false); err != nil {
			logger.ErrorKV(ctx, "Failed to deactivate fired alarm", "id", id, "error", err)
		}

		d.scheduler.Cancel(ctx, id)
	}

	return true
}

// handOff starts the ringing session, surfaces the ringing screen when the
// display is off, and notifies companion devices.
func (d *Dispatcher) handOff(ctx context.Context, id int64) {
	d.sessions.Start(ctx, id)

	if !d.screen.Interactive(ctx) {
		d.foreground.BringRingingToFront(ctx, id)
	}

	d.notifier.NotifyStarted(ctx, id)
}

// transition logs one state change of the dispatch machine.
func (d *Dispatcher) transition(ctx context.Context, id int64, s state) {
	logger.DebugKV(ctx, "Dispatch state", "id", id, "state", s.String())
}

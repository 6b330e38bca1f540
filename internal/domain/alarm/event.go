package alarm

import (
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes the two event families multiplexed into one ID space.
type Kind int

const (
	// KindStandard is a user-defined alarm (one-shot or weekly).
	KindStandard Kind = iota
	// KindDuration is a countdown timer started "now".
	KindDuration
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindStandard:
		return "standard"
	case KindDuration:
		return "duration"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ScheduleKind selects how an event's next trigger instant is computed.
type ScheduleKind int

const (
	// ScheduleOneShot fires once at a fixed instant.
	ScheduleOneShot ScheduleKind = iota
	// ScheduleWeekly fires at a time of day on a set of weekdays.
	ScheduleWeekly
)

// TimeOfDay is a wall-clock time with whole-minute precision.
type TimeOfDay struct {
	// Hour in 0..23.
	Hour int
	// Minute in 0..59.
	Minute int
}

// Valid reports whether the time of day is within clock bounds.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

// String renders the time of day as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// WeekdaySet is a bitmask of time.Weekday values (bit 0 = Sunday).
type WeekdaySet uint8

// NewWeekdaySet builds a set from the provided weekdays.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}

	return s
}

// Has reports whether the set contains the weekday.
func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// IsEmpty reports whether no weekday is set.
func (s WeekdaySet) IsEmpty() bool {
	return s == 0
}

// Days returns the contained weekdays in Sunday..Saturday order.
func (s WeekdaySet) Days() []time.Weekday {
	var days []time.Weekday

	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}

	return days
}

// String renders the set as a comma-separated weekday list.
func (s WeekdaySet) String() string {
	if s.IsEmpty() {
		return "none"
	}

	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, d.String()[:3])
	}

	return strings.Join(names, ",")
}

// DismissalTask identifies the challenge a user must complete to dismiss a
// ringing session. The engine carries it opaquely.
type DismissalTask struct {
	// ID names the task implementation (e.g. "math", "barcode").
	ID string
	// Params holds task-specific parameters such as a required scan count.
	Params map[string]string
}

// Clone returns a deep copy of the task.
func (t DismissalTask) Clone() DismissalTask {
	cloned := DismissalTask{ID: t.ID}
	if t.Params != nil {
		cloned.Params = make(map[string]string, len(t.Params))
		for k, v := range t.Params {
			cloned.Params[k] = v
		}
	}

	return cloned
}

// Event is a user-defined wake event.
//
// ID is the raw store identifier and must stay below IDOffset; the namespaced
// identifier used towards the timer facility is NamespacedID().
type Event struct {
	// ID is the raw auto-increment identifier from the owning store.
	ID int64
	// Kind tells which store owns the event.
	Kind Kind
	// ScheduleKind selects between TriggerAt and TimeOfDay/Weekdays.
	ScheduleKind ScheduleKind
	// TriggerAt is the fire instant for one-shot schedules.
	TriggerAt time.Time
	// TimeOfDay is the fire time for weekly schedules.
	TimeOfDay TimeOfDay
	// Weekdays are the fire days for weekly schedules. An empty set degrades
	// to a daily repeat for trigger computation but does not re-arm after firing.
	Weekdays WeekdaySet
	// Active indicates whether the event should be armed.
	Active bool
	// Label is the user-visible name.
	Label string
	// SoundRef optionally references the ringing sound.
	SoundRef string
	// Task is the dismissal challenge attached to the event.
	Task DismissalTask
	// CreatedAt is when the event was first stored.
	CreatedAt time.Time
}

// NamespacedID returns the event's identifier in the flat timer keyspace.
func (e *Event) NamespacedID() int64 {
	return EncodeID(e.Kind, e.ID)
}

// Repeats reports whether firing re-arms the event instead of retiring it.
func (e *Event) Repeats() bool {
	return e.ScheduleKind == ScheduleWeekly && !e.Weekdays.IsEmpty()
}

// Clone returns a copy of the event to avoid leaking internal references.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}

	cloned := *e
	cloned.Task = e.Task.Clone()

	return &cloned
}

// DurationEvent is a countdown started "now" and owned by its own store.
type DurationEvent struct {
	// ID is the raw auto-increment identifier from the duration store.
	ID int64
	// DurationMinutes is the requested countdown length.
	DurationMinutes int
	// CreatedAt is when the countdown was started.
	CreatedAt time.Time
	// TriggerAt is CreatedAt plus the duration, fixed at creation time.
	TriggerAt time.Time
}

// AsEvent projects the countdown into the Event space for scheduling and
// dispatch. Duration events are always active one-shots.
func (d *DurationEvent) AsEvent() *Event {
	return &Event{
		ID:           d.ID,
		Kind:         KindDuration,
		ScheduleKind: ScheduleOneShot,
		TriggerAt:    d.TriggerAt,
		Active:       true,
		Label:        fmt.Sprintf("%d min timer", d.DurationMinutes),
		CreatedAt:    d.CreatedAt,
	}
}

// HistoryRecord is one completed dismissal in the wake history.
type HistoryRecord struct {
	// ID uniquely identifies the record.
	ID string
	// EventID is the namespaced identifier of the source event.
	EventID int64
	// Label is a snapshot of the event label at dismissal time.
	Label string
	// TaskID is the dismissal task identifier that was completed.
	TaskID string
	// CompletedAt is the dismissal instant.
	CompletedAt time.Time
}

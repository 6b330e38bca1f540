package alarm

import (
	"time"

	"github.com/teambition/rrule-go"
)

// rruleDay maps standard library weekdays to rrule weekdays.
//
//nolint:gochecknoglobals // Immutable lookup table.
var rruleDay = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// NextTrigger computes the next fire instant for the event, or ok=false when
// the event has none.
//
// One-shot schedules return their instant unconditionally, even in the past;
// the caller decides whether to arm it. Weekly schedules always return an
// instant strictly after now. All comparisons are at whole-second granularity.
func NextTrigger(e *Event, now time.Time) (time.Time, bool) {
	switch e.ScheduleKind {
	case ScheduleOneShot:
		if e.TriggerAt.IsZero() {
			return time.Time{}, false
		}

		return e.TriggerAt.Truncate(time.Second), true
	case ScheduleWeekly:
		return nextWeekly(e.TimeOfDay, e.Weekdays, now)
	default:
		return time.Time{}, false
	}
}

// nextWeekly expands the weekly schedule as a recurrence rule and returns the
// first occurrence strictly after now. An empty weekday set is treated as a
// daily repeat of the time of day.
func nextWeekly(tod TimeOfDay, days WeekdaySet, now time.Time) (time.Time, bool) {
	if !tod.Valid() {
		return time.Time{}, false
	}

	now = now.Truncate(time.Second)

	// Anchor the rule a full week back so every candidate weekday is covered
	// regardless of where "now" falls in the week.
	dtstart := time.Date(
		now.Year(), now.Month(), now.Day(),
		tod.Hour, tod.Minute, 0, 0,
		now.Location(),
	).AddDate(0, 0, -7)

	option := rrule.ROption{
		Dtstart: dtstart,
	}

	if days.IsEmpty() {
		option.Freq = rrule.DAILY
	} else {
		option.Freq = rrule.WEEKLY
		for _, d := range days.Days() {
			option.Byweekday = append(option.Byweekday, rruleDay[d])
		}
	}

	rule, err := rrule.NewRRule(option)
	if err != nil {
		return time.Time{}, false
	}

	next := rule.After(now, false)
	if next.IsZero() {
		return time.Time{}, false
	}

	return next, true
}

package rpc

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
)

// Schedule kind names on the wire.
const (
	scheduleKindOneShot = "one-shot"
	scheduleKindWeekly  = "weekly"
)

// TaskPayload describes the dismissal challenge attached to an alarm.
type TaskPayload struct {
	// ID identifies the challenge type.
	ID string `json:"id"`
	// Params are challenge-specific settings.
	Params map[string]string `json:"params,omitempty"`
}

// CreateAlarmParams is the input for alarm.create.
type CreateAlarmParams struct {
	// ScheduleKind is "one-shot" or "weekly".
	ScheduleKind string `json:"scheduleKind"`
	// TriggerAt is the RFC 3339 fire instant for one-shot alarms.
	TriggerAt string `json:"triggerAt,omitempty"`
	// TimeOfDay is the "HH:MM" fire time for weekly alarms.
	TimeOfDay string `json:"timeOfDay,omitempty"`
	// Weekdays are lowercase day names for weekly alarms. Empty means a
	// daily repeat that retires after the first fire.
	Weekdays []string `json:"weekdays,omitempty"`
	// Label is the user-visible name.
	Label string `json:"label,omitempty"`
	// SoundRef optionally selects the ringing sound.
	SoundRef string `json:"soundRef,omitempty"`
	// Task is the dismissal challenge. Optional.
	Task *TaskPayload `json:"task,omitempty"`
	// Active defaults to true when omitted.
	Active *bool `json:"active,omitempty"`
}

// AlarmInfo is the wire representation of a stored alarm.
type AlarmInfo struct {
	// ID is the alarm identifier.
	ID int64 `json:"id"`
	// ScheduleKind is "one-shot" or "weekly".
	ScheduleKind string `json:"scheduleKind"`
	// TriggerAt is the RFC 3339 fire instant for one-shot alarms.
	TriggerAt string `json:"triggerAt,omitempty"`
	// TimeOfDay is the "HH:MM" fire time for weekly alarms.
	TimeOfDay string `json:"timeOfDay,omitempty"`
	// Weekdays are lowercase day names for weekly alarms.
	Weekdays []string `json:"weekdays,omitempty"`
	// Active tells whether the alarm is armed.
	Active bool `json:"active"`
	// Label is the user-visible name.
	Label string `json:"label,omitempty"`
	// SoundRef optionally selects the ringing sound.
	SoundRef string `json:"soundRef,omitempty"`
	// Task is the dismissal challenge, if any.
	Task *TaskPayload `json:"task,omitempty"`
	// NextTrigger is the next computed fire instant, when one exists.
	NextTrigger string `json:"nextTrigger,omitempty"`
}

// ListAlarmsResult is the response for alarm.list.
type ListAlarmsResult struct {
	Alarms []*AlarmInfo `json:"alarms"`
}

// IDParam is a common input carrying one identifier.
type IDParam struct {
	ID int64 `json:"id"`
}

// SetActiveParams is the input for alarm.setActive.
type SetActiveParams struct {
	ID     int64 `json:"id"`
	Active bool  `json:"active"`
}

// StartTimerParams is the input for timer.start.
type StartTimerParams struct {
	// Minutes is the countdown length.
	Minutes int `json:"minutes"`
}

// TimerInfo is the wire representation of a running countdown.
type TimerInfo struct {
	// ID is the countdown identifier.
	ID int64 `json:"id"`
	// Minutes is the requested countdown length.
	Minutes int `json:"minutes"`
	// TriggerAt is the RFC 3339 fire instant.
	TriggerAt string `json:"triggerAt"`
}

// ListTimersResult is the response for timer.list.
type ListTimersResult struct {
	Timers []*TimerInfo `json:"timers"`
}

// OnBodyResult is the response for companion.onBody.
type OnBodyResult struct {
	// Answer is "worn", "not-worn" or "unknown".
	Answer string `json:"answer"`
	// Worn is true only for a positive answer.
	Worn bool `json:"worn"`
}

// HistoryParams is the input for history.list.
type HistoryParams struct {
	// Limit caps the number of records. Zero applies the server default.
	Limit int `json:"limit,omitempty"`
}

// HistoryRecordInfo is one completed dismissal.
type HistoryRecordInfo struct {
	ID          string `json:"id"`
	EventID     int64  `json:"eventId"`
	Label       string `json:"label,omitempty"`
	TaskID      string `json:"taskId,omitempty"`
	CompletedAt string `json:"completedAt"`
}

// ListHistoryResult is the response for history.list.
type ListHistoryResult struct {
	Records []*HistoryRecordInfo `json:"records"`
}

// ListSessionsResult is the response for session.list.
type ListSessionsResult struct {
	// IDs are the namespaced identifiers of the ringing sessions.
	IDs []int64 `json:"ids"`
}

// VersionResult is the response for system.version.
type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"buildTime,omitempty"`
}

// EmptyResult is a placeholder for methods that return no data.
type EmptyResult struct{}

// weekdayNames maps wire names to weekdays.
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// parseWeekdays converts wire day names to a weekday set.
func parseWeekdays(names []string) (domain.WeekdaySet, error) {
	days := make([]time.Weekday, 0, len(names))

	for _, name := range names {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("unknown weekday %q", name)
		}

		days = append(days, day)
	}

	return domain.NewWeekdaySet(days...), nil
}

// formatWeekdays converts a weekday set to wire day names.
func formatWeekdays(set domain.WeekdaySet) []string {
	days := set.Days()
	if len(days) == 0 {
		return nil
	}

	names := make([]string, 0, len(days))
	for _, day := range days {
		names = append(names, strings.ToLower(day.String()))
	}

	return names
}

// parseTimeOfDay converts an "HH:MM" wire value.
func parseTimeOfDay(value string) (domain.TimeOfDay, error) {
	hours, minutes, ok := strings.Cut(value, ":")
	if !ok {
		return domain.TimeOfDay{}, fmt.Errorf("invalid time of day %q", value)
	}

	var tod domain.TimeOfDay

	var err error
	if tod.Hour, err = strconv.Atoi(hours); err != nil {
		return domain.TimeOfDay{}, fmt.Errorf("invalid time of day %q", value)
	}

	if tod.Minute, err = strconv.Atoi(minutes); err != nil {
		return domain.TimeOfDay{}, fmt.Errorf("invalid time of day %q", value)
	}

	if !tod.Valid() {
		return domain.TimeOfDay{}, fmt.Errorf("invalid time of day %q", value)
	}

	return tod, nil
}

// alarmInfo projects a stored alarm onto the wire, computing the next
// trigger from the supplied instant.
func alarmInfo(e *domain.Event, now time.Time) *AlarmInfo {
	info := &AlarmInfo{
		ID:       e.ID,
		Active:   e.Active,
		Label:    e.Label,
		SoundRef: e.SoundRef,
	}

	switch e.ScheduleKind {
	case domain.ScheduleOneShot:
		info.ScheduleKind = scheduleKindOneShot
		info.TriggerAt = e.TriggerAt.Format(time.RFC3339)
	case domain.ScheduleWeekly:
		info.ScheduleKind = scheduleKindWeekly
		info.TimeOfDay = e.TimeOfDay.String()
		info.Weekdays = formatWeekdays(e.Weekdays)
	}

	if e.Task.ID != "" {
		info.Task = &TaskPayload{ID: e.Task.ID, Params: e.Task.Clone().Params}
	}

	if e.Active {
		if next, ok := domain.NextTrigger(e, now); ok {
			info.NextTrigger = next.Format(time.RFC3339)
		}
	}

	return info
}

// timerInfo projects a running countdown onto the wire.
func timerInfo(d *domain.DurationEvent) *TimerInfo {
	return &TimerInfo{
		ID:        d.ID,
		Minutes:   d.DurationMinutes,
		TriggerAt: d.TriggerAt.Format(time.RFC3339),
	}
}

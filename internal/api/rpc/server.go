package rpc

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
	"github.com/oshokin/wake-engine/internal/repository/store"
	"github.com/oshokin/wake-engine/internal/service/messenger"
	"github.com/oshokin/wake-engine/internal/version"
)

// Endpoint is the HTTP path the JSON-RPC bridge is mounted on.
const Endpoint = "/rpc"

// JSON-RPC error codes for control-plane failures.
const (
	codeNotFound      = jrpc2.Code(-32001)
	codeInvalidParams = jrpc2.Code(-32602)
)

// Scheduler is the slice of the scheduling service the control plane uses.
type Scheduler interface {
	Schedule(ctx context.Context, e *domain.Event)
	Cancel(ctx context.Context, id int64)
}

// Sessions is the slice of the playback manager the control plane uses.
type Sessions interface {
	Stop(ctx context.Context, id int64)
	Acknowledge(ctx context.Context, id int64)
	Active() []int64
}

// Companion answers worn-state queries against paired devices.
type Companion interface {
	QueryOnBody(ctx context.Context) messenger.OnBody
}

// Server is the JSON-RPC control plane over the engine's services.
type Server struct {
	// alarms is the standard alarm store.
	alarms store.Alarms
	// durations is the countdown timer store.
	durations store.Durations
	// history is the wake history store.
	history store.History
	// scheduler arms and disarms timers for events.
	scheduler Scheduler
	// sessions drives ringing sessions.
	sessions Sessions
	// companion reaches paired devices.
	companion Companion
	// bridge adapts HTTP requests to the JSON-RPC methods.
	bridge jhttp.Bridge
	// now is the clock, swappable in tests.
	now func() time.Time
}

// NewServer wires the control-plane methods over the engine's services.
func NewServer(
	alarms store.Alarms,
	durations store.Durations,
	history store.History,
	scheduler Scheduler,
	sessions Sessions,
	companion Companion,
) *Server {
	s := &Server{
		alarms:    alarms,
		durations: durations,
		history:   history,
		scheduler: scheduler,
		sessions:  sessions,
		companion: companion,
		now:       time.Now,
	}

	s.bridge = jhttp.NewBridge(s.methods(), nil)

	return s
}

// methods lists the control-plane surface.
func (s *Server) methods() handler.Map {
	return handler.Map{
		"alarm.create":     handler.New(s.alarmCreate),
		"alarm.get":        handler.New(s.alarmGet),
		"alarm.list":       handler.New(s.alarmList),
		"alarm.delete":     handler.New(s.alarmDelete),
		"alarm.setActive":  handler.New(s.alarmSetActive),
		"timer.start":      handler.New(s.timerStart),
		"timer.cancel":     handler.New(s.timerCancel),
		"timer.list":       handler.New(s.timerList),
		"companion.onBody": handler.New(s.companionOnBody),
		"history.list":     handler.New(s.historyList),
		"session.stop":     handler.New(s.sessionStop),
		"session.ack":      handler.New(s.sessionAck),
		"session.list":     handler.New(s.sessionList),
		"system.version":   handler.New(s.systemVersion),
	}
}

// Handler returns the HTTP handler serving the JSON-RPC endpoint.
func (s *Server) Handler() http.Handler {
	return s.bridge
}

// Close shuts down the JSON-RPC bridge, releasing internal goroutines.
func (s *Server) Close() {
	_ = s.bridge.Close()
}

// alarmCreate stores a new alarm and arms its timer.
func (s *Server) alarmCreate(ctx context.Context, p *CreateAlarmParams) (*AlarmInfo, error) {
	e := &domain.Event{
		Kind:     domain.KindStandard,
		Active:   true,
		Label:    p.Label,
		SoundRef: p.SoundRef,
	}

	if p.Active != nil {
		e.Active = *p.Active
	}

	if p.Task != nil {
		if p.Task.ID == "" {
			return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "task id must not be empty"}
		}

		e.Task = domain.DismissalTask{ID: p.Task.ID, Params: p.Task.Params}
	}

	switch p.ScheduleKind {
	case scheduleKindOneShot:
		at, err := time.Parse(time.RFC3339, p.TriggerAt)
		if err != nil {
			return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "invalid triggerAt: " + err.Error()}
		}

		e.ScheduleKind = domain.ScheduleOneShot
		e.TriggerAt = at
	case scheduleKindWeekly:
		tod, err := parseTimeOfDay(p.TimeOfDay)
		if err != nil {
			return nil, &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
		}

		days, err := parseWeekdays(p.Weekdays)
		if err != nil {
			return nil, &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
		}

		e.ScheduleKind = domain.ScheduleWeekly
		e.TimeOfDay = tod
		e.Weekdays = days
	default:
		return nil, &jrpc2.Error{
			Code:    codeInvalidParams,
			Message: `scheduleKind must be "one-shot" or "weekly"`,
		}
	}

	stored, err := s.alarms.UpsertAlarm(ctx, e)
	if err != nil {
		return nil, err
	}

	s.scheduler.Schedule(ctx, stored)

	return alarmInfo(stored, s.now()), nil
}

// alarmGet looks up one alarm.
func (s *Server) alarmGet(ctx context.Context, p *IDParam) (*AlarmInfo, error) {
	e, err := s.alarms.GetAlarm(ctx, p.ID)
	if err != nil {
		return nil, mapStoreErr(err, "alarm not found")
	}

	return alarmInfo(e, s.now()), nil
}

// alarmList returns every stored alarm.
func (s *Server) alarmList(ctx context.Context) (*ListAlarmsResult, error) {
	events, err := s.alarms.ListAlarms(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()

	alarms := make([]*AlarmInfo, 0, len(events))
	for _, e := range events {
		alarms = append(alarms, alarmInfo(e, now))
	}

	return &ListAlarmsResult{Alarms: alarms}, nil
}

// alarmDelete removes an alarm, disarming its timer first.
func (s *Server) alarmDelete(ctx context.Context, p *IDParam) (*EmptyResult, error) {
	e, err := s.alarms.GetAlarm(ctx, p.ID)
	if err != nil {
		return nil, mapStoreErr(err, "alarm not found")
	}

	s.scheduler.Cancel(ctx, e.NamespacedID())

	if err := s.alarms.DeleteAlarm(ctx, p.ID); err != nil {
		return nil, mapStoreErr(err, "alarm not found")
	}

	return &EmptyResult{}, nil
}

// alarmSetActive toggles an alarm and re-arms or disarms its timer.
func (s *Server) alarmSetActive(ctx context.Context, p *SetActiveParams) (*AlarmInfo, error) {
	e, err := s.alarms.SetAlarmActive(ctx, p.ID, p.Active)
	if err != nil {
		return nil, mapStoreErr(err, "alarm not found")
	}

	s.scheduler.Schedule(ctx, e)

	return alarmInfo(e, s.now()), nil
}

// timerStart creates a countdown and arms its timer.
func (s *Server) timerStart(ctx context.Context, p *StartTimerParams) (*TimerInfo, error) {
	if p.Minutes <= 0 {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "minutes must be positive"}
	}

	d, err := s.durations.CreateDuration(ctx, p.Minutes)
	if err != nil {
		return nil, err
	}

	s.scheduler.Schedule(ctx, d.AsEvent())

	return timerInfo(d), nil
}

// timerCancel disarms and removes a countdown.
func (s *Server) timerCancel(ctx context.Context, p *IDParam) (*EmptyResult, error) {
	d, err := s.durations.GetDuration(ctx, p.ID)
	if err != nil {
		return nil, mapStoreErr(err, "timer not found")
	}

	s.scheduler.Cancel(ctx, domain.EncodeID(domain.KindDuration, d.ID))

	if err := s.durations.DeleteDuration(ctx, p.ID); err != nil {
		return nil, err
	}

	return &EmptyResult{}, nil
}

// timerList returns every running countdown.
func (s *Server) timerList(ctx context.Context) (*ListTimersResult, error) {
	durations, err := s.durations.ListDurations(ctx)
	if err != nil {
		return nil, err
	}

	timers := make([]*TimerInfo, 0, len(durations))
	for _, d := range durations {
		timers = append(timers, timerInfo(d))
	}

	return &ListTimersResult{Timers: timers}, nil
}

// companionOnBody asks a paired device whether it is being worn.
func (s *Server) companionOnBody(ctx context.Context) (*OnBodyResult, error) {
	answer := s.companion.QueryOnBody(ctx)

	return &OnBodyResult{Answer: answer.String(), Worn: answer == messenger.OnBodyWorn}, nil
}

// historyList returns recent completed dismissals.
func (s *Server) historyList(ctx context.Context, p *HistoryParams) (*ListHistoryResult, error) {
	records, err := s.history.ListHistory(ctx, p.Limit)
	if err != nil {
		return nil, err
	}

	infos := make([]*HistoryRecordInfo, 0, len(records))
	for _, r := range records {
		infos = append(infos, &HistoryRecordInfo{
			ID:          r.ID,
			EventID:     r.EventID,
			Label:       r.Label,
			TaskID:      r.TaskID,
			CompletedAt: r.CompletedAt.Format(time.RFC3339),
		})
	}

	return &ListHistoryResult{Records: infos}, nil
}

// sessionStop completes the dismissal of a ringing session.
func (s *Server) sessionStop(ctx context.Context, p *IDParam) (*EmptyResult, error) {
	s.sessions.Stop(ctx, p.ID)

	return &EmptyResult{}, nil
}

// sessionAck acknowledges a ringing session without dismissing it.
func (s *Server) sessionAck(ctx context.Context, p *IDParam) (*EmptyResult, error) {
	s.sessions.Acknowledge(ctx, p.ID)

	return &EmptyResult{}, nil
}

// sessionList returns the identifiers of the ringing sessions.
func (s *Server) sessionList(_ context.Context) (*ListSessionsResult, error) {
	return &ListSessionsResult{IDs: s.sessions.Active()}, nil
}

// systemVersion reports the daemon build.
func (s *Server) systemVersion(_ context.Context) (*VersionResult, error) {
	return &VersionResult{
		Version:   version.Version,
		Commit:    version.Commit,
		BuildTime: version.BuildTime,
	}, nil
}

// mapStoreErr converts a store lookup failure to a JSON-RPC error.
func mapStoreErr(err error, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return &jrpc2.Error{Code: codeNotFound, Message: message}
	}

	return err
}

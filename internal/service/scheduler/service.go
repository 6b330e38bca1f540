package scheduler

import (
	"context"
	"errors"
	"time"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
	"github.com/oshokin/wake-engine/internal/logger"
	"github.com/oshokin/wake-engine/internal/timer"
)

// Service owns arming and disarming of wake events against the exact-timer
// facility. It holds no state of its own: every call recomputes the next
// trigger from the event and the current clock.
type Service struct {
	// gateway is the exact-timer facility the events are armed against.
	gateway timer.Gateway
	// now returns the current time; replaceable in tests.
	now func() time.Time
}

// NewService creates a scheduler on top of the provided gateway.
func NewService(gateway timer.Gateway) *Service {
	return &Service{
		gateway: gateway,
		now:     time.Now,
	}
}

// Schedule arms the event for its next trigger instant.
//
// The previous timer for the identifier is always disarmed first so replace
// semantics hold even when the event no longer yields a trigger. Inactive
// events are only disarmed. A denied arm is logged and left disarmed: the
// event stays active in the store and will be retried on the next explicit
// Schedule or Synchronize call.
func (s *Service) Schedule(ctx context.Context, e *domain.Event) {
	id := e.NamespacedID()

	if !e.Active {
		s.gateway.Disarm(ctx, id)

		return
	}

	s.gateway.Disarm(ctx, id)

	at, ok := domain.NextTrigger(e, s.now())
	if !ok {
		logger.DebugKV(ctx, "Event has no next trigger", "id", id)

		return
	}

	if err := s.gateway.Arm(ctx, id, at); err != nil {
		if errors.Is(err, timer.ErrArmDenied) {
			logger.WarnKV(ctx, "Exact scheduling denied, event left unarmed",
				"id", id, "at", at)

			return
		}

		logger.ErrorKV(ctx, "Failed to arm event", "id", id, "at", at, "error", err)

		return
	}

	logger.InfoKV(ctx, "Event armed", "id", id, "kind", e.Kind.String(), "at", at)
}

// Cancel disarms the identifier unconditionally. Safe for unknown IDs.
func (s *Service) Cancel(ctx context.Context, id int64) {
	s.gateway.Disarm(ctx, id)

	logger.DebugKV(ctx, "Event disarmed", "id", id)
}

// Synchronize re-establishes timer state for the full event set: inactive
// events are disarmed, active ones are (re)armed. Used after bulk state
// changes and on startup, since the facility's own state is not trusted
// across restarts.
func (s *Service) Synchronize(ctx context.Context, events []*domain.Event) {
	var active, inactive int

	for _, e := range events {
		if e.Active {
			active++

			s.Schedule(ctx, e)
		} else {
			inactive++

			s.gateway.Disarm(ctx, e.NamespacedID())
		}
	}

	logger.InfoKV(ctx, "Synchronized events", "active", active, "inactive", inactive)
}

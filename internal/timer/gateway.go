package timer

import (
	"context"
	"errors"
	"time"
)

// ErrArmDenied is returned when the facility refuses exact wake scheduling,
// typically for lack of permission. Callers must treat it as "not scheduled",
// not as a crash.
var ErrArmDenied = errors.New("exact wake scheduling denied")

// Fire is delivered to the dispatch callback when an armed timer elapses.
type Fire struct {
	// ID is the namespaced event identifier the timer was armed under.
	ID int64
	// At is the instant the timer was armed for.
	At time.Time
	// Done acknowledges dispatch completion so the facility can release the
	// execution grant held for the callback. Safe to call more than once.
	Done func()
}

// FireFunc handles one fired timer. Implementations must call fire.Done
// when finished, even on failure.
type FireFunc func(ctx context.Context, fire Fire)

// Gateway is the contract to the exact-timer facility.
//
// Both operations are idempotent: arming an already-armed identifier
// atomically replaces the pending timer, disarming an unknown identifier is
// a no-op. At most one timer exists per identifier at any time.
type Gateway interface {
	// Arm schedules a single deferred fire for the identifier at the instant.
	// Returns ErrArmDenied when the facility refuses exact scheduling.
	Arm(ctx context.Context, id int64, at time.Time) error
	// Disarm cancels any pending fire for the identifier.
	Disarm(ctx context.Context, id int64)
}

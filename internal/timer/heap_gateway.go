package timer

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/wake-engine/internal/logger"
)

// maxSleepCap bounds how long the gateway goroutine sleeps between wakeups.
// Re-checking at least this often keeps the heap honest across NTP steps,
// DST transitions and host suspend (monotonic clock pause).
const maxSleepCap = 60 * time.Second

// HeapGateway is an in-process exact-timer facility backed by a min-heap and
// a single goroutine. It implements Gateway.
type HeapGateway struct {
	// armCh carries arm requests into the run loop.
	armCh chan armedTimer
	// disarmCh carries disarm requests into the run loop.
	disarmCh chan int64
	// ctx stops the run loop when cancelled.
	ctx context.Context
	// grants tracks outstanding fire dispatches until Done is called.
	grants sync.WaitGroup
}

// NewHeapGateway creates and starts a gateway. The onFire callback is invoked
// on its own goroutine for every elapsed timer; the run loop exits when ctx
// is cancelled.
func NewHeapGateway(ctx context.Context, onFire FireFunc) *HeapGateway {
	g := &HeapGateway{
		armCh:    make(chan armedTimer, 64),
		disarmCh: make(chan int64, 64),
		ctx:      ctx,
	}

	go g.run(onFire)

	return g
}

// Arm schedules a fire for the identifier, replacing any pending one.
func (g *HeapGateway) Arm(ctx context.Context, id int64, at time.Time) error {
	select {
	case g.armCh <- armedTimer{ID: id, At: at}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-g.ctx.Done():
		return g.ctx.Err()
	}
}

// Disarm cancels any pending fire for the identifier. No-op when none exists.
func (g *HeapGateway) Disarm(ctx context.Context, id int64) {
	select {
	case g.disarmCh <- id:
	case <-ctx.Done():
	case <-g.ctx.Done():
	}
}

// Wait blocks until every delivered fire has acknowledged completion.
// Used on shutdown so in-flight dispatches finish before the process exits.
func (g *HeapGateway) Wait() {
	g.grants.Wait()
}

// run is the single scheduling goroutine. It sleeps until the earliest
// pending timer (capped at maxSleepCap) and fires everything that is due.
func (g *HeapGateway) run(onFire FireFunc) {
	h := &timerHeap{}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	resetTimer := func() <-chan time.Time {
		if timer != nil {
			timer.Stop()
		}

		if h.Len() == 0 {
			// Nothing pending, block on the channels alone.
			return nil
		}

		dur := time.Until((*h)[0].At)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}

		if dur < 0 {
			dur = 0
		}

		timer = time.NewTimer(dur)

		return timer.C
	}

	timerCh := resetTimer()

	for {
		select {
		case <-g.ctx.Done():
			return

		case t := <-g.armCh:
			// Replace semantics: at most one pending timer per identifier.
			h.removeByID(t.ID)
			h.push(t)

			timerCh = resetTimer()

		case id := <-g.disarmCh:
			h.removeByID(id)

			timerCh = resetTimer()

		case <-timerCh:
			now := time.Now()
			for h.Len() > 0 && !(*h)[0].At.After(now) {
				t := h.pop()
				g.dispatch(onFire, t)
			}

			timerCh = resetTimer()
		}
	}
}

// dispatch hands one elapsed timer to the fire callback on its own goroutine,
// holding an execution grant until the callback acknowledges completion.
func (g *HeapGateway) dispatch(onFire FireFunc, t armedTimer) {
	g.grants.Add(1)

	var once sync.Once
	fire := Fire{
		ID: t.ID,
		At: t.At,
		Done: func() {
			once.Do(g.grants.Done)
		},
	}

	logger.DebugKV(g.ctx, "Timer elapsed", "id", t.ID, "at", t.At)

	go onFire(g.ctx, fire)
}

package store

import (
	"context"
	"sync"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
	"github.com/oshokin/wake-engine/internal/logger"
)

// watcher fans out alarm list snapshots to subscribers. Each subscriber owns
// a buffered channel of size one; a slow subscriber only ever sees the newest
// snapshot, stale ones are replaced.
type watcher struct {
	// mu protects subs and the closed flag.
	mu sync.Mutex
	// subs maps each open subscriber channel to the signal that releases
	// its context-watching goroutine.
	subs map[chan []*domain.Event]chan struct{}
	// closed blocks new subscriptions after closeAll.
	closed bool
}

func newWatcher() *watcher {
	return &watcher{
		subs: make(map[chan []*domain.Event]chan struct{}),
	}
}

// subscribe registers a channel that receives snapshots until ctx ends.
func (w *watcher) subscribe(ctx context.Context) <-chan []*domain.Event {
	ch := make(chan []*domain.Event, 1)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		close(ch)

		return ch
	}

	done := make(chan struct{})
	w.subs[ch] = done
	w.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-done:
			// closeAll already removed the subscription.
			return
		}

		w.mu.Lock()
		defer w.mu.Unlock()

		if _, ok := w.subs[ch]; ok {
			delete(w.subs, ch)
			close(ch)
		}
	}()

	return ch
}

// publish replaces the pending snapshot on each subscriber with the new one.
func (w *watcher) publish(events []*domain.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for ch := range w.subs {
		select {
		case <-ch:
		default:
		}

		select {
		case ch <- events:
		default:
		}
	}
}

// closeAll ends every subscription.
func (w *watcher) closeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	w.closed = true

	for ch, done := range w.subs {
		delete(w.subs, ch)
		close(done)
		close(ch)
	}
}

// Watch returns a stream of full event lists, emitted after every alarm
// mutation. The channel closes when ctx ends or the store closes.
func (s *Store) Watch(ctx context.Context) <-chan []*domain.Event {
	return s.watcher.subscribe(ctx)
}

// notifyAlarmsChanged publishes a fresh snapshot to all watchers.
func (s *Store) notifyAlarmsChanged(ctx context.Context) {
	events, err := s.ListAlarms(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to snapshot alarms for watchers", "error", err)

		return
	}

	s.watcher.publish(events)
}

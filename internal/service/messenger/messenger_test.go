package messenger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
)

// sentMessage is one recorded transport send.
type sentMessage struct {
	// Node is the target device.
	Node string
	// Path is the message path.
	Path string
	// Payload is the message body.
	Payload string
}

// fakeTransport is an in-memory Transport with scriptable failures.
type fakeTransport struct {
	// mu protects all fields.
	mu sync.Mutex
	// nodes are the connected device identifiers.
	nodes []string
	// sent records every successful send.
	sent []sentMessage
	// failNodes makes Send fail for the listed devices.
	failNodes map[string]error
	// listeners maps path to registered handlers.
	listeners map[string][]func(nodeID string, payload []byte)
	// cancels counts listener deregistrations.
	cancels int
}

func newFakeTransport(nodes ...string) *fakeTransport {
	return &fakeTransport{
		nodes:     nodes,
		failNodes: make(map[string]error),
		listeners: make(map[string][]func(nodeID string, payload []byte)),
	}
}

func (f *fakeTransport) ConnectedNodes(context.Context) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.nodes...)
}

func (f *fakeTransport) Send(_ context.Context, nodeID, path string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failNodes[nodeID]; err != nil {
		return err
	}

	f.sent = append(f.sent, sentMessage{Node: nodeID, Path: path, Payload: string(payload)})

	return nil
}

func (f *fakeTransport) Listen(path string, handler func(nodeID string, payload []byte)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.listeners[path] = append(f.listeners[path], handler)

	var once sync.Once

	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()

			f.cancels++
			f.listeners[path] = nil
		})
	}
}

// deliver hands an inbound message to all handlers on the path.
func (f *fakeTransport) deliver(node, path string, payload []byte) {
	f.mu.Lock()
	handlers := append(([]func(string, []byte))(nil), f.listeners[path]...)
	f.mu.Unlock()

	for _, h := range handlers {
		h(node, payload)
	}
}

// listenerCount reports registered handlers for a path.
func (f *fakeTransport) listenerCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.listeners[path])
}

// fakeSessions records forwarded commands.
type fakeSessions struct {
	// mu protects the slices.
	mu sync.Mutex
	// stopped are the forwarded stop identifiers.
	stopped []int64
	// acknowledged are the forwarded acknowledge identifiers.
	acknowledged []int64
}

func (f *fakeSessions) Stop(_ context.Context, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopped = append(f.stopped, id)
}

func (f *fakeSessions) Acknowledge(_ context.Context, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.acknowledged = append(f.acknowledged, id)
}

// TestNotifyStartedFanOut sends to every device and isolates failures.
func TestNotifyStartedFanOut(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport("watch-1", "watch-2", "watch-3")
	tr.failNodes["watch-2"] = errors.New("device unreachable")

	m := New(tr, new(fakeSessions))
	m.NotifyStarted(context.Background(), 42)

	require.Equal(t, []sentMessage{
		{Node: "watch-1", Path: PathStarted, Payload: "42"},
		{Node: "watch-3", Path: PathStarted, Payload: "42"},
	}, tr.sent)
}

// TestNotifyStartedNoDevices is not an error.
func TestNotifyStartedNoDevices(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	m := New(tr, new(fakeSessions))

	m.NotifyStarted(context.Background(), 42)

	require.Empty(t, tr.sent)
}

// TestQueryOnBodyNoDevices returns unknown immediately without registering
// a listener.
func TestQueryOnBodyNoDevices(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport()
	m := New(tr, new(fakeSessions))

	start := time.Now()
	answer := m.QueryOnBody(context.Background())

	require.Equal(t, OnBodyUnknown, answer)
	require.Less(t, time.Since(start), time.Second)
	require.Zero(t, tr.listenerCount(PathOnBodyResponse))
	require.Zero(t, tr.cancels)
}

// TestQueryOnBodyReceivesResponse decodes the answer and deregisters the
// listener exactly once.
func TestQueryOnBodyReceivesResponse(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport("watch-1", "watch-2")
	m := New(tr, new(fakeSessions))

	done := make(chan OnBody, 1)
	go func() {
		done <- m.QueryOnBody(context.Background())
	}()

	// Wait for the query to go out, then answer it.
	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()

		return len(tr.sent) == 1
	}, 5*time.Second, 5*time.Millisecond)

	// The query goes to the first device only.
	require.Equal(t, "watch-1", tr.sent[0].Node)
	require.Equal(t, PathOnBodyQuery, tr.sent[0].Path)

	tr.deliver("watch-1", PathOnBodyResponse, []byte("1"))

	select {
	case answer := <-done:
		require.Equal(t, OnBodyWorn, answer)
	case <-time.After(5 * time.Second):
		t.Fatal("query did not complete")
	}

	require.Equal(t, 1, tr.cancels)
}

// TestQueryOnBodyTimeout resolves to unknown, not an error.
func TestQueryOnBodyTimeout(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport("watch-1")
	m := New(tr, new(fakeSessions), WithQueryTimeout(30*time.Millisecond))

	answer := m.QueryOnBody(context.Background())

	require.Equal(t, OnBodyUnknown, answer)
	require.Equal(t, 1, tr.cancels)
}

// TestQueryOnBodyCancellation unwinds on caller cancellation and still
// deregisters the listener.
func TestQueryOnBodyCancellation(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport("watch-1")
	m := New(tr, new(fakeSessions))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan OnBody, 1)
	go func() {
		done <- m.QueryOnBody(ctx)
	}()

	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()

		return len(tr.sent) == 1
	}, 5*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case answer := <-done:
		require.Equal(t, OnBodyUnknown, answer)
	case <-time.After(5 * time.Second):
		t.Fatal("query did not unwind")
	}

	require.Equal(t, 1, tr.cancels)
}

// TestQueryOnBodyMalformedResponse degrades to unknown.
func TestQueryOnBodyMalformedResponse(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport("watch-1")
	m := New(tr, new(fakeSessions))

	done := make(chan OnBody, 1)
	go func() {
		done <- m.QueryOnBody(context.Background())
	}()

	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()

		return len(tr.sent) == 1
	}, 5*time.Second, 5*time.Millisecond)

	tr.deliver("watch-1", PathOnBodyResponse, []byte("maybe"))

	select {
	case answer := <-done:
		require.Equal(t, OnBodyUnknown, answer)
	case <-time.After(5 * time.Second):
		t.Fatal("query did not complete")
	}
}

// TestQueryOnBodySendFailure deregisters the listener and returns unknown.
func TestQueryOnBodySendFailure(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport("watch-1")
	tr.failNodes["watch-1"] = errors.New("device unreachable")

	m := New(tr, new(fakeSessions))

	require.Equal(t, OnBodyUnknown, m.QueryOnBody(context.Background()))
	require.Equal(t, 1, tr.cancels)
}

// TestInboundCommands forwards stop/acknowledge with parsed identifiers and
// the invalid sentinel for garbage payloads.
func TestInboundCommands(t *testing.T) {
	t.Parallel()

	tr := newFakeTransport("watch-1")
	sessions := new(fakeSessions)
	m := New(tr, sessions)

	detach := m.Attach(context.Background())

	tr.deliver("watch-1", PathStop, []byte("1000000007"))
	tr.deliver("watch-1", PathStop, []byte("garbage"))
	tr.deliver("watch-1", PathAck, []byte("12"))
	tr.deliver("watch-1", PathAck, nil)

	require.Equal(t, []int64{1000000007, domain.InvalidID}, sessions.stopped)
	require.Equal(t, []int64{12, domain.InvalidID}, sessions.acknowledged)

	// Detach is idempotent and removes both listeners.
	detach()
	detach()

	require.Zero(t, tr.listenerCount(PathStop))
	require.Zero(t, tr.listenerCount(PathAck))
}

// TestOnBodyString covers the answer names used in logs and CLI output.
func TestOnBodyString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "worn", OnBodyWorn.String())
	require.Equal(t, "not-worn", OnBodyNotWorn.String())
	require.Equal(t, "unknown", OnBodyUnknown.String())
}

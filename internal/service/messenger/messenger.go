package messenger

import (
	"context"
	"strconv"
	"sync"
	"time"

	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
	"github.com/oshokin/wake-engine/internal/logger"
)

// Message paths on the companion transport.
const (
	// PathStarted carries the fan-out "alarm started" notice.
	PathStarted = "/alarm/started"
	// PathOnBodyQuery asks a device whether it is currently worn.
	PathOnBodyQuery = "/onbody/query"
	// PathOnBodyResponse carries the worn-state answer ("1"/"0").
	PathOnBodyResponse = "/onbody/response"
	// PathStop is the inbound dismiss command.
	PathStop = "/alarm/stop"
	// PathAck is the inbound acknowledge command.
	PathAck = "/alarm/ack"
)

// Transport is path-addressed byte messaging to paired companion devices.
// Delivery is asynchronous and unreliable; sends fail independently per
// device. The cancel func returned by Listen must be idempotent.
type Transport interface {
	// ConnectedNodes lists currently reachable device identifiers.
	ConnectedNodes(ctx context.Context) []string
	// Send delivers one message to one device.
	Send(ctx context.Context, nodeID, path string, payload []byte) error
	// Listen registers a handler for inbound messages on a path and returns
	// a deregistration func.
	Listen(path string, handler func(nodeID string, payload []byte)) (cancel func())
}

// Sessions is the slice of the playback manager inbound commands reach.
type Sessions interface {
	Stop(ctx context.Context, id int64)
	Acknowledge(ctx context.Context, id int64)
}

// OnBody is the answer to a worn-state query.
type OnBody int

const (
	// OnBodyUnknown means no device, no parseable answer, or a timeout.
	OnBodyUnknown OnBody = iota
	// OnBodyWorn means the device reported being worn.
	OnBodyWorn
	// OnBodyNotWorn means the device reported not being worn.
	OnBodyNotWorn
)

// String returns a human-readable answer name.
func (o OnBody) String() string {
	switch o {
	case OnBodyWorn:
		return "worn"
	case OnBodyNotWorn:
		return "not-worn"
	default:
		return "unknown"
	}
}

// DefaultQueryTimeout bounds a single on-body query.
const DefaultQueryTimeout = 10 * time.Second

// Messenger coordinates ringing sessions with paired companion devices over
// the unreliable transport.
type Messenger struct {
	// transport reaches the companion devices.
	transport Transport
	// sessions receives inbound stop/acknowledge commands.
	sessions Sessions
	// queryTimeout bounds one on-body query.
	queryTimeout time.Duration
}

// Option configures messenger behaviour.
type Option func(*Messenger)

// WithQueryTimeout overrides the on-body query bound.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(m *Messenger) {
		if timeout > 0 {
			m.queryTimeout = timeout
		}
	}
}

// New creates a messenger over the transport.
func New(transport Transport, sessions Sessions, opts ...Option) *Messenger {
	m := &Messenger{
		transport:    transport,
		sessions:     sessions,
		queryTimeout: DefaultQueryTimeout,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// NotifyStarted sends a fire-and-forget "started" notice to every connected
// device. Zero devices is not an error; per-device failures are logged and
// do not block the remaining sends.
func (m *Messenger) NotifyStarted(ctx context.Context, id int64) {
	payload := []byte(strconv.FormatInt(id, 10))

	nodes := m.transport.ConnectedNodes(ctx)
	if len(nodes) == 0 {
		logger.DebugKV(ctx, "No companion devices connected", "id", id)

		return
	}

	for _, node := range nodes {
		if err := m.transport.Send(ctx, node, PathStarted, payload); err != nil {
			logger.WarnKV(ctx, "Failed to notify companion device",
				"id", id, "node", node, "error", err)

			continue
		}

		logger.DebugKV(ctx, "Companion device notified", "id", id, "node", node)
	}
}

// QueryOnBody asks the first connected device whether it is being worn and
// waits for one matching response, the query timeout, or cancellation,
// whichever comes first. The response listener is deregistered on every exit
// path.
func (m *Messenger) QueryOnBody(ctx context.Context) OnBody {
	nodes := m.transport.ConnectedNodes(ctx)
	if len(nodes) == 0 {
		return OnBodyUnknown
	}

	node := nodes[0]

	// One-shot completion slot: the first matching response wins, later ones
	// are dropped.
	responses := make(chan OnBody, 1)

	var once sync.Once

	cancel := m.transport.Listen(PathOnBodyResponse, func(_ string, payload []byte) {
		answer := decodeOnBody(payload)
		once.Do(func() { responses <- answer })
	})
	defer cancel()

	if err := m.transport.Send(ctx, node, PathOnBodyQuery, nil); err != nil {
		logger.WarnKV(ctx, "Failed to send on-body query", "node", node, "error", err)

		return OnBodyUnknown
	}

	timeout := time.NewTimer(m.queryTimeout)
	defer timeout.Stop()

	select {
	case answer := <-responses:
		return answer
	case <-timeout.C:
		logger.WarnKV(ctx, "On-body query timed out", "node", node, "timeout", m.queryTimeout)

		return OnBodyUnknown
	case <-ctx.Done():
		return OnBodyUnknown
	}
}

// Attach registers the inbound stop/acknowledge command listeners and
// returns a detach func that deregisters both.
func (m *Messenger) Attach(ctx context.Context) (detach func()) {
	cancelStop := m.transport.Listen(PathStop, func(node string, payload []byte) {
		id := parseEventID(payload)
		logger.InfoKV(ctx, "Stop command from companion device", "id", id, "node", node)

		m.sessions.Stop(ctx, id)
	})

	cancelAck := m.transport.Listen(PathAck, func(node string, payload []byte) {
		id := parseEventID(payload)
		logger.InfoKV(ctx, "Acknowledge command from companion device", "id", id, "node", node)

		m.sessions.Acknowledge(ctx, id)
	})

	return func() {
		cancelStop()
		cancelAck()
	}
}

// decodeOnBody maps a response payload to an answer. Unparseable payloads
// degrade to unknown.
func decodeOnBody(payload []byte) OnBody {
	switch string(payload) {
	case "1":
		return OnBodyWorn
	case "0":
		return OnBodyNotWorn
	default:
		return OnBodyUnknown
	}
}

// parseEventID extracts the namespaced identifier from a command payload,
// defaulting to the invalid sentinel. The sentinel is forwarded as-is; the
// playback session ignores unknown identifiers.
func parseEventID(payload []byte) int64 {
	id, err := strconv.ParseInt(string(payload), 10, 64)
	if err != nil {
		return domain.InvalidID
	}

	return id
}

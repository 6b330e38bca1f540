package wshub

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	cws "github.com/coder/websocket"

	"github.com/oshokin/wake-engine/internal/logger"
)

// nodeQueryParam identifies the connecting device in the handshake URL.
const nodeQueryParam = "node"

// nodeConn is one connected companion device.
type nodeConn struct {
	// id is the device identifier from the handshake.
	id string
	// conn is the underlying WebSocket connection.
	conn *cws.Conn
	// writeMu serializes outbound writes on the connection.
	writeMu sync.Mutex
}

// Hub tracks connected companion devices and routes frames between them and
// registered path listeners. It satisfies the messenger transport interface.
type Hub struct {
	// mu protects conns, listeners and nextListener.
	mu sync.Mutex
	// conns maps device identifier to its live connection.
	conns map[string]*nodeConn
	// listeners maps path to registered handlers by registration id.
	listeners map[string]map[int64]func(nodeID string, payload []byte)
	// nextListener is the next listener registration id.
	nextListener int64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns:     make(map[string]*nodeConn),
		listeners: make(map[string]map[int64]func(nodeID string, payload []byte)),
	}
}

// ConnectedNodes lists connected device identifiers in stable order.
func (h *Hub) ConnectedNodes(_ context.Context) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	nodes := make([]string, 0, len(h.conns))
	for id := range h.conns {
		nodes = append(nodes, id)
	}

	sort.Strings(nodes)

	return nodes
}

// Send delivers one frame to one device.
func (h *Hub) Send(ctx context.Context, nodeID, path string, payload []byte) error {
	h.mu.Lock()
	nc := h.conns[nodeID]
	h.mu.Unlock()

	if nc == nil {
		return fmt.Errorf("node %q is not connected", nodeID)
	}

	data, err := encodeFrame(path, payload)
	if err != nil {
		return err
	}

	nc.writeMu.Lock()
	defer nc.writeMu.Unlock()

	if err := nc.conn.Write(ctx, cws.MessageText, data); err != nil {
		return fmt.Errorf("write to node %q: %w", nodeID, err)
	}

	return nil
}

// Listen registers a handler for inbound frames on a path. The returned
// cancel func deregisters the handler and may be called more than once.
func (h *Hub) Listen(path string, handler func(nodeID string, payload []byte)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextListener++
	id := h.nextListener

	if h.listeners[path] == nil {
		h.listeners[path] = make(map[int64]func(nodeID string, payload []byte))
	}

	h.listeners[path][id] = handler

	var once sync.Once

	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			delete(h.listeners[path], id)
		})
	}
}

// Handler returns the HTTP handler devices connect to. The handler upgrades
// the request to a WebSocket, registers the device, and pumps inbound frames
// until the connection drops.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nodeID := r.URL.Query().Get(nodeQueryParam)
		if nodeID == "" {
			http.Error(w, "missing node query parameter", http.StatusBadRequest)

			return
		}

		conn, err := cws.Accept(w, r, nil)
		if err != nil {
			logger.WarnKV(r.Context(), "Companion handshake failed", "node", nodeID, "error", err)

			return
		}

		nc := &nodeConn{id: nodeID, conn: conn}

		h.register(r.Context(), nc)
		defer h.unregister(r.Context(), nc)

		h.readLoop(r.Context(), nc)
	})
}

// Close drops every connected device. Registered listeners stay in place.
func (h *Hub) Close() {
	h.mu.Lock()

	conns := make([]*nodeConn, 0, len(h.conns))
	for _, nc := range h.conns {
		conns = append(conns, nc)
	}

	h.conns = make(map[string]*nodeConn)
	h.mu.Unlock()

	for _, nc := range conns {
		_ = nc.conn.Close(cws.StatusGoingAway, "hub shutting down")
	}
}

// register adds the connection, replacing a stale one under the same id.
func (h *Hub) register(ctx context.Context, nc *nodeConn) {
	h.mu.Lock()
	stale := h.conns[nc.id]
	h.conns[nc.id] = nc
	h.mu.Unlock()

	if stale != nil {
		logger.InfoKV(ctx, "Replacing stale companion connection", "node", nc.id)

		_ = stale.conn.Close(cws.StatusPolicyViolation, "superseded by a newer connection")
	}

	logger.InfoKV(ctx, "Companion device connected", "node", nc.id)
}

// unregister drops the connection unless a newer one has replaced it.
func (h *Hub) unregister(ctx context.Context, nc *nodeConn) {
	h.mu.Lock()
	if h.conns[nc.id] == nc {
		delete(h.conns, nc.id)
	}
	h.mu.Unlock()

	_ = nc.conn.Close(cws.StatusNormalClosure, "")

	logger.InfoKV(ctx, "Companion device disconnected", "node", nc.id)
}

// readLoop pumps inbound frames to the path listeners until the connection
// errors out.
func (h *Hub) readLoop(ctx context.Context, nc *nodeConn) {
	for {
		_, data, err := nc.conn.Read(ctx)
		if err != nil {
			logger.DebugKV(ctx, "Companion connection closed", "node", nc.id, "error", err)

			return
		}

		f, err := decodeFrame(data)
		if err != nil {
			logger.WarnKV(ctx, "Dropping malformed companion frame", "node", nc.id, "error", err)

			continue
		}

		h.dispatch(nc.id, f)
	}
}

// dispatch hands a frame to every listener registered for its path.
func (h *Hub) dispatch(nodeID string, f frame) {
	h.mu.Lock()

	handlers := make([]func(string, []byte), 0, len(h.listeners[f.Path]))
	for _, handler := range h.listeners[f.Path] {
		handlers = append(handlers, handler)
	}

	h.mu.Unlock()

	for _, handler := range handlers {
		handler(nodeID, []byte(f.Payload))
	}
}

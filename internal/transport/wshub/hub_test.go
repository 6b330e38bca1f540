package wshub

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	cws "github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

// dialNode connects a fake companion device to the hub test server.
func dialNode(t *testing.T, ctx context.Context, srvURL, nodeID string) *cws.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srvURL, "http") + "/?node=" + nodeID

	conn, _, err := cws.Dial(ctx, wsURL, nil)
	require.NoError(t, err)

	return conn
}

func TestFrameCodec(t *testing.T) {
	t.Parallel()

	data, err := encodeFrame("/alarm/stop", []byte("42"))
	require.NoError(t, err)

	f, err := decodeFrame(data)
	require.NoError(t, err)
	require.Equal(t, "/alarm/stop", f.Path)
	require.Equal(t, "42", f.Payload)

	_, err = decodeFrame([]byte(`{"payload":"42"}`))
	require.Error(t, err)

	_, err = decodeFrame([]byte(`not json`))
	require.Error(t, err)
}

func TestConnectAndDisconnect(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.Empty(t, hub.ConnectedNodes(ctx))

	conn := dialNode(t, ctx, srv.URL, "watch-1")

	require.Eventually(t, func() bool {
		nodes := hub.ConnectedNodes(ctx)

		return len(nodes) == 1 && nodes[0] == "watch-1"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(cws.StatusNormalClosure, ""))

	require.Eventually(t, func() bool {
		return len(hub.ConnectedNodes(ctx)) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRejectsHandshakeWithoutNodeID(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, _, err := cws.Dial(ctx, wsURL, nil) //nolint:bodyclose // dial fails, no body to close
	require.Error(t, err)
}

func TestSendDeliversFrame(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialNode(t, ctx, srv.URL, "watch-1")
	defer conn.Close(cws.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		return len(hub.ConnectedNodes(ctx)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Send(ctx, "watch-1", "/alarm/started", []byte("7")))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	f, err := decodeFrame(data)
	require.NoError(t, err)
	require.Equal(t, "/alarm/started", f.Path)
	require.Equal(t, "7", f.Payload)
}

func TestSendToUnknownNodeFails(t *testing.T) {
	t.Parallel()

	hub := NewHub()

	err := hub.Send(context.Background(), "ghost", "/alarm/started", []byte("7"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "ghost")
}

func TestInboundFramesReachListeners(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type received struct {
		node    string
		payload string
	}

	var (
		mu  sync.Mutex
		got []received
	)

	cancelListen := hub.Listen("/alarm/stop", func(nodeID string, payload []byte) {
		mu.Lock()
		defer mu.Unlock()

		got = append(got, received{node: nodeID, payload: string(payload)})
	})
	defer cancelListen()

	conn := dialNode(t, ctx, srv.URL, "watch-1")
	defer conn.Close(cws.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		return len(hub.ConnectedNodes(ctx)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	data, err := encodeFrame("/alarm/stop", []byte("1000000042"))
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, cws.MessageText, data))

	// A malformed frame in between must not break the connection.
	require.NoError(t, conn.Write(ctx, cws.MessageText, []byte("not a frame")))

	data, err = encodeFrame("/alarm/stop", []byte("12"))
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, cws.MessageText, data))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(got) == 2
	}, 5*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	require.Equal(t, []received{
		{node: "watch-1", payload: "1000000042"},
		{node: "watch-1", payload: "12"},
	}, got)
}

func TestListenerCancelIsIdempotent(t *testing.T) {
	t.Parallel()

	hub := NewHub()

	var calls int

	cancelListen := hub.Listen("/onbody/response", func(string, []byte) { calls++ })

	hub.dispatch("watch-1", frame{Path: "/onbody/response", Payload: "1"})
	require.Equal(t, 1, calls)

	cancelListen()
	cancelListen()

	hub.dispatch("watch-1", frame{Path: "/onbody/response", Payload: "1"})
	require.Equal(t, 1, calls)
}

func TestReconnectReplacesStaleConnection(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first := dialNode(t, ctx, srv.URL, "watch-1")
	defer first.Close(cws.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		return len(hub.ConnectedNodes(ctx)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	second := dialNode(t, ctx, srv.URL, "watch-1")
	defer second.Close(cws.StatusNormalClosure, "")

	// The hub closes the stale connection when the replacement registers.
	_, _, err := first.Read(ctx)
	require.Error(t, err)

	// Frames must flow over the newer connection.
	require.NoError(t, hub.Send(ctx, "watch-1", "/alarm/started", []byte("1")))

	_, data, err := second.Read(ctx)
	require.NoError(t, err)

	f, err := decodeFrame(data)
	require.NoError(t, err)
	require.Equal(t, "/alarm/started", f.Path)

	require.Equal(t, []string{"watch-1"}, hub.ConnectedNodes(ctx))
}

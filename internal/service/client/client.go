package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/oshokin/wake-engine/internal/api/rpc"
)

// DefaultCallTimeout bounds individual control-plane calls. The on-body
// query can legitimately take the companion query timeout, so the default
// leaves room above it.
const DefaultCallTimeout = 15 * time.Second

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Client wraps the daemon's JSON-RPC API with convenience helpers.
type Client struct {
	// channel is the HTTP channel carrying JSON-RPC messages.
	channel *jhttp.Channel
	// api is the JSON-RPC client over the channel.
	api *jrpc2.Client

	// callTimeout is the default timeout for individual calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// Dial prepares a JSON-RPC connection to the daemon's control address.
// The transport is plain HTTP on the loopback interface.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	channel := jhttp.NewChannel("http://"+address+rpc.Endpoint, nil)

	client := &Client{
		channel:     channel,
		api:         jrpc2.NewClient(channel, nil),
		callTimeout: DefaultCallTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.api == nil {
		return nil
	}

	return c.api.Close()
}

// CreateAlarm stores a new alarm and arms it.
func (c *Client) CreateAlarm(ctx context.Context, params *rpc.CreateAlarmParams) (*rpc.AlarmInfo, error) {
	var result rpc.AlarmInfo
	if err := c.call(ctx, "alarm.create", params, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// GetAlarm looks up one alarm.
func (c *Client) GetAlarm(ctx context.Context, id int64) (*rpc.AlarmInfo, error) {
	var result rpc.AlarmInfo
	if err := c.call(ctx, "alarm.get", &rpc.IDParam{ID: id}, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// ListAlarms returns every stored alarm.
func (c *Client) ListAlarms(ctx context.Context) (*rpc.ListAlarmsResult, error) {
	var result rpc.ListAlarmsResult
	if err := c.call(ctx, "alarm.list", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// DeleteAlarm disarms and removes an alarm.
func (c *Client) DeleteAlarm(ctx context.Context, id int64) error {
	return c.call(ctx, "alarm.delete", &rpc.IDParam{ID: id}, &rpc.EmptyResult{})
}

// SetAlarmActive toggles an alarm.
func (c *Client) SetAlarmActive(ctx context.Context, id int64, active bool) (*rpc.AlarmInfo, error) {
	var result rpc.AlarmInfo

	err := c.call(ctx, "alarm.setActive", &rpc.SetActiveParams{ID: id, Active: active}, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// StartTimer creates and arms a countdown.
func (c *Client) StartTimer(ctx context.Context, minutes int) (*rpc.TimerInfo, error) {
	var result rpc.TimerInfo
	if err := c.call(ctx, "timer.start", &rpc.StartTimerParams{Minutes: minutes}, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// CancelTimer disarms and removes a countdown.
func (c *Client) CancelTimer(ctx context.Context, id int64) error {
	return c.call(ctx, "timer.cancel", &rpc.IDParam{ID: id}, &rpc.EmptyResult{})
}

// ListTimers returns every running countdown.
func (c *Client) ListTimers(ctx context.Context) (*rpc.ListTimersResult, error) {
	var result rpc.ListTimersResult
	if err := c.call(ctx, "timer.list", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// QueryOnBody asks a paired device whether it is being worn.
func (c *Client) QueryOnBody(ctx context.Context) (*rpc.OnBodyResult, error) {
	var result rpc.OnBodyResult
	if err := c.call(ctx, "companion.onBody", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// ListHistory returns recent completed dismissals.
func (c *Client) ListHistory(ctx context.Context, limit int) (*rpc.ListHistoryResult, error) {
	var result rpc.ListHistoryResult
	if err := c.call(ctx, "history.list", &rpc.HistoryParams{Limit: limit}, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// StopSession completes the dismissal of a ringing session.
func (c *Client) StopSession(ctx context.Context, id int64) error {
	return c.call(ctx, "session.stop", &rpc.IDParam{ID: id}, &rpc.EmptyResult{})
}

// AckSession acknowledges a ringing session without dismissing it.
func (c *Client) AckSession(ctx context.Context, id int64) error {
	return c.call(ctx, "session.ack", &rpc.IDParam{ID: id}, &rpc.EmptyResult{})
}

// ListSessions returns the ringing session identifiers.
func (c *Client) ListSessions(ctx context.Context) (*rpc.ListSessionsResult, error) {
	var result rpc.ListSessionsResult
	if err := c.call(ctx, "session.list", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Version reports the daemon build.
func (c *Client) Version(ctx context.Context) (*rpc.VersionResult, error) {
	var result rpc.VersionResult
	if err := c.call(ctx, "system.version", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// call performs one JSON-RPC call under the client's timeout.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if err := c.api.CallResult(callCtx, method, params, result); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	return nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wake-engine/internal/api/rpc"
	domain "github.com/oshokin/wake-engine/internal/domain/alarm"
	"github.com/oshokin/wake-engine/internal/repository/store"
	"github.com/oshokin/wake-engine/internal/service/messenger"
)

// nopScheduler satisfies the control-plane scheduler without arming anything.
type nopScheduler struct{}

func (nopScheduler) Schedule(context.Context, *domain.Event) {}

func (nopScheduler) Cancel(context.Context, int64) {}

// recordingSessions records forwarded session commands.
type recordingSessions struct {
	stopped      []int64
	acknowledged []int64
}

func (r *recordingSessions) Stop(_ context.Context, id int64) { r.stopped = append(r.stopped, id) }

func (r *recordingSessions) Acknowledge(_ context.Context, id int64) {
	r.acknowledged = append(r.acknowledged, id)
}

func (r *recordingSessions) Active() []int64 { return []int64{7} }

// cannedCompanion always reports the device as worn.
type cannedCompanion struct{}

func (cannedCompanion) QueryOnBody(context.Context) messenger.OnBody { return messenger.OnBodyWorn }

// newTestClient runs a real control-plane server over HTTP and dials it.
func newTestClient(t *testing.T) (*Client, *recordingSessions) {
	t.Helper()

	ctx := context.Background()

	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "client-test.db"), store.Options{RetentionDays: 365})
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, s.Close()) })

	sessions := new(recordingSessions)
	server := rpc.NewServer(s, s, s, nopScheduler{}, sessions, cannedCompanion{})

	t.Cleanup(server.Close)

	mux := http.NewServeMux()
	mux.Handle(rpc.Endpoint, server.Handler())

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := Dial(ctx, strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, c.Close()) })

	return c, sessions
}

func TestDialRequiresAddress(t *testing.T) {
	t.Parallel()

	_, err := Dial(context.Background(), "")
	require.ErrorIs(t, err, errAddressRequired)
}

func TestAlarmRoundTrip(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateAlarm(ctx, &rpc.CreateAlarmParams{
		ScheduleKind: "weekly",
		TimeOfDay:    "07:30",
		Weekdays:     []string{"monday"},
		Label:        "workday",
	})
	require.NoError(t, err)
	require.Equal(t, "workday", created.Label)

	got, err := c.GetAlarm(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "07:30", got.TimeOfDay)

	listed, err := c.ListAlarms(ctx)
	require.NoError(t, err)
	require.Len(t, listed.Alarms, 1)

	toggled, err := c.SetAlarmActive(ctx, created.ID, false)
	require.NoError(t, err)
	require.False(t, toggled.Active)

	require.NoError(t, c.DeleteAlarm(ctx, created.ID))

	_, err = c.GetAlarm(ctx, created.ID)
	require.Error(t, err)
	require.Contains(t, err.Error(), "alarm not found")
}

func TestTimerRoundTrip(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t)
	ctx := context.Background()

	started, err := c.StartTimer(ctx, 25)
	require.NoError(t, err)
	require.Equal(t, 25, started.Minutes)

	listed, err := c.ListTimers(ctx)
	require.NoError(t, err)
	require.Len(t, listed.Timers, 1)

	require.NoError(t, c.CancelTimer(ctx, started.ID))

	listed, err = c.ListTimers(ctx)
	require.NoError(t, err)
	require.Empty(t, listed.Timers)
}

func TestSessionAndCompanionCalls(t *testing.T) {
	t.Parallel()

	c, sessions := newTestClient(t)
	ctx := context.Background()

	active, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{7}, active.IDs)

	require.NoError(t, c.StopSession(ctx, 7))
	require.NoError(t, c.AckSession(ctx, 1000000003))
	require.Equal(t, []int64{7}, sessions.stopped)
	require.Equal(t, []int64{1000000003}, sessions.acknowledged)

	answer, err := c.QueryOnBody(ctx)
	require.NoError(t, err)
	require.True(t, answer.Worn)

	info, err := c.Version(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, info.Version)
}

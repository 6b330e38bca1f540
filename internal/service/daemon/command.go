package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/wake-engine/internal/api/rpc"
	"github.com/oshokin/wake-engine/internal/config"
	"github.com/oshokin/wake-engine/internal/logger"
	"github.com/oshokin/wake-engine/internal/platform"
	"github.com/oshokin/wake-engine/internal/repository/store"
	"github.com/oshokin/wake-engine/internal/service/dispatcher"
	"github.com/oshokin/wake-engine/internal/service/messenger"
	"github.com/oshokin/wake-engine/internal/service/playback"
	"github.com/oshokin/wake-engine/internal/service/scheduler"
	"github.com/oshokin/wake-engine/internal/timer"
	"github.com/oshokin/wake-engine/internal/transport/wshub"
)

// CompanionPath is where the hub accepts companion WebSocket connections.
const CompanionPath = "/ws"

// shutdownTimeout bounds the graceful stop of the HTTP servers.
const shutdownTimeout = 5 * time.Second

// Options controls the wake-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ControlAddress overrides the control API listen address.
	ControlAddress string
	// CompanionAddress overrides the companion hub listen address.
	CompanionAddress string
	// DatabasePath overrides the SQLite database location.
	DatabasePath string
}

// Run starts the engine and blocks until the context is cancelled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "wake-server")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	applyOverrides(settings, opts)

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	st, err := store.Open(ctx, settings.DatabasePath, store.Options{
		RetentionDays: settings.HistoryRetentionDays,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Errorf(ctx, "Failed to close store: %v", closeErr)
		}
	}()

	// fireCtx outlives the serving group so in-flight dispatches keep their
	// logger context while the gateway drains.
	fireCtx, stopFiring := context.WithCancel(ctx)
	defer stopFiring()

	hub := wshub.NewHub()
	sessions := playback.NewManager(st, st, st)
	companion := messenger.New(hub, sessions, messenger.WithQueryTimeout(settings.OnBodyTimeout))

	detach := companion.Attach(ctx)
	defer detach()

	// The gateway needs the dispatcher's callback and the dispatcher needs
	// the scheduler over the gateway, so the callback goes through a slot
	// filled before anything is armed.
	var disp *dispatcher.Dispatcher

	gateway := timer.NewHeapGateway(fireCtx, func(ctx context.Context, fire timer.Fire) {
		disp.HandleFired(ctx, fire)
	})

	sched := scheduler.NewService(gateway)
	disp = dispatcher.New(st, st, sched, sessions, companion,
		platform.Screen{}, platform.Foreground{Command: settings.RingCommand})

	if err := reconcile(ctx, st, sched); err != nil {
		return err
	}

	controlServer := rpc.NewServer(st, st, st, sched, sessions, companion)
	defer controlServer.Close()

	logger.InfoKV(ctx, "Wake engine starting",
		"control_addr", settings.ControlAddress,
		"companion_addr", settings.CompanionAddress,
		"database", settings.DatabasePath)

	group, groupCtx := errgroup.WithContext(ctx)

	controlMux := http.NewServeMux()
	controlMux.Handle(rpc.Endpoint, controlServer.Handler())

	companionMux := http.NewServeMux()
	companionMux.Handle(CompanionPath, hub.Handler())

	serveHTTP(groupCtx, group, "control", settings.ControlAddress, controlMux)
	serveHTTP(groupCtx, group, "companion", settings.CompanionAddress, companionMux)

	group.Go(func() error {
		watchChanges(groupCtx, st, sched)

		return nil
	})

	err = group.Wait()

	// The heap gateway drains like the watcher: no new fires are produced
	// once its context ends, and Wait blocks until acknowledged ones finish.
	stopFiring()
	gateway.Wait()
	hub.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info(ctx, "Wake engine stopped")

	return nil
}

// applyOverrides lets command-line flags win over the settings file.
func applyOverrides(settings *config.Config, opts *Options) {
	if opts.ControlAddress != "" {
		settings.ControlAddress = opts.ControlAddress
	}

	if opts.CompanionAddress != "" {
		settings.CompanionAddress = opts.CompanionAddress
	}

	if opts.DatabasePath != "" {
		settings.DatabasePath = opts.DatabasePath
	}
}

// reconcile re-arms persisted events after a restart. Countdowns whose
// instant already passed go through the normal fire path immediately.
func reconcile(ctx context.Context, st *store.Store, sched *scheduler.Service) error {
	alarms, err := st.ListAlarms(ctx)
	if err != nil {
		return fmt.Errorf("reconcile alarms: %w", err)
	}

	sched.Synchronize(ctx, alarms)

	durations, err := st.ListDurations(ctx)
	if err != nil {
		return fmt.Errorf("reconcile countdowns: %w", err)
	}

	for _, d := range durations {
		sched.Schedule(ctx, d.AsEvent())
	}

	logger.InfoKV(ctx, "Reconciled persisted events",
		"alarms", len(alarms), "countdowns", len(durations))

	return nil
}

// watchChanges re-synchronizes armed timers whenever the alarm table
// changes, so edits made outside the control API still take effect.
func watchChanges(ctx context.Context, st *store.Store, sched *scheduler.Service) {
	snapshots := st.Watch(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case events, ok := <-snapshots:
			if !ok {
				return
			}

			sched.Synchronize(ctx, events)
		}
	}
}

// serveHTTP runs one HTTP server under the group with a graceful stop tied
// to the group context.
func serveHTTP(ctx context.Context, group *errgroup.Group, name, address string, handler http.Handler) {
	server := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group.Go(func() error {
		logger.InfoKV(ctx, "HTTP server listening", "server", name, "address", address)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", name, err)
		}

		return nil
	})

	group.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf(ctx, "Failed to stop %s server: %v", name, err)
		}

		return nil
	})
}

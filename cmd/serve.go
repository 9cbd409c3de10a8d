package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/a3cim/floormon/internal/api"
	"github.com/a3cim/floormon/internal/auth"
	"github.com/a3cim/floormon/internal/clock"
	"github.com/a3cim/floormon/internal/config"
	"github.com/a3cim/floormon/internal/journal"
	"github.com/a3cim/floormon/internal/logging"
	"github.com/a3cim/floormon/internal/metrics"
	"github.com/a3cim/floormon/internal/notify"
	"github.com/a3cim/floormon/internal/persist"
	"github.com/a3cim/floormon/internal/session"
	"github.com/a3cim/floormon/internal/track"
)

const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitoring HTTP server.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.System{}

	store, err := persist.New(persist.Config{
		TasksFile:  cfg.Paths.TasksFile,
		WIPFile:    cfg.Paths.WIPFile,
		StatusFile: cfg.Paths.StatusFile,
	})
	if err != nil {
		return fmt.Errorf("init persistence: %w", err)
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	hub := notify.NewHub(logger.Named("notify"), m.SetSubscribers)

	board := track.NewBoard(track.Config{
		TaskRules: track.Rules{
			StartMarker: cfg.TaskRules.StartMarker,
			EndMarker:   cfg.TaskRules.EndMarker,
		},
		WIPRules: track.Rules{
			StartMarker: cfg.WIPRules.StartMarker,
			EndMarker:   cfg.WIPRules.EndMarker,
		},
	}, store, hub, clk, logger.Named("board"), m)

	journalStore, err := journal.New(cfg.Paths.ProgressDir, clk, logger.Named("journal"))
	if err != nil {
		return fmt.Errorf("init journal: %w", err)
	}

	sessions := session.NewManager(session.Config{
		Timeout: cfg.SessionTimeout(),
		Warning: cfg.SessionWarning(),
	}, clk, logger.Named("session"))
	go sessions.Sweep(ctx, cfg.SweepInterval())

	var authn auth.Authenticator
	if cfg.LDAP.Enabled {
		authn, err = auth.NewLDAP(auth.LDAPConfig{
			URL:     cfg.LDAP.URL,
			Domain:  cfg.LDAP.Domain,
			Timeout: cfg.LDAPTimeout(),
		}, logger.Named("auth"))
		if err != nil {
			return fmt.Errorf("init ldap: %w", err)
		}
	}

	live := notify.NewWSHandler(hub, snapshotEvents(board), logger.Named("ws"))

	server := api.NewServer(api.Options{
		Board:    board,
		Journal:  journalStore,
		Sessions: sessions,
		Auth:     authn,
		Clock:    clk,
		Live:     live,
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:   logger.Named("api"),
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Addr()),
			zap.String("task_start_marker", cfg.TaskRules.StartMarker),
			zap.String("task_end_marker", cfg.TaskRules.EndMarker),
			zap.String("wip_start_marker", cfg.WIPRules.StartMarker),
			zap.String("wip_end_marker", cfg.WIPRules.EndMarker))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// snapshotEvents adapts the board's full state into the event stream replayed
// to each observer on connect.
func snapshotEvents(board *track.Board) notify.SnapshotFunc {
	return func() []notify.Event {
		snap := board.Snapshot()
		return []notify.Event{
			{Name: track.EventTaskUpdate, Payload: snap.Tasks},
			{Name: track.EventWIPUpdate, Payload: snap.WIP},
			{Name: track.EventTaskProgressUpdate, Payload: snap.TaskProgress},
			{Name: track.EventWIPProgressUpdate, Payload: snap.WIPProgress},
			{Name: track.EventTaskRoundUpdate, Payload: snap.TaskRounds},
			{Name: track.EventWIPRoundUpdate, Payload: snap.WIPRounds},
		}
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"festgrid/internal/clock"
	"festgrid/internal/hub"
	appLog "festgrid/internal/log"
	"festgrid/internal/web"
)

func newServeCmd(e *env) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				e.cfg.Listen = listen
			}
			return serve(cmd.Context(), e)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func serve(parent context.Context, e *env) error {
	cfg := e.cfg
	appLog.Info("festgrid starting", "version", version)
	appLog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"db_path", cfg.DBPath,
		"debug", cfg.Debug,
		"slots", cfg.Slots.Start+"-"+cfg.Slots.End,
		"step_minutes", cfg.Slots.StepMinutes,
		"now_refresh", cfg.NowRefresh,
	)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := hub.New()
	poller, err := clock.NewPoller(cfg.NowRefresh, e.app.Location(), nil)
	if err != nil {
		return err
	}
	poller.Subscribe(func(now time.Time) {
		h.Broadcast(hub.NowTick(now))
	})
	poller.Start()
	defer poller.Stop()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           web.NewServer(e.app, h, poller.Now).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(appLog.Logger().Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http shutdown failed", err)
	}
	appLog.Info("festgrid exiting")
	return nil
}

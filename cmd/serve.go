package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"docchat/internal/scheduler"
	"docchat/internal/server"
	"docchat/internal/telemetry"
)

const shutdownTimeout = 30 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	shutdownTracer, err := telemetry.InitTracer(ctx, &a.cfg.Telemetry, server.Version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Error().Err(err).Msg("Error shutting down tracer")
		}
	}()

	service, err := a.newService()
	if err != nil {
		return err
	}

	if a.cfg.RAG.SyncOnStart {
		n, err := a.indexer.Sync(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Initial sync failed")
		} else {
			log.Info().Int("chunks", n).Str("dir", a.library.Dir()).Msg("Initial sync complete")
		}
	}

	if a.cfg.RAG.SyncInterval > 0 {
		sched := scheduler.NewScheduler()
		if err := sched.ScheduleSync(a.cfg.RAG.SyncInterval, a.indexer); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           server.New(a.cfg, service, a.indexer, a.library).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", a.cfg.Server.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("Shutting down server...")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	log.Info().Msg("Server exited")
	return nil
}

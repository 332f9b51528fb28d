package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stand-resolver/api"
	"stand-resolver/api/services"
	"stand-resolver/pkg/services/workers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, message broker and background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	a, err := newApp(cfg, log, true)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.close(closeCtx, log)
	}()

	handlerOpts := api.Options{
		Resolver:   a.engine,
		Airports:   services.NewAirportService(a.repo),
		Database:   a.db,
		Cache:      a.cache,
		CORSOrigin: cfg.CORSOrigin,
		Version:    version,
		Logger:     log,
	}

	var workerManager *workers.Manager
	if a.nats != nil {
		handlerOpts.NATS = a.nats
		handlerOpts.Reports = services.NewReportService(a.repo, a.nats, log)

		workerManager, err = workers.NewManager(a.nats, a.repo, log)
		if err != nil {
			return errors.Wrap(err, "failed to create worker manager")
		}
		if err := workerManager.Start(); err != nil {
			return errors.Wrap(err, "failed to start workers")
		}
	} else {
		handlerOpts.Reports = services.NewReportService(a.repo, nil, log)
	}

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewHandlers(handlerOpts).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting stand resolver API", zap.String("addr", server.Addr), zap.String("version", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server failed")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("failed to shutdown server gracefully", zap.Error(err))
		}
		if workerManager != nil {
			if err := workerManager.Stop(); err != nil {
				log.Warn("failed to stop workers", zap.Error(err))
			}
		}
		return nil
	})

	err = g.Wait()
	log.Info("server shutdown complete")
	return err
}

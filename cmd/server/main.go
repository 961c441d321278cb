package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/txwebhook/internal/config"
	"github.com/vanshika/txwebhook/internal/logging"
	"github.com/vanshika/txwebhook/internal/queue"
	"github.com/vanshika/txwebhook/internal/repository"
	"github.com/vanshika/txwebhook/internal/server"
	"github.com/vanshika/txwebhook/internal/service"
	"github.com/vanshika/txwebhook/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := repository.Open(ctx, logger, cfg)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			logger.Warn("closing record store failed", "error", err)
		}
	}()

	settler := service.NewSettler(logger, store, service.SettlerOptions{
		Delay:          cfg.Settlement.Delay,
		Timeout:        cfg.Settlement.Timeout,
		MaxConcurrency: cfg.Settlement.MaxConcurrency,
	})
	runner := worker.NewRunner(logger, settler.Settle, func(id string, err error) {
		logger.Warn("settlement left for recovery", "transaction_id", id, "error", err)
	})

	var (
		scheduler service.Scheduler = runner
		consumer  *queue.Consumer
	)
	if cfg.Settlement.Dispatch == config.DispatchNATS {
		conn, err := queue.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		defer conn.Close()

		consumer = queue.NewConsumer(logger, conn, cfg.NATS.Subject, cfg.NATS.QueueGroup, runner)
		if err := consumer.Start(); err != nil {
			return err
		}
		scheduler = queue.NewPublisher(conn, cfg.NATS.Subject)
	}

	ingestion := service.NewIngestionService(logger, store, scheduler)
	recovery := service.NewRecoveryScanner(logger, store, scheduler, cfg.Recovery.Horizon, cfg.Recovery.BatchSize)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:         server.StoreHealthService{Store: store},
		API:            server.NewAPIHandlers(logger, ingestion, cfg.HTTP.IngestTimeout),
		AllowedOrigins: parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
	})
	srv := server.New(logger, cfg.HTTP, router)

	logger.Info("service starting",
		"app", cfg.AppName,
		"store", cfg.Store.Driver,
		"dispatch", cfg.Settlement.Dispatch,
		"settlement_delay", cfg.Settlement.Delay.String(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		return recovery.Run(gctx, cfg.Recovery.Interval)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if consumer != nil {
			if err := consumer.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop consumer: %w", err))
			}
		}
		if err := runner.Shutdown(shutdownCtx); err != nil {
			// Abandoned records stay PROCESSING and are picked up by the next recovery scan.
			logger.Warn("settlements still in flight at shutdown", "active", runner.Active(), "error", err)
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}

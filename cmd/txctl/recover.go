package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vanshika/txwebhook/internal/config"
	"github.com/vanshika/txwebhook/internal/logging"
	"github.com/vanshika/txwebhook/internal/queue"
	"github.com/vanshika/txwebhook/internal/repository"
	"github.com/vanshika/txwebhook/internal/service"
	"github.com/vanshika/txwebhook/internal/worker"
)

func recoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Run one recovery scan against the configured record store",
		Long: `Finds records still PROCESSING past RECOVERY_HORIZON and settles them.

With SETTLEMENT_DISPATCH=nats the ids are published for the running workers;
otherwise they are settled in this process before the command returns.`,
		Args: cobra.NoArgs,
		RunE: runRecover,
	}
	cmd.Flags().Duration("horizon", 0, "Override RECOVERY_HORIZON")
	return cmd
}

func runRecover(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if horizon, _ := cmd.Flags().GetDuration("horizon"); horizon > 0 {
		cfg.Recovery.Horizon = horizon
	}

	logger := logging.New(cfg.Logging).With("component", "txctl")
	ctx := cmd.Context()

	store, closeStore, err := repository.Open(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			logger.Warn("closing record store failed", "error", err)
		}
	}()

	var (
		scheduler service.Scheduler
		runner    *worker.Runner
		publisher *queue.Publisher
	)
	if cfg.Settlement.Dispatch == config.DispatchNATS {
		conn, err := queue.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		defer conn.Close()
		publisher = queue.NewPublisher(conn, cfg.NATS.Subject)
		scheduler = publisher
	} else {
		// Stale records have already waited out the processor call.
		settler := service.NewSettler(logger, store, service.SettlerOptions{
			Timeout:        cfg.Settlement.Timeout,
			MaxConcurrency: cfg.Settlement.MaxConcurrency,
		})
		runner = worker.NewRunner(logger, settler.Settle, nil)
		scheduler = runner
	}

	scanner := service.NewRecoveryScanner(logger, store, scheduler, cfg.Recovery.Horizon, cfg.Recovery.BatchSize)
	scheduled, scanErr := scanner.Scan(ctx)

	if runner != nil {
		if err := runner.Shutdown(ctx); err != nil {
			return err
		}
	}
	if publisher != nil {
		if err := publisher.Flush(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Recovery scan scheduled %d stale transactions\n", scheduled)
	return scanErr
}

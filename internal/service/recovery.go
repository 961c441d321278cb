package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vanshika/txwebhook/internal/worker"
)

// RecoveryScanner re-submits records left PROCESSING past the settlement
// horizon, e.g. after a crash abandoned their tasks or a store outage failed
// them.
type RecoveryScanner struct {
	store     TransactionStore
	scheduler Scheduler
	logger    *slog.Logger
	horizon   time.Duration
	batchSize int
	nowFn     func() time.Time
}

// NewRecoveryScanner builds a scanner. Records younger than horizon are left alone.
func NewRecoveryScanner(logger *slog.Logger, store TransactionStore, scheduler Scheduler, horizon time.Duration, batchSize int) *RecoveryScanner {
	return &RecoveryScanner{
		store:     store,
		scheduler: scheduler,
		logger:    logger.With("component", "recovery"),
		horizon:   horizon,
		batchSize: batchSize,
		nowFn:     time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (r *RecoveryScanner) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		r.nowFn = nowFn
	}
}

// Scan schedules one batch of stale records and reports how many were handed
// to the scheduler.
func (r *RecoveryScanner) Scan(ctx context.Context) (int, error) {
	cutoff := r.nowFn().Add(-r.horizon)
	ids, err := r.store.ListStale(ctx, cutoff, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	scheduled := 0
	var errs []error
	for _, id := range ids {
		err := r.scheduler.Schedule(id)
		switch {
		case err == nil:
			scheduled++
		case errors.Is(err, worker.ErrAlreadyScheduled):
		default:
			errs = append(errs, fmt.Errorf("schedule %s: %w", id, err))
		}
	}

	if len(ids) > 0 {
		r.logger.Info("recovery scan", "stale", len(ids), "scheduled", scheduled)
	}
	return scheduled, errors.Join(errs...)
}

// Run scans every interval until ctx is done. The first scan happens
// immediately so records abandoned by a previous process are picked up on start.
func (r *RecoveryScanner) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Scan(ctx); err != nil {
			r.logger.Error("recovery scan failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

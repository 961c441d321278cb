package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
)

// SettlerOptions tunes the settlement task.
type SettlerOptions struct {
	// Delay models the external processor call made before finalizing.
	Delay time.Duration
	// Timeout bounds the store round trips of one attempt; zero means none.
	Timeout time.Duration
	// MaxConcurrency caps simultaneous store round trips across all tasks.
	MaxConcurrency int
}

// Settler moves a transaction from PROCESSING to PROCESSED exactly once.
type Settler struct {
	store   TransactionStore
	logger  *slog.Logger
	delay   time.Duration
	timeout time.Duration
	slots   *semaphore.Weighted
	nowFn   func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewSettler constructs a Settler over its own store handle.
func NewSettler(logger *slog.Logger, store TransactionStore, opts SettlerOptions) *Settler {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 16
	}
	return &Settler{
		store:   store,
		logger:  logger.With("component", "settlement"),
		delay:   opts.Delay,
		timeout: opts.Timeout,
		slots:   semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		nowFn:   time.Now,
		sleep:   sleepContext,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *Settler) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// Settle waits out the settlement delay, then finalizes the record. A missing
// record yields ErrRecordVanished; store failures yield ErrStoreUnavailable and
// leave the record PROCESSING for a later attempt. Settling an already
// PROCESSED record is a no-op.
func (s *Settler) Settle(ctx context.Context, id string) error {
	s.logger.Debug("settlement started", "transaction_id", id, "delay", s.delay.String())

	if err := s.sleep(ctx, s.delay); err != nil {
		return fmt.Errorf("settlement of %s interrupted: %w", id, err)
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("settlement of %s interrupted: %w", id, err)
	}
	defer s.slots.Release(1)

	opCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, found, err := s.store.Get(opCtx, id)
	if err != nil {
		return fmt.Errorf("%w: load %s: %w", ErrStoreUnavailable, id, err)
	}
	if !found {
		s.logger.Error("transaction not found during settlement", "transaction_id", id)
		return fmt.Errorf("%w: %s", ErrRecordVanished, id)
	}
	if tx.Settled() {
		s.logger.Info("transaction already processed, skipping", "transaction_id", id)
		return nil
	}

	processedAt := s.nowFn().UTC()
	if processedAt.Before(tx.CreatedAt) {
		processedAt = tx.CreatedAt
	}

	updated, err := s.store.MarkProcessed(opCtx, id, processedAt)
	if err != nil {
		return fmt.Errorf("%w: finalize %s: %w", ErrStoreUnavailable, id, err)
	}
	if !updated {
		return s.confirmSettled(opCtx, id)
	}

	s.logger.Info("transaction processed", "transaction_id", id, "processed_at", processedAt)
	return nil
}

// confirmSettled handles a finalize that changed nothing. Only a concurrent
// settlement explains that; a record still PROCESSING means the write was lost.
func (s *Settler) confirmSettled(ctx context.Context, id string) error {
	tx, found, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: reload %s: %w", ErrStoreUnavailable, id, err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrRecordVanished, id)
	}
	if !tx.Settled() {
		return fmt.Errorf("%w: finalize %s applied to no record", ErrStoreUnavailable, id)
	}
	s.logger.Info("transaction settled concurrently, skipping", "transaction_id", id)
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

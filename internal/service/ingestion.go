package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vanshika/txwebhook/internal/domain"
	"github.com/vanshika/txwebhook/internal/repository"
)

const (
	MessageReceived        = "Webhook received"
	MessageAlreadyReceived = "Webhook already received"
)

// Ack is returned for every accepted submission, novel or repeated.
type Ack struct {
	Message       string
	TransactionID string
	Duplicate     bool
}

func receivedAck(id string) Ack {
	return Ack{Message: MessageReceived, TransactionID: id}
}

func duplicateAck(id string) Ack {
	return Ack{Message: MessageAlreadyReceived, TransactionID: id, Duplicate: true}
}

// IdempotencyGuard answers whether a transaction id was already accepted,
// using the record store as the source of truth.
type IdempotencyGuard struct {
	store TransactionStore
}

// NewIdempotencyGuard constructs a guard over store.
func NewIdempotencyGuard(store TransactionStore) *IdempotencyGuard {
	return &IdempotencyGuard{store: store}
}

// Seen reports whether a record for id exists.
func (g *IdempotencyGuard) Seen(ctx context.Context, id string) (bool, error) {
	_, found, err := g.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return found, nil
}

// IngestionService accepts transaction notifications and answers queries.
type IngestionService struct {
	store     TransactionStore
	guard     *IdempotencyGuard
	scheduler Scheduler
	validate  *validator.Validate
	logger    *slog.Logger
	nowFn     func() time.Time
}

// NewIngestionService wires the ingestion path.
func NewIngestionService(logger *slog.Logger, store TransactionStore, scheduler Scheduler) *IngestionService {
	return &IngestionService{
		store:     store,
		guard:     NewIdempotencyGuard(store),
		scheduler: scheduler,
		validate:  newValidator(),
		logger:    logger.With("component", "ingestion"),
		nowFn:     time.Now,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *IngestionService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// Submit records a novel notification as PROCESSING and schedules exactly one
// settlement for it. Repeated ids are acknowledged without side effects.
func (s *IngestionService) Submit(ctx context.Context, n domain.Notification) (Ack, error) {
	n = normalizeNotification(n)
	if err := validateNotification(s.validate, n); err != nil {
		return Ack{}, err
	}

	seen, err := s.guard.Seen(ctx, n.TransactionID)
	if err != nil {
		return Ack{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if seen {
		s.logger.Info("duplicate webhook acknowledged", "transaction_id", n.TransactionID)
		return duplicateAck(n.TransactionID), nil
	}

	tx := domain.NewTransaction(n, s.nowFn())
	if err := s.store.Insert(ctx, tx); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost the create race to a concurrent delivery of the same id.
			s.logger.Info("duplicate webhook acknowledged", "transaction_id", n.TransactionID, "race", true)
			return duplicateAck(n.TransactionID), nil
		}
		return Ack{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if err := s.scheduler.Schedule(tx.ID); err != nil {
		// The record is durable; the recovery scan will settle it.
		s.logger.Error("failed to schedule settlement", "transaction_id", tx.ID, "error", err)
	}

	s.logger.Info("webhook accepted", "transaction_id", tx.ID, "amount", tx.Amount.String(), "currency", tx.Currency)
	return receivedAck(tx.ID), nil
}

// Get returns the current record for id. found is false for unknown ids.
func (s *IngestionService) Get(ctx context.Context, id string) (domain.Transaction, bool, error) {
	tx, found, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Transaction{}, false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return tx, found, nil
}

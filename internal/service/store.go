package service

import (
	"context"
	"errors"
	"time"

	"github.com/vanshika/txwebhook/internal/domain"
)

// TransactionStore is the record store contract shared by ingestion,
// settlement, query and recovery.
type TransactionStore interface {
	// Get returns found=false, not an error, when the id is unknown.
	Get(ctx context.Context, id string) (domain.Transaction, bool, error)
	// Insert must reject an existing id with repository.ErrDuplicate.
	Insert(ctx context.Context, tx domain.Transaction) error
	// MarkProcessed finalizes a PROCESSING record; updated is false otherwise.
	MarkProcessed(ctx context.Context, id string, at time.Time) (bool, error)
	ListStale(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// Scheduler hands a transaction id to a detached settlement facility. It must
// return without waiting for the settlement itself.
type Scheduler interface {
	Schedule(transactionID string) error
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(transactionID string) error

// Schedule implements Scheduler.
func (f SchedulerFunc) Schedule(transactionID string) error {
	return f(transactionID)
}

var (
	// ErrValidation marks a rejected notification; callers must not retry it unchanged.
	ErrValidation = errors.New("invalid transaction notification")
	// ErrStoreUnavailable marks a transient record store failure.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrRecordVanished marks a settlement scheduled for a record that does not exist.
	ErrRecordVanished = errors.New("transaction record vanished before settlement")
)

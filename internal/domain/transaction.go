package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the settlement state of a transaction record.
type Status string

const (
	// StatusProcessing is assigned on first acceptance of a notification.
	StatusProcessing Status = "PROCESSING"
	// StatusProcessed is terminal; nothing on the record changes afterwards.
	StatusProcessed Status = "PROCESSED"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusProcessing || s == StatusProcessed
}

// Notification is the inbound payload a payment processor delivers.
type Notification struct {
	TransactionID      string
	SourceAccount      string
	DestinationAccount string
	Amount             decimal.Decimal
	Currency           string
}

// Transaction is the durable record kept for every accepted notification.
type Transaction struct {
	ID                 string
	SourceAccount      string
	DestinationAccount string
	Amount             decimal.Decimal
	Currency           string
	Status             Status
	CreatedAt          time.Time
	ProcessedAt        *time.Time
}

// NewTransaction builds the provisional record for a novel notification.
func NewTransaction(n Notification, now time.Time) Transaction {
	return Transaction{
		ID:                 n.TransactionID,
		SourceAccount:      n.SourceAccount,
		DestinationAccount: n.DestinationAccount,
		Amount:             n.Amount,
		Currency:           n.Currency,
		Status:             StatusProcessing,
		CreatedAt:          now.UTC(),
	}
}

// Settled reports whether the record reached its terminal state.
func (t Transaction) Settled() bool {
	return t.Status == StatusProcessed
}

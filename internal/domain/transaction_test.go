package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewTransactionStartsProcessing(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	tx := NewTransaction(Notification{
		TransactionID:      "T1",
		SourceAccount:      "A",
		DestinationAccount: "B",
		Amount:             decimal.RequireFromString("100.0"),
		Currency:           "USD",
	}, now)

	assert.Equal(t, "T1", tx.ID)
	assert.Equal(t, StatusProcessing, tx.Status)
	assert.Nil(t, tx.ProcessedAt)
	assert.Equal(t, time.UTC, tx.CreatedAt.Location())
	assert.True(t, tx.CreatedAt.Equal(now))
	assert.False(t, tx.Settled())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusProcessing.Valid())
	assert.True(t, StatusProcessed.Valid())
	assert.False(t, Status("FAILED").Valid())
}

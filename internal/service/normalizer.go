package service

import (
	"strings"

	"github.com/vanshika/txwebhook/internal/domain"
)

// normalizeNotification trims identifiers and canonicalizes the currency code.
// Identifiers are otherwise kept byte-for-byte; they are the idempotency key.
func normalizeNotification(n domain.Notification) domain.Notification {
	n.TransactionID = strings.TrimSpace(n.TransactionID)
	n.SourceAccount = strings.TrimSpace(n.SourceAccount)
	n.DestinationAccount = strings.TrimSpace(n.DestinationAccount)
	n.Currency = normalizeCurrency(n.Currency)
	return n
}

// normalizeCurrency uppercases and trims the provided currency code.
func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

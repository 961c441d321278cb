package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrDuplicate is returned by Insert when the store's uniqueness constraint
// rejects a transaction id that already exists.
var ErrDuplicate = errors.New("transaction already exists")

const defaultStaleLimit = 100

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultStaleLimit
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toDecimal(val any) (decimal.Decimal, error) {
	switch v := val.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return decimal.NewFromString(toString(val))
	}
}

func toTimePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		utc := v.UTC()
		return &utc
	case string:
		if v == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &parsed
		}
	}
	return nil
}

package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Dialect captures the few places the SQL backends disagree.
type Dialect struct {
	// DriverName is the database/sql driver registered for the backend.
	DriverName string
	schema     string
	maxConns   int
	isUnique   func(error) bool
}

var (
	// SQLite is the default embedded backend.
	SQLite = Dialect{
		DriverName: "sqlite3",
		schema: `
CREATE TABLE IF NOT EXISTS transactions (
	transaction_id      TEXT PRIMARY KEY,
	source_account      TEXT NOT NULL,
	destination_account TEXT NOT NULL,
	amount              TEXT NOT NULL,
	currency            TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'PROCESSING',
	created_at          DATETIME NOT NULL,
	processed_at        DATETIME
);
CREATE INDEX IF NOT EXISTS idx_transactions_status_created ON transactions(status, created_at);
`,
		// SQLite serialises writers; a single connection avoids SQLITE_BUSY churn.
		maxConns: 1,
		isUnique: func(err error) bool {
			var sqliteErr sqlite3.Error
			if !errors.As(err, &sqliteErr) {
				return false
			}
			return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
		},
	}

	// Postgres is the networked backend used in shared deployments.
	Postgres = Dialect{
		DriverName: "postgres",
		schema: `
CREATE TABLE IF NOT EXISTS transactions (
	transaction_id      TEXT PRIMARY KEY,
	source_account      TEXT NOT NULL,
	destination_account TEXT NOT NULL,
	amount              NUMERIC(20, 8) NOT NULL CHECK (amount > 0),
	currency            VARCHAR(10) NOT NULL,
	status              VARCHAR(20) NOT NULL DEFAULT 'PROCESSING',
	created_at          TIMESTAMPTZ NOT NULL,
	processed_at        TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_transactions_status_created ON transactions(status, created_at);
`,
		isUnique: func(err error) bool {
			var pqErr *pq.Error
			return errors.As(err, &pqErr) && pqErr.Code == "23505"
		},
	}
)

// DialectFor resolves a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("no SQL dialect for driver %q", driver)
	}
}

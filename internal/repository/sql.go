package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vanshika/txwebhook/internal/domain"
)

// SQLRepository persists transactions in a relational table whose primary key
// on transaction_id is the single gate for exactly-once record creation.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL opens the database, applies the schema and returns a repository.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLRepository, error) {
	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.DriverName, err)
	}
	if dialect.maxConns > 0 {
		db.SetMaxOpenConns(dialect.maxConns)
	}

	repo := NewSQL(db, dialect)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQL wraps an already opened handle.
func NewSQL(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

// Migrate creates the transactions table when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, r.dialect.schema); err != nil {
		return fmt.Errorf("migrate transactions schema: %w", err)
	}
	return nil
}

// Get returns the record for id; found is false when no such record exists.
func (r *SQLRepository) Get(ctx context.Context, id string) (domain.Transaction, bool, error) {
	row := r.db.QueryRowContext(ctx, selectTransactionSQL, id)

	var (
		tx          domain.Transaction
		status      string
		processedAt sql.NullTime
	)
	err := row.Scan(
		&tx.ID,
		&tx.SourceAccount,
		&tx.DestinationAccount,
		&tx.Amount,
		&tx.Currency,
		&status,
		&tx.CreatedAt,
		&processedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, false, nil
	}
	if err != nil {
		return domain.Transaction{}, false, fmt.Errorf("get transaction %s: %w", id, err)
	}

	tx.Status = domain.Status(status)
	tx.CreatedAt = tx.CreatedAt.UTC()
	if processedAt.Valid {
		ts := processedAt.Time.UTC()
		tx.ProcessedAt = &ts
	}
	return tx, true, nil
}

// Insert creates a PROCESSING record. A primary-key conflict yields ErrDuplicate
// and leaves the existing row untouched.
func (r *SQLRepository) Insert(ctx context.Context, tx domain.Transaction) error {
	_, err := r.db.ExecContext(ctx, insertTransactionSQL,
		tx.ID,
		tx.SourceAccount,
		tx.DestinationAccount,
		tx.Amount,
		tx.Currency,
		string(tx.Status),
		tx.CreatedAt.UTC(),
	)
	if err != nil {
		if r.dialect.isUnique(err) {
			return fmt.Errorf("insert transaction %s: %w", tx.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

// MarkProcessed finalizes a PROCESSING record. updated is false when the record
// is missing or already PROCESSED; neither case writes anything.
func (r *SQLRepository) MarkProcessed(ctx context.Context, id string, at time.Time) (bool, error) {
	// go-sqlite3 binds $N by order of first appearance, so placeholders must
	// appear in argument order.
	res, err := r.db.ExecContext(ctx, markProcessedSQL, at.UTC(), id)
	if err != nil {
		return false, fmt.Errorf("mark transaction %s processed: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark transaction %s processed: %w", id, err)
	}
	return n == 1, nil
}

// ListStale returns ids still PROCESSING that were created before the cutoff,
// oldest first.
func (r *SQLRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, listStaleSQL, before.UTC(), normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list stale transactions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale transaction: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Ping checks the database is reachable.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the underlying pool.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

const selectTransactionSQL = `
SELECT transaction_id, source_account, destination_account, amount, currency, status, created_at, processed_at
FROM transactions
WHERE transaction_id = $1`

const insertTransactionSQL = `
INSERT INTO transactions (transaction_id, source_account, destination_account, amount, currency, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const markProcessedSQL = `
UPDATE transactions
SET status = 'PROCESSED', processed_at = $1
WHERE transaction_id = $2 AND status = 'PROCESSING'`

const listStaleSQL = `
SELECT transaction_id
FROM transactions
WHERE status = 'PROCESSING' AND created_at < $1
ORDER BY created_at
LIMIT $2`

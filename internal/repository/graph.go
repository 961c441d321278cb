package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vanshika/txwebhook/internal/domain"
	"github.com/vanshika/txwebhook/internal/graph"
)

// GraphRepository stores each transaction as a :Transaction node. A unique
// constraint on transactionId plays the role of the primary key.
type GraphRepository struct {
	client graph.Client
}

// NewGraph instantiates a GraphRepository backed by the supplied graph client.
func NewGraph(client graph.Client) *GraphRepository {
	return &GraphRepository{client: client}
}

// Migrate installs the uniqueness constraint.
func (r *GraphRepository) Migrate(ctx context.Context) error {
	if _, err := r.client.ExecuteWrite(ctx, createConstraintCypher, nil); err != nil {
		return fmt.Errorf("create transaction constraint: %w", err)
	}
	return nil
}

func (r *GraphRepository) Get(ctx context.Context, id string) (domain.Transaction, bool, error) {
	res, err := r.client.ExecuteRead(ctx, getTransactionCypher, map[string]any{"transactionId": id})
	if err != nil {
		return domain.Transaction{}, false, fmt.Errorf("get transaction %s: %w", id, err)
	}
	if len(res.Records) == 0 {
		return domain.Transaction{}, false, nil
	}

	tx, err := transactionFromRecord(res.Records[0])
	if err != nil {
		return domain.Transaction{}, false, fmt.Errorf("decode transaction %s: %w", id, err)
	}
	return tx, true, nil
}

func (r *GraphRepository) Insert(ctx context.Context, tx domain.Transaction) error {
	params := map[string]any{
		"transactionId": tx.ID,
		"props":         transactionProperties(tx),
	}
	if _, err := r.client.ExecuteWrite(ctx, createTransactionCypher, params); err != nil {
		if errors.Is(err, graph.ErrConstraintViolation) {
			return fmt.Errorf("insert transaction %s: %w", tx.ID, ErrDuplicate)
		}
		return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (r *GraphRepository) MarkProcessed(ctx context.Context, id string, at time.Time) (bool, error) {
	params := map[string]any{
		"transactionId": id,
		"processedAt":   at.UTC(),
	}
	res, err := r.client.ExecuteWrite(ctx, markProcessedCypher, params)
	if err != nil {
		return false, fmt.Errorf("mark transaction %s processed: %w", id, err)
	}
	return len(res.Records) == 1, nil
}

func (r *GraphRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]string, error) {
	params := map[string]any{
		"before": before.UTC(),
		"limit":  normalizeLimit(limit),
	}
	res, err := r.client.ExecuteRead(ctx, listStaleCypher, params)
	if err != nil {
		return nil, fmt.Errorf("list stale transactions: %w", err)
	}
	ids := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		if id := toString(rec["transactionId"]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *GraphRepository) Ping(ctx context.Context) error {
	return r.client.VerifyConnectivity(ctx)
}

func transactionProperties(tx domain.Transaction) map[string]any {
	return map[string]any{
		"sourceAccount":      tx.SourceAccount,
		"destinationAccount": tx.DestinationAccount,
		"amount":             tx.Amount.String(),
		"currency":           tx.Currency,
		"status":             string(tx.Status),
		"createdAt":          tx.CreatedAt.UTC(),
	}
}

func transactionFromRecord(rec graph.Record) (domain.Transaction, error) {
	amount, err := toDecimal(rec["amount"])
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("amount: %w", err)
	}

	tx := domain.Transaction{
		ID:                 toString(rec["transactionId"]),
		SourceAccount:      toString(rec["sourceAccount"]),
		DestinationAccount: toString(rec["destinationAccount"]),
		Amount:             amount,
		Currency:           toString(rec["currency"]),
		Status:             domain.Status(toString(rec["status"])),
		ProcessedAt:        toTimePtr(rec["processedAt"]),
	}
	if created := toTimePtr(rec["createdAt"]); created != nil {
		tx.CreatedAt = *created
	}
	return tx, nil
}

const createConstraintCypher = `
CREATE CONSTRAINT transaction_id_unique IF NOT EXISTS
FOR (t:Transaction) REQUIRE t.transactionId IS UNIQUE
`

const createTransactionCypher = `
CREATE (t:Transaction {transactionId: $transactionId})
SET t += $props
RETURN t.transactionId AS transactionId
`

const getTransactionCypher = `
MATCH (t:Transaction {transactionId: $transactionId})
RETURN t.transactionId AS transactionId,
       t.sourceAccount AS sourceAccount,
       t.destinationAccount AS destinationAccount,
       t.amount AS amount,
       t.currency AS currency,
       t.status AS status,
       t.createdAt AS createdAt,
       t.processedAt AS processedAt
`

const markProcessedCypher = `
MATCH (t:Transaction {transactionId: $transactionId})
WHERE t.status = 'PROCESSING'
SET t.status = 'PROCESSED', t.processedAt = $processedAt
RETURN t.transactionId AS transactionId
`

const listStaleCypher = `
MATCH (t:Transaction)
WHERE t.status = 'PROCESSING' AND t.createdAt < $before
RETURN t.transactionId AS transactionId
ORDER BY t.createdAt
LIMIT $limit
`

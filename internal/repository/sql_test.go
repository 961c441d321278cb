package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/txwebhook/internal/config"
	"github.com/vanshika/txwebhook/internal/domain"
	"github.com/vanshika/txwebhook/internal/graph"
	"github.com/vanshika/txwebhook/internal/logging"
)

func newTestSQLRepository(t *testing.T) *SQLRepository {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "tx.db") + "?_busy_timeout=5000"
	repo, err := OpenSQL(context.Background(), SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func makeTestTransaction(id string, created time.Time) domain.Transaction {
	return domain.NewTransaction(domain.Notification{
		TransactionID:      id,
		SourceAccount:      "ACC-SRC",
		DestinationAccount: "ACC-DST",
		Amount:             decimal.RequireFromString("100.25"),
		Currency:           "USD",
	}, created)
}

func TestSQLRepository_InsertAndGet(t *testing.T) {
	repo := newTestSQLRepository(t)
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Insert(ctx, makeTestTransaction("T1", created)))

	got, found, err := repo.Get(ctx, "T1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ACC-SRC", got.SourceAccount)
	assert.Equal(t, "ACC-DST", got.DestinationAccount)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("100.25")), "amount %s", got.Amount)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, domain.StatusProcessing, got.Status)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Nil(t, got.ProcessedAt)
}

func TestSQLRepository_GetMissingIsNotAnError(t *testing.T) {
	repo := newTestSQLRepository(t)

	_, found, err := repo.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLRepository_DuplicateInsertLeavesOriginal(t *testing.T) {
	repo := newTestSQLRepository(t)
	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, makeTestTransaction("T1", time.Now())))

	dup := makeTestTransaction("T1", time.Now().Add(time.Hour))
	dup.Amount = decimal.NewFromInt(999)
	err := repo.Insert(ctx, dup)
	require.ErrorIs(t, err, ErrDuplicate)

	got, _, err := repo.Get(ctx, "T1")
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("100.25")))
}

func TestSQLRepository_ConcurrentInsertCreatesOneRecord(t *testing.T) {
	repo := newTestSQLRepository(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		created    int
		duplicates int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Insert(ctx, makeTestTransaction("RACE", time.Now()))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case assert.ErrorIs(t, err, ErrDuplicate):
				duplicates++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, duplicates)
}

func TestSQLRepository_MarkProcessedOnce(t *testing.T) {
	repo := newTestSQLRepository(t)
	ctx := context.Background()
	created := time.Now().UTC()
	require.NoError(t, repo.Insert(ctx, makeTestTransaction("T1", created)))

	first := created.Add(time.Second)
	updated, err := repo.MarkProcessed(ctx, "T1", first)
	require.NoError(t, err)
	assert.True(t, updated)

	updated, err = repo.MarkProcessed(ctx, "T1", first.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, updated)

	got, _, err := repo.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, got.Status)
	require.NotNil(t, got.ProcessedAt)
	assert.True(t, got.ProcessedAt.Equal(first), "processed_at overwritten: %s", got.ProcessedAt)

	updated, err = repo.MarkProcessed(ctx, "missing", first)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestSQLRepository_MarkProcessedTargetsOnlyItsRecord(t *testing.T) {
	repo := newTestSQLRepository(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, makeTestTransaction("T1", created)))
	require.NoError(t, repo.Insert(ctx, makeTestTransaction("T2", created)))

	at := created.Add(30 * time.Second)
	updated, err := repo.MarkProcessed(ctx, "T1", at)
	require.NoError(t, err)
	require.True(t, updated)

	got, _, err := repo.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessed, got.Status)
	require.NotNil(t, got.ProcessedAt)
	assert.True(t, got.ProcessedAt.Equal(at))

	other, _, err := repo.Get(ctx, "T2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, other.Status)
	assert.Nil(t, other.ProcessedAt)

	stale, err := repo.ListStale(ctx, created.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"T2"}, stale)
}

func TestSQLRepository_ListStale(t *testing.T) {
	repo := newTestSQLRepository(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, makeTestTransaction("old-1", now.Add(-10*time.Minute))))
	require.NoError(t, repo.Insert(ctx, makeTestTransaction("old-2", now.Add(-5*time.Minute))))
	require.NoError(t, repo.Insert(ctx, makeTestTransaction("fresh", now)))
	require.NoError(t, repo.Insert(ctx, makeTestTransaction("done", now.Add(-20*time.Minute))))
	_, err := repo.MarkProcessed(ctx, "done", now)
	require.NoError(t, err)

	ids, err := repo.ListStale(ctx, now.Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-1", "old-2"}, ids)

	ids, err = repo.ListStale(ctx, now.Add(-time.Minute), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-1"}, ids)
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.DriverName)

	d, err = DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", d.DriverName)

	_, err = DialectFor("neo4j")
	assert.Error(t, err)
}

func TestOpenSelectsSQLiteBackend(t *testing.T) {
	cfg := config.Config{Store: config.StoreConfig{
		Driver:      config.DriverSQLite,
		DatabaseURL: "file:" + filepath.Join(t.TempDir(), "open.db"),
	}}

	store, closeFn, err := Open(context.Background(), logging.Discard(), cfg)
	require.NoError(t, err)
	defer closeFn(context.Background())

	assert.IsType(t, &SQLRepository{}, store)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), logging.Discard(), config.Config{Store: config.StoreConfig{Driver: "mongo"}})
	assert.Error(t, err)
}

func TestOpenNeo4jRequiresURI(t *testing.T) {
	_, _, err := Open(context.Background(), logging.Discard(), config.Config{Store: config.StoreConfig{Driver: config.DriverNeo4j}})
	assert.ErrorIs(t, err, graph.ErrMissingURI)
}

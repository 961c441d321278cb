package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/txwebhook/internal/client"
	"github.com/vanshika/txwebhook/internal/domain"
	"github.com/vanshika/txwebhook/internal/generator"
	"github.com/vanshika/txwebhook/internal/repository"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGenerateWritesDataset(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "generate", "-n", "25", "--seed", "5", "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Generated 25 deliveries")

	hooks, err := generator.ReadNotifications(filepath.Join(dir, generator.FileName))
	require.NoError(t, err)
	assert.Len(t, hooks, 25)
}

func TestGenerateToStdout(t *testing.T) {
	out, err := execute(t, "generate", "-n", "3", "--duplicate-chance", "0", "--stdout")
	require.NoError(t, err)

	var hooks []client.Webhook
	require.NoError(t, json.Unmarshal([]byte(out), &hooks))
	assert.Len(t, hooks, 3)
}

func TestReplayAndGetAgainstServer(t *testing.T) {
	var posts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			posts.Add(1)
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(client.Ack{Message: "Webhook received", TransactionID: "x"})
			return
		}
		if strings.HasSuffix(r.URL.Path, "/T1") {
			_, _ = w.Write([]byte(`{"transaction_id":"T1","amount":100,"status":"PROCESSED","created_at":"2024-01-01T00:00:00Z","processed_at":"2024-01-01T00:00:30Z"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Transaction T2 not found"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := execute(t, "generate", "-n", "10", "--duplicate-chance", "0", "-o", dir)
	require.NoError(t, err)

	out, err := execute(t, "replay", filepath.Join(dir, generator.FileName), "--server", srv.URL, "-w", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "10 received")
	assert.Equal(t, int64(10), posts.Load())

	out, err = execute(t, "get", "T1", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "PROCESSED"`)

	_, err = execute(t, "get", "T2", "--server", srv.URL)
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestRecoverSettlesStaleRecordsInProcess(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "tx.db") + "?_busy_timeout=5000"
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", dsn)
	t.Setenv("RECOVERY_HORIZON", "2m")
	t.Setenv("LOG_LEVEL", "error")

	ctx := context.Background()
	repo, err := repository.OpenSQL(ctx, repository.SQLite, dsn)
	require.NoError(t, err)
	defer repo.Close()

	created := time.Now().UTC().Add(-10 * time.Minute)
	notification := domain.Notification{
		SourceAccount:      "A",
		DestinationAccount: "B",
		Amount:             decimal.RequireFromString("42.50"),
		Currency:           "USD",
	}
	notification.TransactionID = "T-STALE"
	require.NoError(t, repo.Insert(ctx, domain.NewTransaction(notification, created)))
	notification.TransactionID = "T-FRESH"
	require.NoError(t, repo.Insert(ctx, domain.NewTransaction(notification, time.Now().UTC())))

	out, err := execute(t, "recover")
	require.NoError(t, err)
	assert.Contains(t, out, "scheduled 1 stale transactions")

	stale, found, err := repo.Get(ctx, "T-STALE")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.StatusProcessed, stale.Status)
	require.NotNil(t, stale.ProcessedAt)
	assert.False(t, stale.ProcessedAt.Before(stale.CreatedAt))

	fresh, _, err := repo.Get(ctx, "T-FRESH")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, fresh.Status)
	assert.Nil(t, fresh.ProcessedAt)
}

func TestRecoverWithEmptyStore(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file:"+filepath.Join(t.TempDir(), "tx.db")+"?_busy_timeout=5000")
	t.Setenv("LOG_LEVEL", "error")

	out, err := execute(t, "recover")
	require.NoError(t, err)
	assert.Contains(t, out, "scheduled 0 stale transactions")
}

func TestReplayRejectsMissingFile(t *testing.T) {
	_, err := execute(t, "replay", filepath.Join(os.TempDir(), "does-not-exist.json"))
	assert.Error(t, err)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/txwebhook/internal/domain"
	"github.com/vanshika/txwebhook/internal/logging"
	"github.com/vanshika/txwebhook/internal/worker"
)

func TestRecoveryScanSchedulesStaleRecords(t *testing.T) {
	store := newMemoryStore()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	seedProcessing(t, store, "stale-1", now.Add(-10*time.Minute))
	seedProcessing(t, store, "stale-2", now.Add(-3*time.Minute))
	seedProcessing(t, store, "fresh", now.Add(-10*time.Second))

	done := domain.NewTransaction(sampleNotification("done"), now.Add(-time.Hour))
	done.Status = domain.StatusProcessed
	processed := now.Add(-59 * time.Minute)
	done.ProcessedAt = &processed
	store.put(done)

	sched := &recordingScheduler{}
	scanner := NewRecoveryScanner(logging.Discard(), store, sched, 2*time.Minute, 10)
	scanner.WithClock(func() time.Time { return now })

	n, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"stale-1", "stale-2"}, sched.scheduled())
}

func TestRecoveryScanSkipsAlreadyScheduled(t *testing.T) {
	store := newMemoryStore()
	now := time.Now().UTC()
	seedProcessing(t, store, "T1", now.Add(-time.Hour))
	seedProcessing(t, store, "T2", now.Add(-time.Hour))

	sched := SchedulerFunc(func(id string) error {
		if id == "T1" {
			return worker.ErrAlreadyScheduled
		}
		return nil
	})
	n, err := NewRecoveryScanner(logging.Discard(), store, sched, time.Minute, 10).Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRecoveryScanReportsFailures(t *testing.T) {
	store := newMemoryStore()
	seedProcessing(t, store, "T1", time.Now().Add(-time.Hour))
	sched := &recordingScheduler{err: errors.New("closed")}

	_, err := NewRecoveryScanner(logging.Discard(), store, sched, time.Minute, 10).Scan(context.Background())
	assert.Error(t, err)
}

func TestRecoveryResettlesAbandonedRecord(t *testing.T) {
	store := newMemoryStore()
	seedProcessing(t, store, "T1", time.Now().Add(-time.Hour))

	settler := NewSettler(logging.Discard(), store, SettlerOptions{})
	runner := worker.NewRunner(logging.Discard(), settler.Settle, nil)
	scanner := NewRecoveryScanner(logging.Discard(), store, runner, time.Minute, 10)

	n, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, runner.Shutdown(context.Background()))

	tx, _ := store.snapshot("T1")
	assert.Equal(t, domain.StatusProcessed, tx.Status)
}

func TestRecoveryRunStopsOnCancel(t *testing.T) {
	store := newMemoryStore()
	sched := &recordingScheduler{}
	scanner := NewRecoveryScanner(logging.Discard(), store, sched, time.Minute, 10)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- scanner.Run(ctx, 10*time.Millisecond) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

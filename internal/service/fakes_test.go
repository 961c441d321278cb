package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vanshika/txwebhook/internal/domain"
	"github.com/vanshika/txwebhook/internal/repository"
)

// memoryStore enforces the same uniqueness and conditional-update rules as
// the real repositories.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]domain.Transaction

	getErr    error
	insertErr error
	markErr   error
	inserts   int
	marks     int

	// beforeInsert, when set, runs without the lock before every Insert.
	beforeInsert func()
	// dropMarks makes MarkProcessed write nothing and report updated=false.
	dropMarks bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]domain.Transaction)}
}

func (m *memoryStore) Get(_ context.Context, id string) (domain.Transaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.Transaction{}, false, m.getErr
	}
	tx, ok := m.records[id]
	return tx, ok, nil
}

func (m *memoryStore) Insert(_ context.Context, tx domain.Transaction) error {
	if m.beforeInsert != nil {
		m.beforeInsert()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if _, exists := m.records[tx.ID]; exists {
		return fmt.Errorf("insert %s: %w", tx.ID, repository.ErrDuplicate)
	}
	m.inserts++
	m.records[tx.ID] = tx
	return nil
}

func (m *memoryStore) MarkProcessed(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return false, m.markErr
	}
	if m.dropMarks {
		return false, nil
	}
	tx, ok := m.records[id]
	if !ok || tx.Status != domain.StatusProcessing {
		return false, nil
	}
	m.marks++
	tx.Status = domain.StatusProcessed
	tx.ProcessedAt = &at
	m.records[id] = tx
	return true, nil
}

func (m *memoryStore) ListStale(_ context.Context, before time.Time, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stale []domain.Transaction
	for _, tx := range m.records {
		if tx.Status == domain.StatusProcessing && tx.CreatedAt.Before(before) {
			stale = append(stale, tx)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
	ids := make([]string, 0, len(stale))
	for i, tx := range stale {
		if limit > 0 && i >= limit {
			break
		}
		ids = append(ids, tx.ID)
	}
	return ids, nil
}

func (m *memoryStore) snapshot(id string) (domain.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.records[id]
	return tx, ok
}

func (m *memoryStore) put(tx domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[tx.ID] = tx
}

type recordingScheduler struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (r *recordingScheduler) Schedule(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.ids = append(r.ids, id)
	return nil
}

func (r *recordingScheduler) scheduled() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

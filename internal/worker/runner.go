package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrRunnerClosed is returned by Schedule once Shutdown has begun.
	ErrRunnerClosed = errors.New("task runner is shut down")
	// ErrAlreadyScheduled is returned when a task for the same id is still running.
	ErrAlreadyScheduled = errors.New("task already scheduled")
)

// Task is a unit of detached work keyed by an identifier.
type Task func(ctx context.Context, id string) error

// FailureHandler supervises failed tasks.
type FailureHandler func(id string, err error)

// Runner executes each scheduled task on its own goroutine under a context
// owned by the runner, never by the caller that scheduled it.
type Runner struct {
	task      Task
	logger    *slog.Logger
	onFailure FailureHandler

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	active map[string]struct{}
	wg     sync.WaitGroup
}

// NewRunner builds a Runner. onFailure may be nil, in which case failures are
// logged only.
func NewRunner(logger *slog.Logger, task Task, onFailure FailureHandler) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		task:      task,
		logger:    logger,
		onFailure: onFailure,
		ctx:       ctx,
		cancel:    cancel,
		active:    make(map[string]struct{}),
	}
}

// Schedule starts the task for id and returns immediately. At most one task
// per id runs at a time.
func (r *Runner) Schedule(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRunnerClosed
	}
	if _, running := r.active[id]; running {
		return ErrAlreadyScheduled
	}
	r.active[id] = struct{}{}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.release(id)
		if err := r.task(r.ctx, id); err != nil {
			r.logger.Error("task failed", "id", id, "error", err)
			if r.onFailure != nil {
				r.onFailure(id, err)
			}
		}
	}()
	return nil
}

// Active reports how many tasks are in flight.
func (r *Runner) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func (r *Runner) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}

// Shutdown stops accepting work and waits for in-flight tasks. When ctx
// expires first the remaining tasks are cancelled and abandoned; their records
// stay eligible for recovery.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		r.logger.Warn("abandoning in-flight tasks", "error", ctx.Err())
		return ctx.Err()
	}
}

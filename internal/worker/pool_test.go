package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunVisitsEveryIndex(t *testing.T) {
	pool := NewPool(3)
	var visited [20]int32

	err := pool.Run(context.Background(), len(visited), func(idx int) error {
		atomic.AddInt32(&visited[idx], 1)
		return nil
	})
	require.NoError(t, err)
	for i, n := range visited {
		assert.EqualValues(t, 1, n, "index %d", i)
	}
}

func TestPoolRunCollectsErrors(t *testing.T) {
	errOdd := errors.New("odd")
	pool := NewPool(2)

	err := pool.Run(context.Background(), 6, func(idx int) error {
		if idx%2 == 1 {
			return errOdd
		}
		return nil
	})

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Len(t, taskErr.Errors, 3)
	assert.ErrorIs(t, err, errOdd)
	assert.Contains(t, err.Error(), "multiple errors")
}

func TestPoolRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewPool(2).Run(ctx, 100, func(int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewPoolDefaultsWorkers(t *testing.T) {
	assert.Equal(t, 4, NewPool(0).Workers())
}

package client

import (
	"context"
	"sync/atomic"

	"github.com/vanshika/txwebhook/internal/worker"
)

// ReplayStats summarises a replay run.
type ReplayStats struct {
	Received   int64
	Duplicates int64
	Failed     int64
}

// Replay submits every webhook through a pool of concurrent senders. Individual
// failures are counted and joined into the returned error.
func Replay(ctx context.Context, c *Client, pool *worker.Pool, hooks []Webhook) (ReplayStats, error) {
	var received, duplicates, failed atomic.Int64

	err := pool.Run(ctx, len(hooks), func(idx int) error {
		ack, err := c.Submit(ctx, hooks[idx])
		if err != nil {
			failed.Add(1)
			return err
		}
		if ack.Message == MessageAlreadyReceived {
			duplicates.Add(1)
		} else {
			received.Add(1)
		}
		return nil
	})

	return ReplayStats{
		Received:   received.Load(),
		Duplicates: duplicates.Load(),
		Failed:     failed.Load(),
	}, err
}

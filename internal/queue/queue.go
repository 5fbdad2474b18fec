// Package queue implements a durable, FIFO-within-a-queue task queue backed
// by a Redis list, used to dispatch one task per AccountRun (the periodic
// tick runs from a timer, not through the queue). There is no in-pack
// task-queue library; go-redis is
// already part of the teacher's stack (used for pub/sub in its escalation
// engine), so the queue is built directly on its list commands rather than
// reaching for an unrelated broker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Pop when no task is available within the wait
// timeout.
var ErrEmpty = errors.New("queue: no task available")

// Queue is a single named FIFO queue over one Redis list key.
type Queue struct {
	rdb *redis.Client
	key string
}

// New returns a Queue backed by the given Redis key.
func New(rdb *redis.Client, key string) *Queue {
	return &Queue{rdb: rdb, key: key}
}

// Push enqueues payload (marshaled to JSON) at the tail of the list.
func (q *Queue) Push(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling task payload: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.key, body).Err(); err != nil {
		return fmt.Errorf("pushing task onto %s: %w", q.key, err)
	}
	return nil
}

// Pop blocks up to wait for a task at the head of the list and unmarshals it
// into out. Returns ErrEmpty if wait elapses with nothing enqueued.
func (q *Queue) Pop(ctx context.Context, wait time.Duration, out any) error {
	result, err := q.rdb.BLPop(ctx, wait, q.key).Result()
	if err == redis.Nil {
		return ErrEmpty
	}
	if err != nil {
		return fmt.Errorf("popping task from %s: %w", q.key, err)
	}
	// BLPop returns [key, value].
	if len(result) != 2 {
		return fmt.Errorf("unexpected BLPOP reply shape: %d elements", len(result))
	}
	if err := json.Unmarshal([]byte(result[1]), out); err != nil {
		return fmt.Errorf("unmarshaling task payload: %w", err)
	}
	return nil
}

// Len reports the current queue depth.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("checking queue length for %s: %w", q.key, err)
	}
	return n, nil
}

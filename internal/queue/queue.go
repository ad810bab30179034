package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ScanEvent is the payload fanned out after each successful scan so external
// collaborators (notifications, activity log) can react without blocking the
// scan path.
type ScanEvent struct {
	EventID     string    `json:"event_id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name"`
	Action      string    `json:"action"`
	Timestamp   time.Time `json:"timestamp"`
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, evt ScanEvent) error
	Consume(ctx context.Context) (<-chan ScanEvent, error)
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan ScanEvent
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan ScanEvent, size)}
}

// Publish enqueues a scan event.
func (q *InMemory) Publish(ctx context.Context, evt ScanEvent) error {
	select {
	case q.ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan ScanEvent, error) {
	out := make(chan ScanEvent)
	go func() {
		defer close(out)
		for {
			select {
			case evt := <-q.ch:
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a simple Redis list-backed queue.
type RedisQueue struct {
	client   *redis.Client
	key      string
	errSleep time.Duration // pause after a consume error so a dead server isn't hammered
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "campusattend:scans"
	}
	return &RedisQueue{client: client, key: key, errSleep: time.Second}
}

// Publish enqueues a scan event as JSON.
func (q *RedisQueue) Publish(ctx context.Context, evt ScanEvent) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, raw).Err()
}

// Consume streams scan events using BRPOP. Undecodable entries are skipped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan ScanEvent, error) {
	out := make(chan ScanEvent)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				select {
				case <-time.After(q.errSleep):
				case <-ctx.Done():
					return
				}
				continue
			}
			if len(res) == 2 {
				var evt ScanEvent
				if json.Unmarshal([]byte(res[1]), &evt) == nil {
					select {
					case out <- evt:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

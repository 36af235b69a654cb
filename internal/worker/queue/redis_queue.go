// Package queue implements a reliable Redis list queue: messages move from
// the pending list to a processing list on pop, and are only removed on ack.
// A crashed consumer leaves its message in the processing list, where
// Recover finds it on the next start. Delivery is therefore at-least-once.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is the envelope carried on the queue. Data is the full submission
// payload, passed through opaque so producer and consumer can evolve it
// without touching the queue.
type Message struct {
	VideoID string          `json:"video_id"`
	Data    json.RawMessage `json:"data"`
}

// Delivery is one popped message plus the raw payload needed to ack it.
type Delivery struct {
	Msg Message
	raw string
}

type RedisQueue struct {
	rdb        *redis.Client
	pending    string
	processing string
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{
		rdb:        rdb,
		pending:    queueName,
		processing: queueName + ":processing",
	}
}

// Publish enqueues one job. It only returns once Redis has accepted the
// message, so a successful publish survives a producer crash.
func (q *RedisQueue) Publish(ctx context.Context, videoID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal message data: %w", err)
	}
	body, err := json.Marshal(Message{VideoID: videoID, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return q.rdb.LPush(ctx, q.pending, body).Err()
}

// Pop blocks up to timeout for the next message, moving it atomically to
// the processing list. Returns (nil, nil) when the wait times out. One
// in-flight message per consumer; the caller must Ack or Nack before the
// next Pop.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Delivery, error) {
	raw, err := q.rdb.BLMove(ctx, q.pending, q.processing, "RIGHT", "LEFT", timeout).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		// Poison payload: drop it from processing so it cannot loop forever.
		_ = q.rdb.LRem(ctx, q.processing, 1, raw).Err()
		return nil, fmt.Errorf("malformed queue message dropped: %w", err)
	}

	return &Delivery{Msg: msg, raw: raw}, nil
}

// Ack removes a delivered message permanently.
func (q *RedisQueue) Ack(ctx context.Context, d *Delivery) error {
	return q.rdb.LRem(ctx, q.processing, 1, d.raw).Err()
}

// Nack returns a delivered message to the front of the pending list for
// redelivery.
func (q *RedisQueue) Nack(ctx context.Context, d *Delivery) error {
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, q.processing, 1, d.raw)
	pipe.RPush(ctx, q.pending, d.raw)
	_, err := pipe.Exec(ctx)
	return err
}

// Recover moves messages stranded in the processing list back to pending.
// Called once at consumer start, before the first Pop, it turns a crash
// mid-job into a redelivery.
func (q *RedisQueue) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		_, err := q.rdb.LMove(ctx, q.processing, q.pending, "RIGHT", "RIGHT").Result()
		if err != nil {
			if err == redis.Nil {
				return moved, nil
			}
			return moved, err
		}
		moved++
	}
}

// Len reports how many messages are waiting in the pending list.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.pending).Result()
}

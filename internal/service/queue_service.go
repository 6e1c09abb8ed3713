package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error)
	Ack(ctx context.Context, jobID string) error
	RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error)
}

type QueueKeys struct {
	QueueKey      string
	ProcessingKey string
	// ClaimsKey is a hash of job id -> claim time (unix ms) for items in ProcessingKey.
	ClaimsKey string
}

// RedisQueue is a reliable list queue.
// Enqueue: LPUSH queue
// Claim:   BRPOPLPUSH queue -> processing, then record the claim time
// Ack:     LREM from processing
// Reaper:  items claimed longer than the visibility timeout go back to the consuming end of queue
type RedisQueue struct {
	rdb  redis.UniversalClient
	keys QueueKeys
	now  func() time.Time
}

func NewRedisQueue(rdb redis.UniversalClient, keys QueueKeys) *RedisQueue {
	if keys.ClaimsKey == "" {
		keys.ClaimsKey = keys.ProcessingKey + ":claims"
	}
	return &RedisQueue{rdb: rdb, keys: keys, now: time.Now}
}

func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) error {
	return q.rdb.LPush(ctx, q.keys.QueueKey, jobID).Err()
}

// ClaimBlocking waits up to timeout for a job id; redis.Nil means nothing arrived.
// A non-positive timeout waits until ctx is done, in one-second slots.
func (q *RedisQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	forever := timeout <= 0
	deadline := time.Now().Add(timeout)

	slot := time.Second
	if !forever && timeout < slot {
		slot = timeout
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		wait := slot
		if !forever {
			remain := time.Until(deadline)
			if remain <= 0 {
				return "", redis.Nil
			}
			if remain < wait {
				wait = remain
			}
		}

		id, err := q.rdb.BRPopLPush(ctx, q.keys.QueueKey, q.keys.ProcessingKey, wait).Result()
		if err == nil {
			if hErr := q.rdb.HSet(ctx, q.keys.ClaimsKey, id, q.now().UnixMilli()).Err(); hErr != nil {
				// the item stays in processing without a claim time; the reaper stamps and later requeues it
				return "", hErr
			}
			return id, nil
		}
		if errors.Is(err, redis.Nil) {
			continue
		}
		return "", err
	}
}

func (q *RedisQueue) Ack(ctx context.Context, jobID string) error {
	if err := q.rdb.LRem(ctx, q.keys.ProcessingKey, 1, jobID).Err(); err != nil {
		return err
	}
	return q.rdb.HDel(ctx, q.keys.ClaimsKey, jobID).Err()
}

var requeueScript = redis.NewScript(`
if redis.call('LREM', KEYS[1], 1, ARGV[1]) > 0 then
  redis.call('RPUSH', KEYS[2], ARGV[1])
  redis.call('HDEL', KEYS[3], ARGV[1])
  return 1
end
return 0
`)

// RequeueStale moves up to max items claimed more than olderThan ago back to the queue.
// Delivery is at-least-once; the executor rejects jobs that already left pending.
func (q *RedisQueue) RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error) {
	ids, err := q.rdb.LRange(ctx, q.keys.ProcessingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}

	now := q.now()
	var moved int64
	for _, id := range ids {
		if max > 0 && moved >= max {
			break
		}

		claimed, err := q.rdb.HGet(ctx, q.keys.ClaimsKey, id).Result()
		if errors.Is(err, redis.Nil) {
			// claim time was never written: start the clock now
			if err := q.rdb.HSetNX(ctx, q.keys.ClaimsKey, id, now.UnixMilli()).Err(); err != nil {
				return moved, err
			}
			continue
		}
		if err != nil {
			return moved, err
		}

		ms, perr := strconv.ParseInt(claimed, 10, 64)
		if perr == nil && now.Sub(time.UnixMilli(ms)) < olderThan {
			continue
		}

		n, err := requeueScript.Run(ctx, q.rdb,
			[]string{q.keys.ProcessingKey, q.keys.QueueKey, q.keys.ClaimsKey}, id,
		).Int64()
		if err != nil {
			return moved, err
		}
		moved += n
	}
	return moved, nil
}

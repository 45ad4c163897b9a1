package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vitality-score/internal/domain"
	"vitality-score/internal/infra/metrics"
)

// RedisScoreQueue реализует очередь задач на базе Redis lists.
type RedisScoreQueue struct {
	client *redis.Client
	key    string
}

var _ domain.ScoreQueue = (*RedisScoreQueue)(nil)

// NewRedisScoreQueue создаёт очередь по указанному ключу.
func NewRedisScoreQueue(client *redis.Client, key string) *RedisScoreQueue {
	return &RedisScoreQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisScoreQueue) Enqueue(ctx context.Context, job domain.ScoreJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу из очереди. ack(false) возвращает задачу
// в очередь, ack(true) ничего не делает: BRPOP уже удалил её.
func (q *RedisScoreQueue) Receive(ctx context.Context) (domain.ScoreJob, domain.AckFunc, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.ScoreJob{}, nil, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.ScoreJob{}, nil, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.ScoreJob{}, nil, err
		}
		if len(res) != 2 {
			return domain.ScoreJob{}, nil, errors.New("redis queue: unexpected response")
		}
		payload := res[1]
		var job domain.ScoreJob
		if err := json.Unmarshal([]byte(payload), &job); err != nil {
			return domain.ScoreJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		ack := func(success bool) error {
			if success {
				return nil
			}
			start := time.Now()
			err := q.client.LPush(context.WithoutCancel(ctx), q.key, payload).Err()
			metrics.ObserveNetworkRequest("redis", "requeue", q.key, start, err)
			return err
		}
		return job, ack, nil
	}
}

package queue

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"vitality-score/internal/domain"
)

const (
	BackendRedis    = "redis"
	BackendRabbitMQ = "rabbitmq"
)

// ErrUnknownBackend возвращается для неизвестного QUEUE_BACKEND.
var ErrUnknownBackend = errors.New("unknown queue backend")

// Options выбирает реализацию очереди задач.
type Options struct {
	Backend   string
	Name      string
	Redis     *redis.Client
	RabbitURL string
}

// Open создаёт очередь задач и функцию её закрытия.
func Open(opts Options) (domain.ScoreQueue, func() error, error) {
	if opts.Name == "" {
		return nil, nil, errors.New("queue name is empty")
	}
	switch opts.Backend {
	case BackendRedis, "":
		if opts.Redis == nil {
			return nil, nil, errors.New("redis backend requires REDIS_ADDR")
		}
		return NewRedisScoreQueue(opts.Redis, opts.Name), func() error { return nil }, nil
	case BackendRabbitMQ:
		if opts.RabbitURL == "" {
			return nil, nil, errors.New("rabbitmq backend requires RABBITMQ_URL")
		}
		q, err := NewRabbitScoreQueue(opts.RabbitURL, opts.Name)
		if err != nil {
			return nil, nil, err
		}
		return q, q.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

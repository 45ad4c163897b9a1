package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"vitality-score/internal/domain"
	"vitality-score/internal/infra/metrics"
)

// RabbitScoreQueue реализует очередь задач через AMQP с ручным подтверждением.
type RabbitScoreQueue struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string

	consumeOnce sync.Once
	deliveries  <-chan amqp.Delivery
	consumeErr  error
}

var _ domain.ScoreQueue = (*RabbitScoreQueue)(nil)

// NewRabbitScoreQueue подключается к брокеру и объявляет durable очередь.
func NewRabbitScoreQueue(amqpURL, queue string) (*RabbitScoreQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &RabbitScoreQueue{conn: conn, ch: ch, queue: queue}, nil
}

// Enqueue публикует задачу в очередь.
func (q *RabbitScoreQueue) Enqueue(ctx context.Context, job domain.ScoreJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Timestamp:    job.RequestedAt,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Receive блокирующе читает задачу. ack(false) возвращает сообщение брокеру.
func (q *RabbitScoreQueue) Receive(ctx context.Context) (domain.ScoreJob, domain.AckFunc, error) {
	q.consumeOnce.Do(func() {
		q.deliveries, q.consumeErr = q.ch.Consume(q.queue, "", false, false, false, false, nil)
	})
	if q.consumeErr != nil {
		return domain.ScoreJob{}, nil, fmt.Errorf("consume: %w", q.consumeErr)
	}

	select {
	case <-ctx.Done():
		return domain.ScoreJob{}, nil, ctx.Err()
	case d, ok := <-q.deliveries:
		if !ok {
			return domain.ScoreJob{}, nil, errors.New("rabbitmq: delivery channel closed")
		}
		var job domain.ScoreJob
		if err := json.Unmarshal(d.Body, &job); err != nil {
			_ = d.Reject(false)
			return domain.ScoreJob{}, nil, fmt.Errorf("decode job: %w", err)
		}
		ack := func(success bool) error {
			if success {
				return d.Ack(false)
			}
			return d.Nack(false, true)
		}
		return job, ack, nil
	}
}

// Close закрывает канал и соединение.
func (q *RabbitScoreQueue) Close() error {
	return errors.Join(q.ch.Close(), q.conn.Close())
}

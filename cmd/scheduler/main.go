package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"vitality-score/internal/adapters/repo"
	"vitality-score/internal/infra/config"
	"vitality-score/internal/infra/db"
	applog "vitality-score/internal/infra/log"
	"vitality-score/internal/infra/metrics"
	"vitality-score/internal/infra/queue"
	"vitality-score/internal/usecase/schedule"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.Metrics.Addr)

	pool, err := db.ConnectContext(ctx, cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: нет подключения к БД")
	}
	defer pool.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}
	scoreQueue, closeQueue, err := queue.Open(queue.Options{
		Backend:   cfg.Queues.Backend,
		Name:      cfg.Queues.Score,
		Redis:     redisClient,
		RabbitURL: cfg.RabbitMQ.URL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось инициализировать очередь")
	}
	defer closeQueue()

	sweeper := schedule.NewService(repo.NewPostgres(pool), scoreQueue, schedule.Config{
		LookbackDays: cfg.Scheduler.LookbackDays,
		Grace:        cfg.Scheduler.Grace,
		Batch:        cfg.Scheduler.Batch,
	}, applog.Component(logger, "scheduler"))

	logger.Info().Dur("interval", cfg.Scheduler.Interval).Msg("scheduler: запуск")
	sweeper.Run(ctx, cfg.Scheduler.Interval)
	logger.Info().Msg("scheduler: остановлен")
}

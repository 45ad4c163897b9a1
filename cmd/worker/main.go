package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"vitality-score/internal/adapters/repo"
	"vitality-score/internal/adapters/telegram"
	"vitality-score/internal/infra/cache"
	"vitality-score/internal/infra/config"
	"vitality-score/internal/infra/db"
	applog "vitality-score/internal/infra/log"
	"vitality-score/internal/infra/metrics"
	"vitality-score/internal/infra/queue"
	"vitality-score/internal/usecase/score"
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
		logger.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("worker: не удалось применить миграции")
	}
	repoAdapter := repo.NewPostgres(pool)

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
		logger.Fatal().Err(err).Str("backend", cfg.Queues.Backend).Msg("worker: не удалось инициализировать очередь")
	}
	defer closeQueue()

	opts := []score.Option{
		score.WithAnalytics(repoAdapter),
		score.WithLogger(applog.Component(logger, "score")),
	}
	workerCfg := score.WorkerConfig{
		Queue:     scoreQueue,
		Statuses:  repoAdapter,
		Links:     repoAdapter,
		Analytics: repoAdapter,
		Logger:    applog.Component(logger, "worker"),
	}
	if redisClient != nil {
		redisCache := cache.NewRedis(redisClient)
		opts = append(opts, score.WithCache(redisCache, cfg.Cache.ScoreTTL))
		workerCfg.Cache = redisCache
	}

	if cfg.Telegram.Token == "" {
		logger.Warn().Msg("worker: не указан токен Telegram (TG_BOT_TOKEN), уведомления отключены")
	} else {
		notifier, err := telegram.NewBotNotifier(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: не удалось создать бота")
		}
		workerCfg.Notifier = notifier
	}

	workerCfg.Service = score.NewService(repoAdapter, repoAdapter, opts...)

	logger.Info().Str("backend", cfg.Queues.Backend).Str("queue", cfg.Queues.Score).Msg("worker: запуск обработки очереди")
	score.NewWorker(workerCfg).Run(ctx)
	logger.Info().Msg("worker: остановлен")
}

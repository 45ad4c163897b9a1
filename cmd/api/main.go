package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"vitality-score/internal/adapters/httpapi"
	"vitality-score/internal/adapters/repo"
	"vitality-score/internal/infra/cache"
	"vitality-score/internal/infra/config"
	"vitality-score/internal/infra/db"
	httpinfra "vitality-score/internal/infra/http"
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

	pool, err := db.ConnectContext(ctx, cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("api: не удалось применить миграции")
	}

	auth, err := httpinfra.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: не указан секрет JWT (AUTH_JWT_SECRET)")
	}

	repoAdapter := repo.NewPostgres(pool)
	opts := []score.Option{
		score.WithAnalytics(repoAdapter),
		score.WithLogger(applog.Component(logger, "score")),
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		opts = append(opts, score.WithCache(cache.NewRedis(redisClient), cfg.Cache.ScoreTTL))
	}

	scoreQueue, closeQueue, err := queue.Open(queue.Options{
		Backend:   cfg.Queues.Backend,
		Name:      cfg.Queues.Score,
		Redis:     redisClient,
		RabbitURL: cfg.RabbitMQ.URL,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("api: очередь задач недоступна, асинхронный расчёт отключён")
	} else {
		defer closeQueue()
		opts = append(opts, score.WithQueue(scoreQueue))
	}

	service := score.NewService(repoAdapter, repoAdapter, opts...)
	api := httpapi.NewServer(service,
		httpapi.WithLogger(applog.Component(logger, "httpapi")),
		httpapi.WithNotificationLinks(repoAdapter),
	)

	srv := httpinfra.NewServer(logger, cfg.HTTP.RequestTimeout)
	srv.Router.Group(func(protected chi.Router) {
		protected.Use(auth.Middleware)
		protected.Mount("/api/v1", api.Router())
	})

	go func() {
		logger.Info().Msg("api: старт")
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("api: сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: ошибка остановки сервера")
	}
}

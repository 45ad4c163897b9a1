package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"vitality-score/internal/adapters/bot"
	"vitality-score/internal/adapters/repo"
	"vitality-score/internal/infra/cache"
	"vitality-score/internal/infra/config"
	"vitality-score/internal/infra/db"
	httpinfra "vitality-score/internal/infra/http"
	applog "vitality-score/internal/infra/log"
	"vitality-score/internal/infra/metrics"
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
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()
	repoAdapter := repo.NewPostgres(pool)

	auth, err := httpinfra.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("не указан секрет JWT (AUTH_JWT_SECRET)")
	}

	opts := []score.Option{score.WithLogger(applog.Component(logger, "score"))}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		opts = append(opts, score.WithCache(cache.NewRedis(redisClient), cfg.Cache.ScoreTTL))
	}
	service := score.NewService(repoAdapter, repoAdapter, opts...)

	if cfg.Telegram.Token == "" {
		logger.Fatal().Msg("не указан токен Telegram (TG_BOT_TOKEN)")
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}

	h := bot.NewHandler(botAPI, applog.Component(logger, "bot"), service, repoAdapter, auth)

	srv := httpinfra.NewServer(logger, cfg.HTTP.RequestTimeout)
	srv.Router.Post("/bot/webhook", h.Webhook(cfg.Telegram.WebhookSecret))

	go func() {
		logger.Info().Msg("бот-гейтвей запущен")
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("остановка бота")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

var _ bot.ChatLinks = (*repo.Postgres)(nil)

package domain

import (
	"context"
	"time"
)

// DailyScoreRepo хранит оценки дня. Сохранение заменяет запись (пользователь, дата) целиком.
type DailyScoreRepo interface {
	SaveDailyScore(ctx context.Context, record DailyScoreRecord) error
	GetDailyScore(ctx context.Context, userID, date string) (DailyScoreRecord, error)
	ListDailyScores(ctx context.Context, userID, from, to string) ([]DailyScoreRecord, error)
}

// DailyMetricsRepo хранит сырые метрики.
type DailyMetricsRepo interface {
	SaveDailyMetrics(ctx context.Context, entry DailyMetricsEntry) error
	GetDailyMetrics(ctx context.Context, userID, date string) (DailyMetricsEntry, error)
}

// NotificationLinkRepo связывает пользователя с чатом Telegram для уведомлений.
type NotificationLinkRepo interface {
	LinkTelegramChat(ctx context.Context, userID string, chatID int64) error
	GetTelegramChat(ctx context.Context, userID string) (int64, error)
}

// Notifier отправляет HTML сообщение в чат.
type Notifier interface {
	SendHTML(ctx context.Context, chatID int64, text string) error
}

// Cache абстракция кэша.
type Cache interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
}

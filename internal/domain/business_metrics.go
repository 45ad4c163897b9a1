package domain

import (
	"context"
	"time"
)

// BusinessMetric описывает продуктовое событие для аналитики.
type BusinessMetric struct {
	Event      string
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

const (
	// BusinessMetricEventMetricsSubmitted фиксирует отправку сырых метрик.
	BusinessMetricEventMetricsSubmitted = "daily_metrics_submitted"
	// BusinessMetricEventScoreComputed фиксирует рассчитанную и сохранённую оценку дня.
	BusinessMetricEventScoreComputed = "daily_score_computed"
	// BusinessMetricEventScoreDelivered фиксирует отправку оценки пользователю.
	BusinessMetricEventScoreDelivered = "daily_score_delivered"
)

// BusinessMetricRepo сохраняет бизнес-события.
type BusinessMetricRepo interface {
	RecordBusinessMetric(ctx context.Context, metric BusinessMetric) error
}

package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vitality-score/internal/domain"
	"vitality-score/internal/infra/metrics"
)

// Postgres реализует репозитории на pgx.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.DailyScoreRepo       = (*Postgres)(nil)
	_ domain.DailyMetricsRepo     = (*Postgres)(nil)
	_ domain.StaleMetricsRepo     = (*Postgres)(nil)
	_ domain.ScoreJobStatusRepo   = (*Postgres)(nil)
	_ domain.NotificationLinkRepo = (*Postgres)(nil)
	_ domain.BusinessMetricRepo   = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

const selectDailyScore = `
SELECT user_id::text, to_char(score_date, 'YYYY-MM-DD'),
       longevity_impact_score, biological_age_impact, color_code,
       sleep_score, stress_score, physical_activity_score, nutrition_score,
       social_connections_score, cognitive_engagement_score, computed_at
FROM daily_scores`

// SaveDailyScore перезаписывает оценку за (пользователь, дата) целиком.
func (p *Postgres) SaveDailyScore(ctx context.Context, record domain.DailyScoreRecord) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO daily_scores (
    user_id, score_date, longevity_impact_score, biological_age_impact, color_code,
    sleep_score, stress_score, physical_activity_score, nutrition_score,
    social_connections_score, cognitive_engagement_score, computed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (user_id, score_date) DO UPDATE
    SET longevity_impact_score     = EXCLUDED.longevity_impact_score,
        biological_age_impact      = EXCLUDED.biological_age_impact,
        color_code                 = EXCLUDED.color_code,
        sleep_score                = EXCLUDED.sleep_score,
        stress_score               = EXCLUDED.stress_score,
        physical_activity_score    = EXCLUDED.physical_activity_score,
        nutrition_score            = EXCLUDED.nutrition_score,
        social_connections_score   = EXCLUDED.social_connections_score,
        cognitive_engagement_score = EXCLUDED.cognitive_engagement_score,
        computed_at                = EXCLUDED.computed_at
`,
		record.UserID, record.Date, record.LongevityImpactScore, record.BiologicalAgeImpact, string(record.ColorCode),
		record.Sleep, record.Stress, record.PhysicalActivity, record.Nutrition,
		record.SocialConnections, record.CognitiveEngagement, record.ComputedAt)
	metrics.ObserveNetworkRequest("postgres", "daily_scores_upsert", "daily_scores", start, err)
	return err
}

// GetDailyScore возвращает оценку или domain.ErrScoreNotFound.
func (p *Postgres) GetDailyScore(ctx context.Context, userID, date string) (domain.DailyScoreRecord, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	record, err := scanDailyScore(p.pool.QueryRow(ctx, selectDailyScore+` WHERE user_id = $1 AND score_date = $2`, userID, date))
	metrics.ObserveNetworkRequest("postgres", "daily_scores_get", "daily_scores", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DailyScoreRecord{}, domain.ErrScoreNotFound
	}
	return record, err
}

// ListDailyScores возвращает оценки за период по возрастанию даты.
func (p *Postgres) ListDailyScores(ctx context.Context, userID, from, to string) ([]domain.DailyScoreRecord, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, selectDailyScore+`
WHERE user_id = $1 AND score_date BETWEEN $2 AND $3
ORDER BY score_date`, userID, from, to)
	metrics.ObserveNetworkRequest("postgres", "daily_scores_list", "daily_scores", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DailyScoreRecord
	for rows.Next() {
		record, err := scanDailyScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func scanDailyScore(row pgx.Row) (domain.DailyScoreRecord, error) {
	var (
		r     domain.DailyScoreRecord
		color string
	)
	err := row.Scan(
		&r.UserID, &r.Date, &r.LongevityImpactScore, &r.BiologicalAgeImpact, &color,
		&r.Sleep, &r.Stress, &r.PhysicalActivity, &r.Nutrition,
		&r.SocialConnections, &r.CognitiveEngagement, &r.ComputedAt,
	)
	r.ColorCode = domain.ColorCode(color)
	r.ComputedAt = r.ComputedAt.UTC()
	return r, err
}

// SaveDailyMetrics сохраняет сырые метрики в JSONB.
func (p *Postgres) SaveDailyMetrics(ctx context.Context, entry domain.DailyMetricsEntry) error {
	payload, err := json.Marshal(entry.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}

	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err = p.pool.Exec(ctx, `
INSERT INTO daily_metrics (user_id, metric_date, metrics, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, metric_date) DO UPDATE
    SET metrics = EXCLUDED.metrics,
        updated_at = EXCLUDED.updated_at
`, entry.UserID, entry.Date, payload, entry.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "daily_metrics_upsert", "daily_metrics", start, err)
	return err
}

// GetDailyMetrics возвращает метрики или domain.ErrMetricsNotFound.
func (p *Postgres) GetDailyMetrics(ctx context.Context, userID, date string) (domain.DailyMetricsEntry, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var (
		entry   domain.DailyMetricsEntry
		payload []byte
	)
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT user_id::text, to_char(metric_date, 'YYYY-MM-DD'), metrics, updated_at
FROM daily_metrics WHERE user_id = $1 AND metric_date = $2
`, userID, date).Scan(&entry.UserID, &entry.Date, &payload, &entry.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "daily_metrics_get", "daily_metrics", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DailyMetricsEntry{}, domain.ErrMetricsNotFound
	}
	if err != nil {
		return domain.DailyMetricsEntry{}, err
	}
	if err := json.Unmarshal(payload, &entry.Metrics); err != nil {
		return domain.DailyMetricsEntry{}, fmt.Errorf("decode metrics: %w", err)
	}
	entry.UpdatedAt = entry.UpdatedAt.UTC()
	return entry, nil
}

// EnsureScoreJob регистрирует попытку обработки задачи.
func (p *Postgres) EnsureScoreJob(ctx context.Context, jobID string) (bool, int, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var (
		doneAt   sql.NullTime
		attempts int
	)

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO score_job_statuses (job_id, attempts, updated_at)
VALUES ($1, 1, now())
ON CONFLICT (job_id) DO UPDATE
    SET attempts = CASE WHEN score_job_statuses.done_at IS NULL
                        THEN score_job_statuses.attempts + 1
                        ELSE score_job_statuses.attempts END,
        updated_at = now()
RETURNING done_at, attempts
`, jobID).Scan(&doneAt, &attempts)
	metrics.ObserveNetworkRequest("postgres", "score_job_statuses_upsert", "score_job_statuses", start, err)
	if err != nil {
		return false, 0, err
	}

	return doneAt.Valid, attempts, nil
}

// MarkScoreJobDone помечает задачу выполненной.
func (p *Postgres) MarkScoreJobDone(ctx context.Context, jobID string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE score_job_statuses
SET done_at = COALESCE(done_at, now()),
    updated_at = now()
WHERE job_id = $1
`, jobID)
	metrics.ObserveNetworkRequest("postgres", "score_job_statuses_mark_done", "score_job_statuses", start, err)
	return err
}

// LinkTelegramChat привязывает чат для уведомлений.
func (p *Postgres) LinkTelegramChat(ctx context.Context, userID string, chatID int64) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO notification_links (user_id, telegram_chat_id, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (user_id) DO UPDATE
    SET telegram_chat_id = EXCLUDED.telegram_chat_id,
        updated_at = now()
`, userID, chatID)
	metrics.ObserveNetworkRequest("postgres", "notification_links_upsert", "notification_links", start, err)
	return err
}

// GetTelegramChat возвращает чат пользователя или domain.ErrNotificationLinkNotFound.
func (p *Postgres) GetTelegramChat(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var chatID int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `SELECT telegram_chat_id FROM notification_links WHERE user_id = $1`, userID).Scan(&chatID)
	metrics.ObserveNetworkRequest("postgres", "notification_links_get", "notification_links", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotificationLinkNotFound
	}
	return chatID, err
}

// ListStaleMetrics находит метрики без актуальной оценки.
func (p *Postgres) ListStaleMetrics(ctx context.Context, since string, updatedBefore time.Time, limit int) ([]domain.DailyMetricsEntry, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT m.user_id::text, to_char(m.metric_date, 'YYYY-MM-DD'), m.updated_at
FROM daily_metrics m
LEFT JOIN daily_scores s ON s.user_id = m.user_id AND s.score_date = m.metric_date
WHERE m.metric_date >= $1
  AND m.updated_at < $2
  AND (s.user_id IS NULL OR s.computed_at < m.updated_at)
ORDER BY m.updated_at
LIMIT $3`, since, updatedBefore, limit)
	metrics.ObserveNetworkRequest("postgres", "daily_metrics_list_stale", "daily_metrics", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DailyMetricsEntry
	for rows.Next() {
		var entry domain.DailyMetricsEntry
		if err := rows.Scan(&entry.UserID, &entry.Date, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// UserByTelegramChat возвращает пользователя, последним привязавшего чат.
func (p *Postgres) UserByTelegramChat(ctx context.Context, chatID int64) (string, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var userID string
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT user_id::text FROM notification_links
WHERE telegram_chat_id = $1
ORDER BY updated_at DESC
LIMIT 1`, chatID).Scan(&userID)
	metrics.ObserveNetworkRequest("postgres", "notification_links_by_chat", "notification_links", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotificationLinkNotFound
	}
	return userID, err
}

// RecordBusinessMetric сохраняет бизнесовую метрику в БД.
func (p *Postgres) RecordBusinessMetric(ctx context.Context, metric domain.BusinessMetric) error {
	if metric.Event == "" {
		return nil
	}
	if metric.OccurredAt.IsZero() {
		metric.OccurredAt = time.Now().UTC()
	}

	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var userID sql.NullString
	if metric.UserID != "" {
		userID = sql.NullString{String: metric.UserID, Valid: true}
	}

	payload := []byte("{}")
	if metric.Metadata != nil {
		if data, err := json.Marshal(metric.Metadata); err == nil {
			payload = data
		}
	}

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO business_metrics (event, user_id, metadata, occurred_at)
VALUES ($1, $2, $3, $4)
`, metric.Event, userID, payload, metric.OccurredAt)
	metrics.ObserveNetworkRequest("postgres", "business_metrics_insert", "business_metrics", start, err)
	return err
}

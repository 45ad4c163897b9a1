package repo

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"vitality-score/internal/domain"
)

//go:embed sql/sqlite.sql
var sqliteSchema embed.FS

// SQLite хранит оценки и метрики локально для CLI.
type SQLite struct {
	db *sql.DB
}

var (
	_ domain.DailyScoreRepo   = (*SQLite)(nil)
	_ domain.DailyMetricsRepo = (*SQLite)(nil)
)

// OpenSQLite открывает (и при необходимости создаёт) файл базы и применяет схему.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path not specified")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir %s: %w", dir, err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	conn.SetMaxOpenConns(1)

	ddl, err := sqliteSchema.ReadFile("sql/sqlite.sql")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read schema: %w", err)
	}
	if _, err := conn.Exec(string(ddl)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema in %s: %w", path, err)
	}
	return &SQLite{db: conn}, nil
}

// Close закрывает базу.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveDailyScore перезаписывает оценку за (пользователь, дата) целиком.
func (s *SQLite) SaveDailyScore(ctx context.Context, r domain.DailyScoreRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO daily_scores (
    user_id, score_date, longevity_impact_score, biological_age_impact, color_code,
    sleep_score, stress_score, physical_activity_score, nutrition_score,
    social_connections_score, cognitive_engagement_score, computed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, score_date) DO UPDATE
    SET longevity_impact_score     = excluded.longevity_impact_score,
        biological_age_impact      = excluded.biological_age_impact,
        color_code                 = excluded.color_code,
        sleep_score                = excluded.sleep_score,
        stress_score               = excluded.stress_score,
        physical_activity_score    = excluded.physical_activity_score,
        nutrition_score            = excluded.nutrition_score,
        social_connections_score   = excluded.social_connections_score,
        cognitive_engagement_score = excluded.cognitive_engagement_score,
        computed_at                = excluded.computed_at`,
		r.UserID, r.Date, r.LongevityImpactScore, r.BiologicalAgeImpact, string(r.ColorCode),
		r.Sleep, r.Stress, r.PhysicalActivity, r.Nutrition,
		r.SocialConnections, r.CognitiveEngagement, r.ComputedAt.UTC().Format(time.RFC3339Nano))
	return err
}

const sqliteSelectScore = `
SELECT user_id, score_date, longevity_impact_score, biological_age_impact, color_code,
       sleep_score, stress_score, physical_activity_score, nutrition_score,
       social_connections_score, cognitive_engagement_score, computed_at
FROM daily_scores`

// GetDailyScore возвращает оценку или domain.ErrScoreNotFound.
func (s *SQLite) GetDailyScore(ctx context.Context, userID, date string) (domain.DailyScoreRecord, error) {
	record, err := scanSQLiteScore(s.db.QueryRowContext(ctx, sqliteSelectScore+` WHERE user_id = ? AND score_date = ?`, userID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DailyScoreRecord{}, domain.ErrScoreNotFound
	}
	return record, err
}

// ListDailyScores возвращает оценки за период по возрастанию даты.
func (s *SQLite) ListDailyScores(ctx context.Context, userID, from, to string) ([]domain.DailyScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectScore+`
WHERE user_id = ? AND score_date BETWEEN ? AND ?
ORDER BY score_date`, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DailyScoreRecord
	for rows.Next() {
		record, err := scanSQLiteScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteScore(row rowScanner) (domain.DailyScoreRecord, error) {
	var (
		r            domain.DailyScoreRecord
		color        string
		computedText string
	)
	if err := row.Scan(
		&r.UserID, &r.Date, &r.LongevityImpactScore, &r.BiologicalAgeImpact, &color,
		&r.Sleep, &r.Stress, &r.PhysicalActivity, &r.Nutrition,
		&r.SocialConnections, &r.CognitiveEngagement, &computedText,
	); err != nil {
		return domain.DailyScoreRecord{}, err
	}
	r.ColorCode = domain.ColorCode(color)
	computedAt, err := time.Parse(time.RFC3339Nano, computedText)
	if err != nil {
		return domain.DailyScoreRecord{}, fmt.Errorf("parse computed_at: %w", err)
	}
	r.ComputedAt = computedAt
	return r, nil
}

// SaveDailyMetrics сохраняет сырые метрики как JSON.
func (s *SQLite) SaveDailyMetrics(ctx context.Context, entry domain.DailyMetricsEntry) error {
	payload, err := json.Marshal(entry.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO daily_metrics (user_id, metric_date, metrics, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, metric_date) DO UPDATE
    SET metrics = excluded.metrics,
        updated_at = excluded.updated_at`,
		entry.UserID, entry.Date, string(payload), entry.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// GetDailyMetrics возвращает метрики или domain.ErrMetricsNotFound.
func (s *SQLite) GetDailyMetrics(ctx context.Context, userID, date string) (domain.DailyMetricsEntry, error) {
	var (
		entry   domain.DailyMetricsEntry
		payload string
		updated string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT user_id, metric_date, metrics, updated_at
FROM daily_metrics WHERE user_id = ? AND metric_date = ?`, userID, date).
		Scan(&entry.UserID, &entry.Date, &payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DailyMetricsEntry{}, domain.ErrMetricsNotFound
	}
	if err != nil {
		return domain.DailyMetricsEntry{}, err
	}
	if err := json.Unmarshal([]byte(payload), &entry.Metrics); err != nil {
		return domain.DailyMetricsEntry{}, fmt.Errorf("decode metrics: %w", err)
	}
	if entry.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return domain.DailyMetricsEntry{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return entry, nil
}

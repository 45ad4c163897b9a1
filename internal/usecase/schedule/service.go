package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vitality-score/internal/domain"
	"vitality-score/internal/infra/metrics"
)

const (
	defaultLookbackDays = 3
	defaultGrace        = 2 * time.Minute
	defaultBatch        = 500
)

// recomputeNamespace задаёт пространство имён для идентификаторов задач пересчёта.
var recomputeNamespace = uuid.MustParse("6f1c7b7e-2d4a-4f6e-9a53-0c8d3e1b5a90")

// Config параметры пересчёта. Нулевые значения заменяются значениями по умолчанию.
type Config struct {
	LookbackDays int
	Grace        time.Duration
	Batch        int
}

// Service периодически ставит в очередь пересчёт оценок, которые отстали от метрик.
type Service struct {
	stale domain.StaleMetricsRepo
	queue domain.ScoreQueue
	cfg   Config
	log   zerolog.Logger
	now   func() time.Time
}

// NewService создаёт сервис.
func NewService(stale domain.StaleMetricsRepo, queue domain.ScoreQueue, cfg Config, log zerolog.Logger) *Service {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = defaultLookbackDays
	}
	if cfg.Grace <= 0 {
		cfg.Grace = defaultGrace
	}
	if cfg.Batch <= 0 {
		cfg.Batch = defaultBatch
	}
	return &Service{stale: stale, queue: queue, cfg: cfg, log: log, now: time.Now}
}

// Sweep ставит в очередь задачи для всех отставших метрик и возвращает их число.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()
	since := now.AddDate(0, 0, -s.cfg.LookbackDays).Format(domain.DateLayout)
	entries, err := s.stale.ListStaleMetrics(ctx, since, now.Add(-s.cfg.Grace), s.cfg.Batch)
	if err != nil {
		return 0, fmt.Errorf("list stale metrics: %w", err)
	}

	enqueued := 0
	for _, entry := range entries {
		job := domain.ScoreJob{
			ID:          recomputeJobID(entry),
			UserID:      entry.UserID,
			Date:        entry.Date,
			RequestedAt: now,
			Cause:       domain.ScoreCauseRecompute,
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			metrics.AddRecomputeScheduled(enqueued)
			return enqueued, fmt.Errorf("enqueue recompute %s: %w", job.ID, err)
		}
		enqueued++
	}
	metrics.AddRecomputeScheduled(enqueued)
	return enqueued, nil
}

// Run выполняет Sweep с заданным интервалом до отмены контекста.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		n, err := s.Sweep(ctx)
		if err != nil {
			s.log.Error().Err(err).Int("enqueued", n).Msg("scheduler: ошибка пересчёта")
		} else if n > 0 {
			s.log.Info().Int("enqueued", n).Msg("scheduler: поставлены задачи пересчёта")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// recomputeJobID одинаков для одной версии метрик, поэтому повторные обходы
// не приводят к повторному расчёту: обработчик пропускает выполненные задачи.
func recomputeJobID(entry domain.DailyMetricsEntry) string {
	key := entry.UserID + "|" + entry.Date + "|" + entry.UpdatedAt.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(recomputeNamespace, []byte(key)).String()
}

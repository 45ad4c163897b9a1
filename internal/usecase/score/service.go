package score

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vitality-score/internal/domain"
	"vitality-score/internal/infra/metrics"
)

// Источники расчёта для меток метрик.
const (
	SourceAPI    = "api"
	SourceWorker = "worker"
	SourceCLI    = "cli"
)

const (
	defaultCacheTTL  = 10 * time.Minute
	maxHistoryWindow = 366
)

var (
	// ErrNoQueue возвращается, если очередь задач не настроена.
	ErrNoQueue = errors.New("score queue is not configured")
	// ErrInvalidRange возвращается для перевёрнутого или слишком длинного периода.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrInvalidAge возвращается для неправдоподобного возраста или LIS.
	ErrInvalidAge = errors.New("invalid age input")
)

// DailyScoreRequest запрос на расчёт оценки дня.
type DailyScoreRequest struct {
	UserID  string
	Date    string
	Metrics domain.DailyMetrics
	Source  string
}

// Service отвечает за расчёт и хранение оценок дня.
type Service struct {
	scores    domain.DailyScoreRepo
	metrics   domain.DailyMetricsRepo
	queue     domain.ScoreQueue
	cache     domain.Cache
	analytics domain.BusinessMetricRepo
	cacheTTL  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// Option настраивает необязательные зависимости сервиса.
type Option func(*Service)

// WithQueue включает асинхронный расчёт отправленных метрик.
func WithQueue(q domain.ScoreQueue) Option {
	return func(s *Service) { s.queue = q }
}

// WithCache включает кэш сохранённых оценок.
func WithCache(c domain.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithAnalytics(repo domain.BusinessMetricRepo) Option {
	return func(s *Service) { s.analytics = repo }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService создаёт сервис оценок. metricsRepo может быть nil, если сырые
// метрики не хранятся (CLI).
func NewService(scores domain.DailyScoreRepo, metricsRepo domain.DailyMetricsRepo, opts ...Option) *Service {
	s := &Service{
		scores:   scores,
		metrics:  metricsRepo,
		cacheTTL: defaultCacheTTL,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview проверяет запрос и рассчитывает оценку без сохранения.
func (s *Service) Preview(req DailyScoreRequest) (domain.DailyScoreRecord, error) {
	userID, err := normalizeUserID(req.UserID)
	if err != nil {
		return domain.DailyScoreRecord{}, err
	}
	if _, err := domain.ParseDate(req.Date); err != nil {
		return domain.DailyScoreRecord{}, err
	}
	if err := req.Metrics.Validate(); err != nil {
		return domain.DailyScoreRecord{}, err
	}

	start := time.Now()
	daily := Score(req.Metrics)
	metrics.ObserveScoreComputed(req.Source, daily.LongevityImpactScore, string(daily.ColorCode), time.Since(start))

	return domain.DailyScoreRecord{
		UserID:     userID,
		Date:       req.Date,
		DailyScore: daily,
		ComputedAt: s.now().UTC(),
	}, nil
}

// ComputeDaily рассчитывает оценку и перезаписывает запись (пользователь, дата).
func (s *Service) ComputeDaily(ctx context.Context, req DailyScoreRequest) (domain.DailyScoreRecord, error) {
	record, err := s.Preview(req)
	if err != nil {
		return domain.DailyScoreRecord{}, err
	}
	userID := record.UserID
	if err := s.scores.SaveDailyScore(ctx, record); err != nil {
		return domain.DailyScoreRecord{}, fmt.Errorf("save daily score: %w", err)
	}
	s.cacheRecord(ctx, record)
	s.recordEvent(ctx, domain.BusinessMetric{
		Event:  domain.BusinessMetricEventScoreComputed,
		UserID: userID,
		Metadata: map[string]any{
			"date":                   record.Date,
			"source":                 req.Source,
			"longevity_impact_score": record.LongevityImpactScore,
			"color_code":             string(record.ColorCode),
		},
	})
	s.log.Debug().
		Str("user", userID).
		Str("date", record.Date).
		Float64("score", record.LongevityImpactScore).
		Msg("оценка дня рассчитана")
	return record, nil
}

// RecomputeFromStored пересчитывает оценку по сохранённым метрикам. Если метрики
// не загрузились, возвращается ErrMetricsUnavailable, а не оценка.
func (s *Service) RecomputeFromStored(ctx context.Context, userID, date, source string) (domain.DailyScoreRecord, error) {
	if s.metrics == nil {
		return domain.DailyScoreRecord{}, domain.ErrMetricsUnavailable
	}
	entry, err := s.metrics.GetDailyMetrics(ctx, userID, date)
	if err != nil {
		return domain.DailyScoreRecord{}, fmt.Errorf("%w: %w", domain.ErrMetricsUnavailable, err)
	}
	return s.ComputeDaily(ctx, DailyScoreRequest{UserID: entry.UserID, Date: entry.Date, Metrics: entry.Metrics, Source: source})
}

// SubmitMetrics сохраняет метрики и ставит задачу расчёта в очередь.
func (s *Service) SubmitMetrics(ctx context.Context, userID, date string, m domain.DailyMetrics) (domain.ScoreJob, error) {
	if s.queue == nil || s.metrics == nil {
		return domain.ScoreJob{}, ErrNoQueue
	}
	normalized, err := normalizeUserID(userID)
	if err != nil {
		return domain.ScoreJob{}, err
	}
	if _, err := domain.ParseDate(date); err != nil {
		return domain.ScoreJob{}, err
	}
	if err := m.Validate(); err != nil {
		return domain.ScoreJob{}, err
	}
	now := s.now().UTC()
	entry := domain.DailyMetricsEntry{UserID: normalized, Date: date, Metrics: m, UpdatedAt: now}
	if err := s.metrics.SaveDailyMetrics(ctx, entry); err != nil {
		return domain.ScoreJob{}, fmt.Errorf("save daily metrics: %w", err)
	}
	job := domain.ScoreJob{
		ID:          uuid.NewString(),
		UserID:      normalized,
		Date:        date,
		RequestedAt: now,
		Cause:       domain.ScoreCauseSubmitted,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return domain.ScoreJob{}, fmt.Errorf("enqueue score job: %w", err)
	}
	s.recordEvent(ctx, domain.BusinessMetric{
		Event:    domain.BusinessMetricEventMetricsSubmitted,
		UserID:   normalized,
		Metadata: map[string]any{"date": date, "job_id": job.ID},
	})
	return job, nil
}

// GetDaily возвращает сохранённую оценку, сначала проверяя кэш.
func (s *Service) GetDaily(ctx context.Context, userID, date string) (domain.DailyScoreRecord, error) {
	normalized, err := normalizeUserID(userID)
	if err != nil {
		return domain.DailyScoreRecord{}, err
	}
	if _, err := domain.ParseDate(date); err != nil {
		return domain.DailyScoreRecord{}, err
	}
	if record, ok := s.cachedRecord(ctx, normalized, date); ok {
		return record, nil
	}
	record, err := s.scores.GetDailyScore(ctx, normalized, date)
	if err != nil {
		return domain.DailyScoreRecord{}, err
	}
	s.cacheRecord(ctx, record)
	return record, nil
}

// History возвращает сводку оценок за период [from, to].
func (s *Service) History(ctx context.Context, userID, from, to string) (domain.ScoreHistory, error) {
	normalized, err := normalizeUserID(userID)
	if err != nil {
		return domain.ScoreHistory{}, err
	}
	fromDate, err := domain.ParseDate(from)
	if err != nil {
		return domain.ScoreHistory{}, err
	}
	toDate, err := domain.ParseDate(to)
	if err != nil {
		return domain.ScoreHistory{}, err
	}
	if toDate.Before(fromDate) || toDate.Sub(fromDate) > maxHistoryWindow*24*time.Hour {
		return domain.ScoreHistory{}, fmt.Errorf("%w: %s..%s", ErrInvalidRange, from, to)
	}
	records, err := s.scores.ListDailyScores(ctx, normalized, from, to)
	if err != nil {
		return domain.ScoreHistory{}, fmt.Errorf("list daily scores: %w", err)
	}
	history := Summarize(records)
	history.UserID = normalized
	history.From = from
	history.To = to
	return history, nil
}

// CompositeAge возвращает общий биологический возраст или ErrInsufficientAgeData.
func (s *Service) CompositeAge(in domain.CompositeAgeInput) (domain.OverallBiologicalAgeResult, error) {
	if err := validateAges(in); err != nil {
		return domain.OverallBiologicalAgeResult{}, err
	}
	res, ok := CompositeBiologicalAge(in)
	metrics.ObserveCompositeAge(ok)
	if !ok {
		return domain.OverallBiologicalAgeResult{}, domain.ErrInsufficientAgeData
	}
	return res, nil
}

func (s *Service) LifestyleAge(chronologicalAge, lis float64) (domain.LifestyleAgeResult, error) {
	if !plausibleAge(chronologicalAge) {
		return domain.LifestyleAgeResult{}, fmt.Errorf("%w: chronological age %g", ErrInvalidAge, chronologicalAge)
	}
	if math.IsNaN(lis) || math.IsInf(lis, 0) || lis < 0 {
		return domain.LifestyleAgeResult{}, fmt.Errorf("%w: lis score %g", ErrInvalidAge, lis)
	}
	return LifestyleAgeFromScore(chronologicalAge, lis), nil
}

func validateAges(in domain.CompositeAgeInput) error {
	if !plausibleAge(in.ChronologicalAge) {
		return fmt.Errorf("%w: chronological age %g", ErrInvalidAge, in.ChronologicalAge)
	}
	for _, da := range in.Present() {
		if !plausibleAge(da.Age) {
			return fmt.Errorf("%w: %s age %g", ErrInvalidAge, da.Domain, da.Age)
		}
	}
	return nil
}

func plausibleAge(age float64) bool {
	return age > 0 && age <= 130
}

func normalizeUserID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidUser, raw)
	}
	return id.String(), nil
}

func cacheKey(userID, date string) string {
	return "score:daily:" + userID + ":" + date
}

func (s *Service) cacheRecord(ctx context.Context, record domain.DailyScoreRecord) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(record.UserID, record.Date), payload, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("user", record.UserID).Msg("не удалось записать оценку в кэш")
	}
}

func (s *Service) cachedRecord(ctx context.Context, userID, date string) (domain.DailyScoreRecord, bool) {
	if s.cache == nil {
		return domain.DailyScoreRecord{}, false
	}
	payload, err := s.cache.Get(ctx, cacheKey(userID, date))
	if err != nil || len(payload) == 0 {
		return domain.DailyScoreRecord{}, false
	}
	var record domain.DailyScoreRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return domain.DailyScoreRecord{}, false
	}
	return record, true
}

func (s *Service) recordEvent(ctx context.Context, metric domain.BusinessMetric) {
	if s.analytics == nil {
		return
	}
	if metric.OccurredAt.IsZero() {
		metric.OccurredAt = s.now().UTC()
	}
	if err := s.analytics.RecordBusinessMetric(ctx, metric); err != nil {
		s.log.Error().Err(err).Str("event", metric.Event).Msg("не удалось сохранить бизнес-метрику")
	}
}

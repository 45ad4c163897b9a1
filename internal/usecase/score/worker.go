package score

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"vitality-score/internal/domain"
	"vitality-score/internal/infra/metrics"
)

const (
	maxJobAttempts       = 5
	defaultRetryPause    = time.Second
	notificationDedupTTL = 24 * time.Hour
)

type jobOutcome int

const (
	jobOutcomeCompleted jobOutcome = iota
	jobOutcomeRetry
)

// WorkerConfig описывает зависимости обработчика очереди.
// Links, Notifier, Cache и Analytics необязательны.
type WorkerConfig struct {
	Service   *Service
	Queue     domain.ScoreQueue
	Statuses  domain.ScoreJobStatusRepo
	Links     domain.NotificationLinkRepo
	Notifier  domain.Notifier
	Cache     domain.Cache
	Analytics domain.BusinessMetricRepo
	Logger    zerolog.Logger
	// RetryPause задержка после ошибок инфраструктуры, по умолчанию 1s.
	// Перед повтором задачи умножается на номер попытки.
	RetryPause time.Duration
}

// Worker рассчитывает оценки по задачам из очереди и отправляет уведомления.
type Worker struct {
	cfg WorkerConfig
	log zerolog.Logger
}

// NewWorker создаёт обработчик очереди.
func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.RetryPause <= 0 {
		cfg.RetryPause = defaultRetryPause
	}
	return &Worker{cfg: cfg, log: cfg.Logger}
}

// Run читает очередь до отмены контекста.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, ack, err := w.cfg.Queue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("worker: ошибка чтения очереди")
			w.pause(ctx)
			continue
		}

		jobLog := w.log.With().
			Str("job_id", job.ID).
			Str("user", job.UserID).
			Str("date", job.Date).
			Str("cause", string(job.Cause)).
			Logger()

		if job.ID == "" {
			jobLog.Error().Msg("worker: задача без идентификатора, подтверждаем и пропускаем")
			w.ack(ack, true, jobLog)
			continue
		}

		done, attempt, err := w.cfg.Statuses.EnsureScoreJob(ctx, job.ID)
		if err != nil {
			jobLog.Error().Err(err).Msg("worker: не удалось зарегистрировать задачу")
			w.ack(ack, false, jobLog)
			w.pause(ctx)
			continue
		}
		jobLog = jobLog.With().Int("attempt", attempt).Logger()

		if done {
			jobLog.Info().Msg("worker: задача уже выполнена, подтверждаем")
			w.ack(ack, true, jobLog)
			continue
		}

		outcome := w.handleJob(ctx, job, attempt, jobLog)
		if outcome == jobOutcomeRetry && attempt < maxJobAttempts {
			metrics.ObserveScoreJob("retry")
			jobLog.Warn().Msg("worker: задача завершилась ошибкой, повторим позже")
			w.ack(ack, false, jobLog)
			w.backoff(ctx, attempt)
			continue
		}
		if outcome == jobOutcomeRetry {
			metrics.ObserveScoreJob("exhausted")
			jobLog.Error().Msg("worker: достигнут предел попыток, помечаем задачу завершённой")
		} else {
			metrics.ObserveScoreJob("completed")
		}

		if err := w.cfg.Statuses.MarkScoreJobDone(ctx, job.ID); err != nil {
			jobLog.Error().Err(err).Msg("worker: не удалось пометить задачу выполненной")
			w.ack(ack, false, jobLog)
			w.pause(ctx)
			continue
		}
		w.ack(ack, true, jobLog)
	}
}

func (w *Worker) handleJob(ctx context.Context, job domain.ScoreJob, attempt int, jobLog zerolog.Logger) jobOutcome {
	record, err := w.cfg.Service.RecomputeFromStored(ctx, job.UserID, job.Date, SourceWorker)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMetricsNotFound),
		errors.Is(err, domain.ErrInvalidMetrics),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidUser):
		jobLog.Warn().Err(err).Msg("worker: задачу невозможно выполнить, пропускаем")
		return jobOutcomeCompleted
	default:
		jobLog.Error().Err(err).Msg("worker: ошибка расчёта оценки")
		return jobOutcomeRetry
	}

	if w.cfg.Links == nil || w.cfg.Notifier == nil {
		return jobOutcomeCompleted
	}
	chatID, err := w.cfg.Links.GetTelegramChat(ctx, record.UserID)
	if errors.Is(err, domain.ErrNotificationLinkNotFound) {
		return jobOutcomeCompleted
	}
	if err != nil {
		jobLog.Error().Err(err).Msg("worker: не удалось получить чат для уведомления")
		return jobOutcomeRetry
	}

	if err := w.notify(ctx, job, chatID, record); err != nil {
		metrics.IncNotificationErrors()
		jobLog.Error().Err(err).Int64("chat", chatID).Msg("worker: отправка оценки")
		return jobOutcomeRetry
	}
	w.observeDelivery(ctx, job, record, chatID, attempt)
	return jobOutcomeCompleted
}

// notify отправляет оценку не более одного раза на пользователя и дату.
func (w *Worker) notify(ctx context.Context, job domain.ScoreJob, chatID int64, record domain.DailyScoreRecord) error {
	send := func() error {
		return w.cfg.Notifier.SendHTML(ctx, chatID, FormatDailyScore(record))
	}
	if w.cfg.Cache == nil {
		return send()
	}
	return w.cfg.Cache.Once(ctx, "score:notified:"+record.UserID+":"+record.Date, notificationDedupTTL, send)
}

func (w *Worker) observeDelivery(ctx context.Context, job domain.ScoreJob, record domain.DailyScoreRecord, chatID int64, attempt int) {
	if w.cfg.Analytics == nil {
		return
	}
	metric := domain.BusinessMetric{
		Event:  domain.BusinessMetricEventScoreDelivered,
		UserID: record.UserID,
		Metadata: map[string]any{
			"job_id":       job.ID,
			"cause":        string(job.Cause),
			"attempt":      attempt,
			"date":         record.Date,
			"requested_at": job.RequestedAt,
			"chat_id":      chatID,
		},
		OccurredAt: time.Now().UTC(),
	}
	if err := w.cfg.Analytics.RecordBusinessMetric(ctx, metric); err != nil {
		w.log.Error().Err(err).Str("event", metric.Event).Msg("worker: не удалось сохранить бизнес-метрику")
	}
}

func (w *Worker) ack(ack domain.AckFunc, success bool, jobLog zerolog.Logger) {
	if err := ack(success); err != nil {
		jobLog.Error().Err(err).Bool("success", success).Msg("worker: не удалось подтвердить задачу")
	}
}

func (w *Worker) pause(ctx context.Context) {
	w.wait(ctx, w.cfg.RetryPause)
}

// backoff растёт линейно с номером попытки.
func (w *Worker) backoff(ctx context.Context, attempt int) {
	w.wait(ctx, time.Duration(attempt)*w.cfg.RetryPause)
}

func (w *Worker) wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

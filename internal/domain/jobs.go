package domain

import (
	"context"
	"time"
)

// ScoreJobCause описывает причину постановки задачи.
type ScoreJobCause string

const (
	ScoreCauseSubmitted ScoreJobCause = "submitted"
	ScoreCauseRecompute ScoreJobCause = "recompute"
)

// ScoreJob задача на расчёт оценки по сохранённым метрикам.
type ScoreJob struct {
	ID          string        `json:"job_id"`
	UserID      string        `json:"user_id"`
	Date        string        `json:"date"`
	RequestedAt time.Time     `json:"requested_at"`
	Cause       ScoreJobCause `json:"cause"`
}

// ScoreQueue очередь задач расчёта.
type ScoreQueue interface {
	Enqueue(ctx context.Context, job ScoreJob) error
	Receive(ctx context.Context) (ScoreJob, AckFunc, error)
}

// AckFunc подтверждает обработку (success) или возвращает задачу в очередь.
type AckFunc func(success bool) error

// ScoreJobStatusRepo отслеживает попытки, чтобы повторно доставленная задача выполнялась один раз.
type ScoreJobStatusRepo interface {
	// EnsureScoreJob регистрирует попытку и сообщает, завершена ли задача, и номер попытки.
	EnsureScoreJob(ctx context.Context, jobID string) (done bool, attempt int, err error)
	MarkScoreJobDone(ctx context.Context, jobID string) error
}

// StaleMetricsRepo ищет метрики, для которых нет оценки или оценка старше метрик.
type StaleMetricsRepo interface {
	// ListStaleMetrics возвращает ключи и UpdatedAt без самих метрик. Учитываются
	// даты не раньше since и метрики, обновлённые до updatedBefore.
	ListStaleMetrics(ctx context.Context, since string, updatedBefore time.Time, limit int) ([]DailyMetricsEntry, error)
}

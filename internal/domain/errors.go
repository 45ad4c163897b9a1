package domain

import "errors"

var (
	// ErrInvalidMetrics возвращается, если метрика вне допустимого диапазона.
	ErrInvalidMetrics = errors.New("invalid daily metrics")
	// ErrInvalidDate возвращается для дат не в формате YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidUser возвращается, если идентификатор пользователя не UUID.
	ErrInvalidUser = errors.New("invalid user id")
	// ErrScoreNotFound возвращается, если оценка за дату не сохранена.
	ErrScoreNotFound = errors.New("daily score not found")
	// ErrMetricsNotFound возвращается, если метрики за дату не сохранены.
	ErrMetricsNotFound = errors.New("daily metrics not found")
	// ErrMetricsUnavailable означает, что метрики не удалось загрузить.
	// Такая ошибка никогда не превращается в нулевую оценку.
	ErrMetricsUnavailable = errors.New("could not compute score: metrics unavailable")
	// ErrNotificationLinkNotFound возвращается, если у пользователя нет привязанного чата.
	ErrNotificationLinkNotFound = errors.New("notification link not found")
	// ErrInsufficientAgeData возвращается, если нет ни одного возраста домена.
	ErrInsufficientAgeData = errors.New("not enough data for a composite biological age")
)

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	ScoreComputations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "daily_score_computations_total",
		Help: "Daily scores computed, by caller",
	}, []string{"source"})

	ScoreComputeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "daily_score_compute_seconds",
		Help:    "Time spent scoring one day of metrics",
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
	})

	LongevityImpactScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "longevity_impact_score",
		Help:    "Distribution of computed longevity impact scores",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	ScoreColors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "daily_score_colors_total",
		Help: "Computed daily scores by color code",
	}, []string{"color"})

	ScoreJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "score_jobs_total",
		Help: "Processed score jobs by outcome",
	}, []string{"outcome"})

	CompositeAgeRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "composite_age_requests_total",
		Help: "Composite biological age calculations by result",
	}, []string{"result"})

	RecomputeScheduled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "score_recompute_scheduled_total",
		Help: "Recompute jobs enqueued for stale daily metrics",
	})

	NotificationErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notification_errors_total",
		Help: "Failed daily score notifications",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Duration of outbound network requests",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Number of outbound network requests",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ScoreComputations,
		ScoreComputeSeconds,
		LongevityImpactScore,
		ScoreColors,
		ScoreJobs,
		CompositeAgeRequests,
		RecomputeScheduled,
		NotificationErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveScoreComputed учитывает рассчитанную оценку дня.
func ObserveScoreComputed(source string, longevity float64, color string, took time.Duration) {
	if source == "" {
		source = "unknown"
	}
	ScoreComputations.WithLabelValues(source).Inc()
	ScoreComputeSeconds.Observe(took.Seconds())
	LongevityImpactScore.Observe(longevity)
	ScoreColors.WithLabelValues(color).Inc()
}

// ObserveScoreJob учитывает обработанную задачу.
func ObserveScoreJob(outcome string) {
	ScoreJobs.WithLabelValues(outcome).Inc()
}

// ObserveCompositeAge учитывает расчёт общего возраста.
func ObserveCompositeAge(ok bool) {
	result := "ok"
	if !ok {
		result = "insufficient_data"
	}
	CompositeAgeRequests.WithLabelValues(result).Inc()
}

// AddRecomputeScheduled учитывает поставленные задачи пересчёта.
func AddRecomputeScheduled(n int) {
	if n > 0 {
		RecomputeScheduled.Add(float64(n))
	}
}

// IncNotificationErrors увеличивает счётчик ошибок уведомлений.
func IncNotificationErrors() {
	NotificationErrors.Inc()
}

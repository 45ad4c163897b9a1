package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vitality-score/internal/domain"
	httpinfra "vitality-score/internal/infra/http"
	scoreusecase "vitality-score/internal/usecase/score"
)

const (
	maxBodyBytes       = 1 << 20
	defaultHistoryDays = 7
)

// ScoreService операции сервиса оценок, доступные по HTTP.
type ScoreService interface {
	ComputeDaily(ctx context.Context, req scoreusecase.DailyScoreRequest) (domain.DailyScoreRecord, error)
	RecomputeFromStored(ctx context.Context, userID, date, source string) (domain.DailyScoreRecord, error)
	SubmitMetrics(ctx context.Context, userID, date string, m domain.DailyMetrics) (domain.ScoreJob, error)
	GetDaily(ctx context.Context, userID, date string) (domain.DailyScoreRecord, error)
	History(ctx context.Context, userID, from, to string) (domain.ScoreHistory, error)
	CompositeAge(in domain.CompositeAgeInput) (domain.OverallBiologicalAgeResult, error)
	LifestyleAge(chronologicalAge, lis float64) (domain.LifestyleAgeResult, error)
}

type Server struct {
	scores ScoreService
	links  domain.NotificationLinkRepo
	log    zerolog.Logger
	now    func() time.Time
}

type Option func(*Server)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithNotificationLinks включает привязку чата Telegram.
func WithNotificationLinks(links domain.NotificationLinkRepo) Option {
	return func(s *Server) {
		s.links = links
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

type dailyMetricsRequest struct {
	UserID  string              `json:"user_id"`
	Date    string              `json:"date"`
	Metrics domain.DailyMetrics `json:"metrics"`
}

type submitMetricsResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type compositeAgeResponse struct {
	Result *domain.OverallBiologicalAgeResult `json:"result"`
	Status string                             `json:"status"`
}

type lifestyleAgeRequest struct {
	ChronologicalAge float64  `json:"chronological_age"`
	LISScore         *float64 `json:"lis_score"`
}

type telegramLinkRequest struct {
	ChatID int64 `json:"chat_id"`
}

func NewServer(scores ScoreService, opts ...Option) *Server {
	srv := &Server{scores: scores, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Router возвращает маршруты /api/v1. Ожидает user id в контексте запроса.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/scores/daily", s.handleComputeDaily)
	r.Get("/scores/daily/{date}", s.handleGetDaily)
	r.Post("/scores/daily/{date}/recompute", s.handleRecomputeDaily)
	r.Get("/scores/history", s.handleHistory)

	r.Post("/metrics/daily", s.handleSubmitMetrics)

	r.Post("/bioage/composite", s.handleCompositeAge)
	r.Post("/bioage/lifestyle", s.handleLifestyleAge)

	if s.links != nil {
		r.Put("/notifications/telegram", s.handleLinkTelegram)
	}

	return r
}

func (s *Server) handleComputeDaily(w http.ResponseWriter, r *http.Request) {
	userID, req, ok := s.decodeDailyMetrics(w, r)
	if !ok {
		return
	}
	record, err := s.scores.ComputeDaily(r.Context(), scoreusecase.DailyScoreRequest{
		UserID:  userID,
		Date:    req.Date,
		Metrics: req.Metrics,
		Source:  scoreusecase.SourceAPI,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, record)
}

func (s *Server) handleGetDaily(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	record, err := s.scores.GetDaily(r.Context(), userID, chi.URLParam(r, "date"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, record)
}

// handleRecomputeDaily пересчитывает день по сохранённым метрикам.
func (s *Server) handleRecomputeDaily(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	date := chi.URLParam(r, "date")
	if _, err := domain.ParseDate(date); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	record, err := s.scores.RecomputeFromStored(r.Context(), userID, date, scoreusecase.SourceAPI)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, record)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if to == "" {
		to = s.today()
	}
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	if from == "" {
		end, err := domain.ParseDate(to)
		if err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		from = end.AddDate(0, 0, -(defaultHistoryDays - 1)).Format(domain.DateLayout)
	}
	history, err := s.scores.History(r.Context(), userID, from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, history)
}

func (s *Server) handleSubmitMetrics(w http.ResponseWriter, r *http.Request) {
	userID, req, ok := s.decodeDailyMetrics(w, r)
	if !ok {
		return
	}
	job, err := s.scores.SubmitMetrics(r.Context(), userID, req.Date, req.Metrics)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusAccepted, submitMetricsResponse{JobID: job.ID, Status: "queued"})
}

func (s *Server) handleCompositeAge(w http.ResponseWriter, r *http.Request) {
	var req domain.CompositeAgeInput
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.scores.CompositeAge(req)
	if errors.Is(err, domain.ErrInsufficientAgeData) {
		httpinfra.WriteJSON(w, http.StatusOK, compositeAgeResponse{Status: "insufficient_data"})
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, compositeAgeResponse{Result: &result, Status: "ok"})
}

func (s *Server) handleLifestyleAge(w http.ResponseWriter, r *http.Request) {
	var req lifestyleAgeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.LISScore == nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid_request", "lis_score is required")
		return
	}
	result, err := s.scores.LifestyleAge(req.ChronologicalAge, *req.LISScore)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleLinkTelegram(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req telegramLinkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ChatID == 0 {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid_request", "chat_id is required")
		return
	}
	if err := s.links.LinkTelegramChat(r.Context(), userID, req.ChatID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httpinfra.WriteJSON(w, http.StatusOK, map[string]any{"status": "linked", "chat_id": req.ChatID})
}

func (s *Server) decodeDailyMetrics(w http.ResponseWriter, r *http.Request) (string, dailyMetricsRequest, bool) {
	userID, ok := s.userID(w, r)
	if !ok {
		return "", dailyMetricsRequest{}, false
	}
	var req dailyMetricsRequest
	if !decodeBody(w, r, &req) {
		return "", dailyMetricsRequest{}, false
	}
	if req.UserID != "" {
		requested, err := uuid.Parse(req.UserID)
		if err != nil {
			httpinfra.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid user id")
			return "", dailyMetricsRequest{}, false
		}
		if requested.String() != userID {
			httpinfra.WriteError(w, http.StatusForbidden, "forbidden", "user_id does not match token subject")
			return "", dailyMetricsRequest{}, false
		}
	}
	if strings.TrimSpace(req.Date) == "" {
		req.Date = s.today()
	}
	return userID, req, true
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := httpinfra.UserID(r.Context())
	if !ok {
		httpinfra.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing user")
		return "", false
	}
	return userID, true
}

func (s *Server) today() string {
	return s.now().UTC().Format(domain.DateLayout)
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidMetrics),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidUser),
		errors.Is(err, scoreusecase.ErrInvalidRange),
		errors.Is(err, scoreusecase.ErrInvalidAge):
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrScoreNotFound):
		httpinfra.WriteError(w, http.StatusNotFound, "score_not_found", "score not found")
	case errors.Is(err, domain.ErrMetricsUnavailable):
		httpinfra.WriteError(w, http.StatusFailedDependency, "metrics_unavailable", domain.ErrMetricsUnavailable.Error())
	case errors.Is(err, scoreusecase.ErrNoQueue):
		httpinfra.WriteError(w, http.StatusServiceUnavailable, "queue_unavailable", "score queue is not available")
	default:
		s.log.Error().Err(err).Str("request_id", httpinfra.RequestID(r)).Str("path", r.URL.Path).Msg("ошибка обработки запроса")
		httpinfra.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		httpinfra.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return false
	}
	return true
}

package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitality-score/internal/domain"
	httpinfra "vitality-score/internal/infra/http"
	scoreusecase "vitality-score/internal/usecase/score"
)

const (
	testUser  = "5a0b6c1e-3f4d-4c2b-9a8e-7d6c5b4a3f21"
	otherUser = "0f1e2d3c-4b5a-4968-8776-a5b4c3d2e1f0"
)

type memStore struct {
	mu      sync.Mutex
	scores  map[string]domain.DailyScoreRecord
	metrics map[string]domain.DailyMetricsEntry
	links   map[string]int64
}

func newMemStore() *memStore {
	return &memStore{
		scores:  map[string]domain.DailyScoreRecord{},
		metrics: map[string]domain.DailyMetricsEntry{},
		links:   map[string]int64{},
	}
}

func (m *memStore) SaveDailyScore(_ context.Context, record domain.DailyScoreRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[record.UserID+"|"+record.Date] = record
	return nil
}

func (m *memStore) GetDailyScore(_ context.Context, userID, date string) (domain.DailyScoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.scores[userID+"|"+date]
	if !ok {
		return domain.DailyScoreRecord{}, domain.ErrScoreNotFound
	}
	return record, nil
}

func (m *memStore) ListDailyScores(_ context.Context, userID, from, to string) ([]domain.DailyScoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DailyScoreRecord
	for _, r := range m.scores {
		if r.UserID == userID && r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) SaveDailyMetrics(_ context.Context, entry domain.DailyMetricsEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[entry.UserID+"|"+entry.Date] = entry
	return nil
}

func (m *memStore) GetDailyMetrics(_ context.Context, userID, date string) (domain.DailyMetricsEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.metrics[userID+"|"+date]
	if !ok {
		return domain.DailyMetricsEntry{}, domain.ErrMetricsNotFound
	}
	return entry, nil
}

func (m *memStore) LinkTelegramChat(_ context.Context, userID string, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[userID] = chatID
	return nil
}

func (m *memStore) GetTelegramChat(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chatID, ok := m.links[userID]
	if !ok {
		return 0, domain.ErrNotificationLinkNotFound
	}
	return chatID, nil
}

type memQueue struct {
	jobs []domain.ScoreJob
}

func (q *memQueue) Enqueue(_ context.Context, job domain.ScoreJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Receive(ctx context.Context) (domain.ScoreJob, domain.AckFunc, error) {
	return domain.ScoreJob{}, nil, context.Canceled
}

func today() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

type testAPI struct {
	handler http.Handler
	store   *memStore
	queue   *memQueue
	token   string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return newTestAPIWithQueue(t, true)
}

func newTestAPIWithQueue(t *testing.T, withQueue bool) *testAPI {
	t.Helper()
	store := newMemStore()
	queue := &memQueue{}
	opts := []scoreusecase.Option{scoreusecase.WithClock(today)}
	if withQueue {
		opts = append(opts, scoreusecase.WithQueue(queue))
	}
	svc := scoreusecase.NewService(store, store, opts...)
	auth, err := httpinfra.NewJWTAuth("test-secret", "")
	require.NoError(t, err)
	token, err := auth.Issue(testUser, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	require.NoError(t, err)

	api := NewServer(svc, WithNotificationLinks(store), WithClock(today))
	r := chi.NewRouter()
	r.Group(func(protected chi.Router) {
		protected.Use(auth.Middleware)
		protected.Mount("/api/v1", api.Router())
	})
	return &testAPI{handler: r, store: store, queue: queue, token: token}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

const goodDayBody = `{
	"date": "2026-10-18",
	"metrics": {
		"sleep": {"total_hours": 8, "rem_percentage": 22},
		"stress": {"hrv": 60, "stress_level": 2},
		"activity": {"active_minutes": 45, "steps": 10000},
		"nutrition": {"meal_quality_score": 9},
		"social": {"interaction_quality": 8, "social_time_minutes": 90},
		"cognitive": {"meditation_minutes": 15, "learning_minutes": 30}
	}
}`

func TestComputeAndFetchDailyScore(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/scores/daily", goodDayBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, testUser, got["user_id"])
	assert.Equal(t, "2026-10-18", got["date"])
	assert.Equal(t, "green", got["color_code"])
	assert.InDelta(t, 96, got["longevity_impact_score"], 1e-9)
	assert.Equal(t, 0.5, got["biological_age_impact"])
	assert.Equal(t, 100.0, got["sleep_score"])

	rec = api.do(t, http.MethodGet, "/api/v1/scores/daily/2026-10-18", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cognitive_engagement_score":100`)
}

func TestComputeDailyDefaultsToToday(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/scores/daily", `{"metrics": {}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"date":"2026-10-19"`)
	assert.Contains(t, rec.Body.String(), `"longevity_impact_score":50`)
}

func TestDailyScoreErrors(t *testing.T) {
	api := newTestAPI(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"bad json", http.MethodPost, "/api/v1/scores/daily", `{`, http.StatusBadRequest, "invalid_request"},
		{"bad date", http.MethodPost, "/api/v1/scores/daily", `{"date":"19/10/2026"}`, http.StatusBadRequest, "invalid_request"},
		{"out of range", http.MethodPost, "/api/v1/scores/daily", `{"date":"2026-10-18","metrics":{"sleep":{"rem_percentage":120}}}`, http.StatusBadRequest, "invalid_request"},
		{"other user", http.MethodPost, "/api/v1/scores/daily", `{"user_id":"` + otherUser + `"}`, http.StatusForbidden, "forbidden"},
		{"missing score", http.MethodGet, "/api/v1/scores/daily/2026-01-01", "", http.StatusNotFound, "score_not_found"},
		{"reversed history", http.MethodGet, "/api/v1/scores/history?from=2026-10-19&to=2026-10-01", "", http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"`+tt.code+`"`)
		})
	}
	assert.Empty(t, api.store.scores)
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scores/history", nil)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHistoryDefaultsToLastWeek(t *testing.T) {
	api := newTestAPI(t)
	for _, date := range []string{"2026-10-12", "2026-10-13", "2026-10-19"} {
		body := strings.Replace(goodDayBody, "2026-10-18", date, 1)
		require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/scores/daily", body).Code)
	}

	rec := api.do(t, http.MethodGet, "/api/v1/scores/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var history domain.ScoreHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, "2026-10-13", history.From)
	assert.Equal(t, "2026-10-19", history.To)
	assert.Equal(t, 2, history.DaysScored)
	assert.Equal(t, 1, history.CurrentGreenStreak)
}

func TestSubmitMetricsQueuesJob(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/metrics/daily", goodDayBody)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp submitMetricsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "queued", resp.Status)
	require.Len(t, api.queue.jobs, 1)
	assert.Equal(t, resp.JobID, api.queue.jobs[0].ID)
	assert.Contains(t, api.store.metrics, testUser+"|2026-10-18")
}

func TestSubmitMetricsWithoutQueue(t *testing.T) {
	api := newTestAPIWithQueue(t, false)

	rec := api.do(t, http.MethodPost, "/api/v1/metrics/daily", goodDayBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"queue_unavailable"`)
	assert.Empty(t, api.store.metrics)
}

func TestRecomputeDaily(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/scores/daily/2026-10-18/recompute", "")
	assert.Equal(t, http.StatusFailedDependency, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"metrics_unavailable"`)
	assert.Empty(t, api.store.scores)

	rec = api.do(t, http.MethodPost, "/api/v1/scores/daily/18.10.2026/recompute", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusAccepted, api.do(t, http.MethodPost, "/api/v1/metrics/daily", goodDayBody).Code)
	rec = api.do(t, http.MethodPost, "/api/v1/scores/daily/2026-10-18/recompute", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got domain.DailyScoreRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, testUser, got.UserID)
	assert.InDelta(t, 96, got.LongevityImpactScore, 1e-9)
	assert.Contains(t, api.store.scores, testUser+"|2026-10-18")
}

func TestCompositeAgeEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/bioage/composite", `{"chronological_age": 45}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":null,"status":"insufficient_data"}`, rec.Body.String())

	rec = api.do(t, http.MethodPost, "/api/v1/bioage/composite",
		`{"chronological_age": 40, "lifestyle_age": 40, "metabolic_age": 42, "hormone_age": 38}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp compositeAgeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 95, resp.Result.Confidence)
	assert.Equal(t, "Based on all assessments", resp.Result.DisplayMessage)

	rec = api.do(t, http.MethodPost, "/api/v1/bioage/composite", `{"chronological_age": 0, "hormone_age": 38}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLifestyleAgeEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/v1/bioage/lifestyle", `{"chronological_age": 40, "lis_score": 100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.LifestyleAgeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 40.0, got.LifestyleAge)

	rec = api.do(t, http.MethodPost, "/api/v1/bioage/lifestyle", `{"chronological_age": 40}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLinkTelegram(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPut, "/api/v1/notifications/telegram", `{"chat_id": 12345}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(12345), api.store.links[testUser])

	rec = api.do(t, http.MethodPut, "/api/v1/notifications/telegram", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

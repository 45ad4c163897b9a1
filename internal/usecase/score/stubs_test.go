package score

import (
	"context"
	"sort"
	"sync"
	"time"

	"vitality-score/internal/domain"
)

const testUser = "5a0b6c1e-3f4d-4c2b-9a8e-7d6c5b4a3f21"

type memScores struct {
	mu      sync.Mutex
	records map[string]domain.DailyScoreRecord
	saveErr error
	gets    int
}

func newMemScores() *memScores {
	return &memScores{records: map[string]domain.DailyScoreRecord{}}
}

func (m *memScores) SaveDailyScore(_ context.Context, record domain.DailyScoreRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[record.UserID+"|"+record.Date] = record
	return nil
}

func (m *memScores) GetDailyScore(_ context.Context, userID, date string) (domain.DailyScoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	record, ok := m.records[userID+"|"+date]
	if !ok {
		return domain.DailyScoreRecord{}, domain.ErrScoreNotFound
	}
	return record, nil
}

func (m *memScores) ListDailyScores(_ context.Context, userID, from, to string) ([]domain.DailyScoreRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DailyScoreRecord
	for _, r := range m.records {
		if r.UserID == userID && r.Date >= from && r.Date <= to {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type memMetrics struct {
	entries map[string]domain.DailyMetricsEntry
	getErr  error
}

func newMemMetrics() *memMetrics {
	return &memMetrics{entries: map[string]domain.DailyMetricsEntry{}}
}

func (m *memMetrics) SaveDailyMetrics(_ context.Context, entry domain.DailyMetricsEntry) error {
	m.entries[entry.UserID+"|"+entry.Date] = entry
	return nil
}

func (m *memMetrics) GetDailyMetrics(_ context.Context, userID, date string) (domain.DailyMetricsEntry, error) {
	if m.getErr != nil {
		return domain.DailyMetricsEntry{}, m.getErr
	}
	entry, ok := m.entries[userID+"|"+date]
	if !ok {
		return domain.DailyMetricsEntry{}, domain.ErrMetricsNotFound
	}
	return entry, nil
}

// memQueue re-queues nacked jobs and cancels the run once it is drained.
type memQueue struct {
	jobs   []domain.ScoreJob
	acks   []bool
	cancel context.CancelFunc
}

func (q *memQueue) Enqueue(_ context.Context, job domain.ScoreJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memQueue) Receive(ctx context.Context) (domain.ScoreJob, domain.AckFunc, error) {
	if len(q.jobs) == 0 {
		if q.cancel != nil {
			q.cancel()
		}
		return domain.ScoreJob{}, nil, context.Canceled
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, func(success bool) error {
		q.acks = append(q.acks, success)
		if !success {
			q.jobs = append(q.jobs, job)
		}
		return nil
	}, nil
}

type memStatuses struct {
	attempts map[string]int
	done     map[string]bool
}

func newMemStatuses() *memStatuses {
	return &memStatuses{attempts: map[string]int{}, done: map[string]bool{}}
}

func (s *memStatuses) EnsureScoreJob(_ context.Context, jobID string) (bool, int, error) {
	if s.done[jobID] {
		return true, s.attempts[jobID], nil
	}
	s.attempts[jobID]++
	return false, s.attempts[jobID], nil
}

func (s *memStatuses) MarkScoreJobDone(_ context.Context, jobID string) error {
	s.done[jobID] = true
	return nil
}

type memCache struct {
	values map[string][]byte
}

func newMemCache() *memCache { return &memCache{values: map[string][]byte{}} }

func (c *memCache) Once(_ context.Context, key string, _ time.Duration, fn func() error) error {
	if _, ok := c.values[key]; ok {
		return nil
	}
	c.values[key] = []byte("1")
	if err := fn(); err != nil {
		delete(c.values, key)
		return err
	}
	return nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.values[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	return c.values[key], nil
}

type memLinks map[string]int64

func (l memLinks) LinkTelegramChat(_ context.Context, userID string, chatID int64) error {
	l[userID] = chatID
	return nil
}

func (l memLinks) GetTelegramChat(_ context.Context, userID string) (int64, error) {
	chatID, ok := l[userID]
	if !ok {
		return 0, domain.ErrNotificationLinkNotFound
	}
	return chatID, nil
}

type stubNotifier struct {
	sent  []string
	calls int
	err   error
}

func (n *stubNotifier) SendHTML(_ context.Context, _ int64, text string) error {
	n.calls++
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, text)
	return nil
}

type memAnalytics struct {
	events []domain.BusinessMetric
}

func (a *memAnalytics) RecordBusinessMetric(_ context.Context, metric domain.BusinessMetric) error {
	a.events = append(a.events, metric)
	return nil
}

func fixedClock() time.Time {
	return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
}

func goodDay() domain.DailyMetrics {
	return domain.DailyMetrics{
		Sleep:     &domain.SleepMetrics{TotalHours: f64(8), REMPercentage: f64(22)},
		Stress:    &domain.StressMetrics{HRV: f64(60), StressLevel: i(2)},
		Activity:  &domain.ActivityMetrics{ActiveMinutes: i(45), Steps: i(10000)},
		Nutrition: &domain.NutritionMetrics{MealQualityScore: i(9)},
		Social:    &domain.SocialMetrics{InteractionQuality: i(8), SocialTimeMinutes: i(90)},
		Cognitive: &domain.CognitiveMetrics{MeditationMinutes: i(15), LearningMinutes: i(30)},
	}
}

package score

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitality-score/internal/domain"
)

type workerFixture struct {
	svc       *Service
	scores    *memScores
	raw       *memMetrics
	queue     *memQueue
	statuses  *memStatuses
	links     memLinks
	notifier  *stubNotifier
	cache     *memCache
	analytics *memAnalytics
	pause     time.Duration
}

func newWorkerFixture() *workerFixture {
	svc, scores, raw := newTestService()
	return &workerFixture{
		svc:       svc,
		scores:    scores,
		raw:       raw,
		queue:     &memQueue{},
		statuses:  newMemStatuses(),
		links:     memLinks{},
		notifier:  &stubNotifier{},
		cache:     newMemCache(),
		analytics: &memAnalytics{},
		pause:     time.Millisecond,
	}
}

func (f *workerFixture) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f.queue.cancel = cancel
	NewWorker(WorkerConfig{
		Service:    f.svc,
		Queue:      f.queue,
		Statuses:   f.statuses,
		Links:      f.links,
		Notifier:   f.notifier,
		Cache:      f.cache,
		Analytics:  f.analytics,
		RetryPause: f.pause,
	}).Run(ctx)
}

func (f *workerFixture) store(date string) {
	f.raw.entries[testUser+"|"+date] = domain.DailyMetricsEntry{UserID: testUser, Date: date, Metrics: goodDay()}
}

func job(id, date string) domain.ScoreJob {
	return domain.ScoreJob{ID: id, UserID: testUser, Date: date, Cause: domain.ScoreCauseSubmitted}
}

func TestWorkerScoresAndNotifies(t *testing.T) {
	f := newWorkerFixture()
	f.store("2026-10-18")
	f.links[testUser] = 777
	f.queue.jobs = []domain.ScoreJob{job("job-1", "2026-10-18")}

	f.run(t)

	assert.Equal(t, []bool{true}, f.queue.acks)
	assert.True(t, f.statuses.done["job-1"])
	require.Contains(t, f.scores.records, testUser+"|2026-10-18")
	require.Len(t, f.notifier.sent, 1)
	assert.Contains(t, f.notifier.sent[0], "2026-10-18")
	require.Len(t, f.analytics.events, 1)
	assert.Equal(t, domain.BusinessMetricEventScoreDelivered, f.analytics.events[0].Event)
}

func TestWorkerSkipsDoneAndAnonymousJobs(t *testing.T) {
	f := newWorkerFixture()
	f.store("2026-10-18")
	f.statuses.done["job-1"] = true
	f.queue.jobs = []domain.ScoreJob{job("job-1", "2026-10-18"), job("", "2026-10-18")}

	f.run(t)

	assert.Equal(t, []bool{true, true}, f.queue.acks)
	assert.Empty(t, f.scores.records)
	assert.Zero(t, f.notifier.calls)
}

func TestWorkerCompletesWhenMetricsMissing(t *testing.T) {
	f := newWorkerFixture()
	f.queue.jobs = []domain.ScoreJob{job("job-1", "2026-10-18")}

	f.run(t)

	assert.Equal(t, []bool{true}, f.queue.acks)
	assert.True(t, f.statuses.done["job-1"])
	assert.Empty(t, f.scores.records)
}

func TestWorkerWithoutLinkDoesNotNotify(t *testing.T) {
	f := newWorkerFixture()
	f.store("2026-10-18")
	f.queue.jobs = []domain.ScoreJob{job("job-1", "2026-10-18")}

	f.run(t)

	assert.Equal(t, []bool{true}, f.queue.acks)
	assert.Len(t, f.scores.records, 1)
	assert.Zero(t, f.notifier.calls)
}

func TestWorkerRetriesUntilAttemptsExhausted(t *testing.T) {
	f := newWorkerFixture()
	f.store("2026-10-18")
	f.links[testUser] = 777
	f.notifier.err = errors.New("telegram unavailable")
	f.queue.jobs = []domain.ScoreJob{job("job-1", "2026-10-18")}

	f.run(t)

	assert.Equal(t, maxJobAttempts, f.notifier.calls)
	assert.Equal(t, maxJobAttempts, f.statuses.attempts["job-1"])
	assert.Equal(t, []bool{false, false, false, false, true}, f.queue.acks)
	assert.True(t, f.statuses.done["job-1"])
	assert.Empty(t, f.analytics.events)
}

func TestWorkerBacksOffBetweenRetries(t *testing.T) {
	f := newWorkerFixture()
	f.pause = 10 * time.Millisecond
	f.store("2026-10-18")
	f.links[testUser] = 777
	f.notifier.err = errors.New("telegram unavailable")
	f.queue.jobs = []domain.ScoreJob{job("job-1", "2026-10-18")}

	start := time.Now()
	f.run(t)

	// четыре повтора ждут 1+2+3+4 паузы
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, maxJobAttempts, f.notifier.calls)
	assert.True(t, f.statuses.done["job-1"])
}

func TestWorkerDoesNotResendAfterRedelivery(t *testing.T) {
	f := newWorkerFixture()
	f.store("2026-10-18")
	f.links[testUser] = 777
	f.cache.values["score:notified:"+testUser+":2026-10-18"] = []byte("1")
	f.queue.jobs = []domain.ScoreJob{job("job-1", "2026-10-18")}

	f.run(t)

	assert.Zero(t, f.notifier.calls)
	assert.True(t, f.statuses.done["job-1"])
}

package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitality-score/internal/domain"
)

const scheduleUser = "5a0b6c1e-3f4d-4c2b-9a8e-7d6c5b4a3f21"

type stubStale struct {
	entries       []domain.DailyMetricsEntry
	err           error
	since         string
	updatedBefore time.Time
	limit         int
}

func (s *stubStale) ListStaleMetrics(_ context.Context, since string, updatedBefore time.Time, limit int) ([]domain.DailyMetricsEntry, error) {
	s.since, s.updatedBefore, s.limit = since, updatedBefore, limit
	return s.entries, s.err
}

type recordingQueue struct {
	jobs    []domain.ScoreJob
	failAt  int
	failErr error
}

func (q *recordingQueue) Enqueue(_ context.Context, job domain.ScoreJob) error {
	if q.failErr != nil && len(q.jobs) == q.failAt {
		return q.failErr
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Receive(ctx context.Context) (domain.ScoreJob, domain.AckFunc, error) {
	<-ctx.Done()
	return domain.ScoreJob{}, nil, ctx.Err()
}

var sweepNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestService(stale *stubStale, q *recordingQueue) *Service {
	svc := NewService(stale, q, Config{}, zerolog.Nop())
	svc.now = func() time.Time { return sweepNow }
	return svc
}

func TestSweepEnqueuesRecompute(t *testing.T) {
	updated := sweepNow.Add(-time.Hour)
	stale := &stubStale{entries: []domain.DailyMetricsEntry{
		{UserID: scheduleUser, Date: "2026-10-18", UpdatedAt: updated},
		{UserID: scheduleUser, Date: "2026-10-19", UpdatedAt: updated},
	}}
	q := &recordingQueue{}

	n, err := newTestService(stale, q).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, "2026-10-16", stale.since)
	assert.Equal(t, sweepNow.Add(-defaultGrace), stale.updatedBefore)
	assert.Equal(t, defaultBatch, stale.limit)

	require.Len(t, q.jobs, 2)
	assert.Equal(t, domain.ScoreCauseRecompute, q.jobs[0].Cause)
	assert.Equal(t, "2026-10-18", q.jobs[0].Date)
	assert.NotEqual(t, q.jobs[0].ID, q.jobs[1].ID)
}

func TestSweepJobIDsAreStable(t *testing.T) {
	entry := domain.DailyMetricsEntry{UserID: scheduleUser, Date: "2026-10-18", UpdatedAt: sweepNow.Add(-time.Hour)}
	first := &recordingQueue{}
	second := &recordingQueue{}

	_, err := newTestService(&stubStale{entries: []domain.DailyMetricsEntry{entry}}, first).Sweep(context.Background())
	require.NoError(t, err)
	_, err = newTestService(&stubStale{entries: []domain.DailyMetricsEntry{entry}}, second).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.jobs[0].ID, second.jobs[0].ID)

	entry.UpdatedAt = entry.UpdatedAt.Add(time.Second)
	assert.NotEqual(t, first.jobs[0].ID, recomputeJobID(entry))
}

func TestSweepStopsOnQueueError(t *testing.T) {
	stale := &stubStale{entries: []domain.DailyMetricsEntry{
		{UserID: scheduleUser, Date: "2026-10-17"},
		{UserID: scheduleUser, Date: "2026-10-18"},
	}}
	q := &recordingQueue{failAt: 1, failErr: errors.New("broker down")}

	n, err := newTestService(stale, q).Sweep(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
}

func TestSweepRepoError(t *testing.T) {
	_, err := newTestService(&stubStale{err: errors.New("timeout")}, &recordingQueue{}).Sweep(context.Background())
	assert.Error(t, err)
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"vitality-score/internal/domain"
)

const cliUser = "5A0B6C1E-3F4D-4C2B-9A8E-7D6C5B4A3F21"

type harness struct {
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{dir: t.TempDir()}
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp(&out)
	app.now = func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) }
	full := append([]string{"scorectl", "--db", filepath.Join(h.dir, "scores.db")}, args...)
	err := app.Command().Run(context.Background(), full)
	return out.String(), err
}

func (h *harness) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const metricsJSON = `{
  "sleep": {"total_hours": 8, "rem_percentage": 22},
  "stress": {"hrv": 70, "stress_level": 2},
  "activity": {"active_minutes": 45, "steps": 11000},
  "nutrition": {"meal_quality_score": 9},
  "social": {"interaction_quality": 8, "social_time_minutes": 90},
  "cognitive": {"meditation_minutes": 20, "learning_minutes": 40}
}`

const metricsYAML = `sleep:
  total_hours: 8
  rem_percentage: 22
stress:
  hrv: 70
  stress_level: 2
nutrition:
  meal_quality_score: 9
`

func TestDailyPreviewDoesNotSave(t *testing.T) {
	h := newHarness(t)
	file := h.writeFile(t, "metrics.json", metricsJSON)

	out, err := h.run(t, "daily", "--file", file, "--user", cliUser, "--date", "2026-10-18")
	require.NoError(t, err)

	var record domain.DailyScoreRecord
	require.NoError(t, json.Unmarshal([]byte(out), &record))
	assert.Equal(t, "5a0b6c1e-3f4d-4c2b-9a8e-7d6c5b4a3f21", record.UserID)
	assert.Equal(t, "2026-10-18", record.Date)
	assert.Equal(t, domain.ColorGreen, record.ColorCode)
	assert.Greater(t, record.LongevityImpactScore, 50.0)

	out, err = h.run(t, "history", "--user", cliUser, "--to", "2026-10-18")
	require.NoError(t, err)
	var history domain.ScoreHistory
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	assert.Zero(t, history.DaysScored)
}

func TestDailySaveThenHistory(t *testing.T) {
	h := newHarness(t)
	file := h.writeFile(t, "metrics.yaml", metricsYAML)

	_, err := h.run(t, "daily", "--file", file, "--user", cliUser, "--save")
	require.NoError(t, err)

	out, err := h.run(t, "history", "--user", cliUser, "--days", "3")
	require.NoError(t, err)

	var history domain.ScoreHistory
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	assert.Equal(t, "2026-10-17", history.From)
	assert.Equal(t, "2026-10-19", history.To)
	require.Equal(t, 1, history.DaysScored)
	assert.Equal(t, "2026-10-19", history.Days[0].Date)
}

func TestDailyRejectsInvalidMetrics(t *testing.T) {
	h := newHarness(t)
	file := h.writeFile(t, "bad.json", `{"sleep": {"total_hours": 30}}`)

	_, err := h.run(t, "daily", "--file", file, "--user", cliUser)
	assert.ErrorIs(t, err, domain.ErrInvalidMetrics)
}

func TestDailySaveRejectsNaN(t *testing.T) {
	h := newHarness(t)
	file := h.writeFile(t, "nan.yaml", "stress:\n  hrv: .nan\n")

	_, err := h.run(t, "daily", "--file", file, "--user", cliUser, "--save")
	assert.ErrorIs(t, err, domain.ErrInvalidMetrics)

	out, err := h.run(t, "history", "--user", cliUser, "--days", "1")
	require.NoError(t, err)
	var history domain.ScoreHistory
	require.NoError(t, json.Unmarshal([]byte(out), &history))
	assert.Zero(t, history.DaysScored)
}

func TestBioageComposite(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "bioage", "composite", "--chronological", "40")
	require.NoError(t, err)
	var empty compositeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &empty))
	assert.Equal(t, "insufficient_data", empty.Status)
	assert.Nil(t, empty.Result)

	out, err = h.run(t, "bioage", "composite", "--chronological", "40", "--lifestyle", "38")
	require.NoError(t, err)
	var got compositeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "ok", got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, []domain.AgeDomain{domain.AgeDomainLifestyle}, got.Result.ContributingDomains)
}

func TestBioageLifestyleYAML(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "--format", "yaml", "bioage", "lifestyle", "--chronological", "40", "--lis", "100")
	require.NoError(t, err)

	var result domain.LifestyleAgeResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	assert.Equal(t, 40.0, result.ChronologicalAge)
	assert.Equal(t, 100.0, result.Score)
}

func TestUnsupportedFormat(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "--format", "xml", "bioage", "lifestyle", "--chronological", "40", "--lis", "100")
	assert.Error(t, err)
}

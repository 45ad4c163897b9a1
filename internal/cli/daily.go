package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"vitality-score/internal/domain"
	"vitality-score/internal/usecase/score"
)

const (
	fileFlagName = "file"
	userFlagName = "user"
	dateFlagName = "date"
	saveFlagName = "save"
)

func userFlag() *urfave.StringFlag {
	return &urfave.StringFlag{
		Name:     userFlagName,
		Usage:    "User UUID",
		Required: true,
	}
}

func (a *App) dailyCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "daily",
		Usage: "Computes the daily longevity score from a metrics file",
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:     fileFlagName,
				Usage:    "Daily metrics file (.json, .yaml or .yml)",
				Required: true,
			},
			userFlag(),
			&urfave.StringFlag{
				Name:  dateFlagName,
				Usage: "Score date (YYYY-MM-DD, optional, defaults to today)",
			},
			&urfave.BoolFlag{
				Name:  saveFlagName,
				Usage: "Stores metrics and score in the local database",
			},
		},
		Action: a.runDaily,
	}
}

func (a *App) runDaily(ctx context.Context, cmd *urfave.Command) error {
	m, err := readMetrics(cmd.String(fileFlagName))
	if err != nil {
		return err
	}
	date := cmd.String(dateFlagName)
	if date == "" {
		date = a.today()
	}
	req := score.DailyScoreRequest{
		UserID:  cmd.String(userFlagName),
		Date:    date,
		Metrics: m,
		Source:  score.SourceCLI,
	}

	if !cmd.Bool(saveFlagName) {
		record, err := a.service.Preview(req)
		if err != nil {
			return err
		}
		return a.print(record)
	}

	record, err := a.service.ComputeDaily(ctx, req)
	if err != nil {
		return err
	}
	if err := a.store.SaveDailyMetrics(ctx, domain.DailyMetricsEntry{
		UserID:    record.UserID,
		Date:      record.Date,
		Metrics:   m,
		UpdatedAt: record.ComputedAt,
	}); err != nil {
		return fmt.Errorf("save daily metrics: %w", err)
	}
	a.log.Debug().Str("user", record.UserID).Str("date", record.Date).Msg("scorectl: оценка сохранена")
	return a.print(record)
}

func readMetrics(path string) (domain.DailyMetrics, error) {
	var m domain.DailyMetrics
	b, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("reading metrics file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &m)
	default:
		err = json.Unmarshal(b, &m)
	}
	if err != nil {
		return m, fmt.Errorf("%w: decoding %s: %v", domain.ErrInvalidMetrics, path, err)
	}
	return m, nil
}

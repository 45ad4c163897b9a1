package cli

import (
	"context"
	"fmt"
	"time"

	urfave "github.com/urfave/cli/v3"

	"vitality-score/internal/domain"
)

const (
	historyDaysDefault = 7

	daysFlagName = "days"
	toFlagName   = "to"
)

func (a *App) historyCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "history",
		Usage: "Summarises stored daily scores",
		Flags: []urfave.Flag{
			userFlag(),
			&urfave.IntFlag{
				Name:  daysFlagName,
				Usage: "Number of days in the window",
				Value: historyDaysDefault,
			},
			&urfave.StringFlag{
				Name:  toFlagName,
				Usage: "Last day of the window (YYYY-MM-DD, optional, defaults to today)",
			},
		},
		Action: a.runHistory,
	}
}

func (a *App) runHistory(ctx context.Context, cmd *urfave.Command) error {
	days := cmd.Int(daysFlagName)
	if days <= 0 {
		return fmt.Errorf("days must be positive, got %d", days)
	}
	to := cmd.String(toFlagName)
	if to == "" {
		to = a.today()
	}
	toDate, err := domain.ParseDate(to)
	if err != nil {
		return err
	}
	from := toDate.Add(-time.Duration(days-1) * 24 * time.Hour).Format(domain.DateLayout)

	history, err := a.service.History(ctx, cmd.String(userFlagName), from, to)
	if err != nil {
		return err
	}
	return a.print(history)
}

package cli

import (
	"context"
	"errors"

	urfave "github.com/urfave/cli/v3"

	"vitality-score/internal/domain"
)

const (
	chronologicalFlagName = "chronological"
	lifestyleFlagName     = "lifestyle"
	metabolicFlagName     = "metabolic"
	hormoneFlagName       = "hormone"
	lisFlagName           = "lis"
)

func chronologicalFlag() *urfave.FloatFlag {
	return &urfave.FloatFlag{
		Name:     chronologicalFlagName,
		Usage:    "Chronological age in years",
		Required: true,
	}
}

type compositeOutput struct {
	Result *domain.OverallBiologicalAgeResult `json:"result" yaml:"result"`
	Status string                             `json:"status" yaml:"status"`
}

func (a *App) bioageCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "bioage",
		Usage: "Biological age calculators",
		Commands: []*urfave.Command{
			{
				Name:  "composite",
				Usage: "Weighted overall biological age from domain ages",
				Flags: []urfave.Flag{
					chronologicalFlag(),
					&urfave.FloatFlag{Name: lifestyleFlagName, Usage: "Lifestyle age in years (optional)"},
					&urfave.FloatFlag{Name: metabolicFlagName, Usage: "Metabolic (nutrition) age in years (optional)"},
					&urfave.FloatFlag{Name: hormoneFlagName, Usage: "Hormone age in years (optional)"},
				},
				Action: a.runComposite,
			},
			{
				Name:  "lifestyle",
				Usage: "Lifestyle age from a lifestyle index score",
				Flags: []urfave.Flag{
					chronologicalFlag(),
					&urfave.FloatFlag{Name: lisFlagName, Usage: "Lifestyle index score", Required: true},
				},
				Action: a.runLifestyle,
			},
		},
	}
}

func (a *App) runComposite(_ context.Context, cmd *urfave.Command) error {
	in := domain.CompositeAgeInput{
		ChronologicalAge: cmd.Float(chronologicalFlagName),
		LifestyleAge:     optionalFloat(cmd, lifestyleFlagName),
		MetabolicAge:     optionalFloat(cmd, metabolicFlagName),
		HormoneAge:       optionalFloat(cmd, hormoneFlagName),
	}
	result, err := a.service.CompositeAge(in)
	if errors.Is(err, domain.ErrInsufficientAgeData) {
		return a.print(compositeOutput{Status: "insufficient_data"})
	}
	if err != nil {
		return err
	}
	return a.print(compositeOutput{Result: &result, Status: "ok"})
}

func (a *App) runLifestyle(_ context.Context, cmd *urfave.Command) error {
	result, err := a.service.LifestyleAge(cmd.Float(chronologicalFlagName), cmd.Float(lisFlagName))
	if err != nil {
		return err
	}
	return a.print(result)
}

func optionalFloat(cmd *urfave.Command, name string) *float64 {
	if !cmd.IsSet(name) {
		return nil
	}
	v := cmd.Float(name)
	return &v
}

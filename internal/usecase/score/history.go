package score

import (
	"sort"
	"time"

	"vitality-score/internal/domain"
)

// Summarize строит сводку по сохранённым оценкам. Записи сортируются по дате.
// Серия зелёных дней считается от последнего дня и прерывается красным днём
// или пропущенной датой.
func Summarize(records []domain.DailyScoreRecord) domain.ScoreHistory {
	days := make([]domain.DailyScoreRecord, len(records))
	copy(days, records)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	history := domain.ScoreHistory{DaysScored: len(days), Days: days}
	if len(days) == 0 {
		history.Days = []domain.DailyScoreRecord{}
		return history
	}

	var sum float64
	var pillars domain.PillarScores
	history.MinScore = days[0].LongevityImpactScore
	history.MaxScore = days[0].LongevityImpactScore
	for _, d := range days {
		sum += d.LongevityImpactScore
		history.MinScore = min(history.MinScore, d.LongevityImpactScore)
		history.MaxScore = max(history.MaxScore, d.LongevityImpactScore)
		history.CumulativeImpactDays += d.BiologicalAgeImpact
		if d.ColorCode == domain.ColorGreen {
			history.GreenDays++
		} else {
			history.RedDays++
		}
		pillars.Sleep += d.Sleep
		pillars.Stress += d.Stress
		pillars.PhysicalActivity += d.PhysicalActivity
		pillars.Nutrition += d.Nutrition
		pillars.SocialConnections += d.SocialConnections
		pillars.CognitiveEngagement += d.CognitiveEngagement
	}

	n := float64(len(days))
	history.AverageScore = sum / n
	history.Pillars = domain.PillarScores{
		Sleep:               pillars.Sleep / n,
		Stress:              pillars.Stress / n,
		PhysicalActivity:    pillars.PhysicalActivity / n,
		Nutrition:           pillars.Nutrition / n,
		SocialConnections:   pillars.SocialConnections / n,
		CognitiveEngagement: pillars.CognitiveEngagement / n,
	}
	history.CurrentGreenStreak = greenStreak(days)
	return history
}

func greenStreak(days []domain.DailyScoreRecord) int {
	streak := 0
	var next time.Time
	for i := len(days) - 1; i >= 0; i-- {
		d := days[i]
		if d.ColorCode != domain.ColorGreen {
			break
		}
		date, err := domain.ParseDate(d.Date)
		if err != nil {
			break
		}
		if !next.IsZero() && !date.AddDate(0, 0, 1).Equal(next) {
			break
		}
		streak++
		next = date
	}
	return streak
}

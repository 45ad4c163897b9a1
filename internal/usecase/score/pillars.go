package score

import (
	"math"

	"vitality-score/internal/domain"
)

// neutralScore используется для области без данных: отсутствие данных не штрафуется.
const neutralScore = 50.0

// Цели линейных шкал: фактор достигает 100 на цели и дальше не растёт.
const (
	hrvReferenceMs        = 50.0
	activeMinutesTarget   = 30.0
	stepsTarget           = 8000.0
	socialMinutesTarget   = 60.0
	meditationTarget      = 10.0
	learningMinutesTarget = 30.0
)

// band включающий диапазон [min, max] с оценкой.
type band struct {
	min, max float64
	score    float64
}

// Диапазоны проверяются по порядку, иначе используется fallback.
var (
	sleepHoursBands = []band{{7, 9, 100}, {6, 10, 75}}
	remBands        = []band{{20, 25, 100}, {15, 30, 75}}
)

const bandFallback = 50.0

func banded(v float64, bands []band) float64 {
	for _, b := range bands {
		if v >= b.min && v <= b.max {
			return b.score
		}
	}
	return bandFallback
}

// ramp линейно масштабирует значение: target соответствует 100.
func ramp(value, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Min(100, value/target*100)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// meanOf усредняет заданные факторы, без факторов возвращает нейтральную оценку.
func meanOf(factors ...*float64) float64 {
	var sum float64
	var n int
	for _, f := range factors {
		if f == nil {
			continue
		}
		sum += *f
		n++
	}
	if n == 0 {
		return neutralScore
	}
	return clamp(sum / float64(n))
}

func factor(v float64) *float64 { return &v }

func intFactor(v *int, fn func(float64) float64) *float64 {
	if v == nil {
		return nil
	}
	return factor(fn(float64(*v)))
}

func floatFactor(v *float64, fn func(float64) float64) *float64 {
	if v == nil {
		return nil
	}
	return factor(fn(*v))
}

func rampTo(target float64) func(float64) float64 {
	return func(v float64) float64 { return ramp(v, target) }
}

func tenfold(v float64) float64 { return v * 10 }

// SleepScore усредняет оценки длительности сна и доли REM.
func SleepScore(m *domain.SleepMetrics) float64 {
	if m == nil {
		return neutralScore
	}
	return meanOf(
		floatFactor(m.TotalHours, func(h float64) float64 { return banded(h, sleepHoursBands) }),
		floatFactor(m.REMPercentage, func(r float64) float64 { return banded(r, remBands) }),
	)
}

// StressScore усредняет нормированный HRV и инвертированный уровень стресса.
func StressScore(m *domain.StressMetrics) float64 {
	if m == nil {
		return neutralScore
	}
	return meanOf(
		floatFactor(m.HRV, rampTo(hrvReferenceMs)),
		intFactor(m.StressLevel, func(level float64) float64 { return (11 - level) * 10 }),
	)
}

// ActivityScore усредняет активные минуты и шаги относительно дневных целей.
func ActivityScore(m *domain.ActivityMetrics) float64 {
	if m == nil {
		return neutralScore
	}
	return meanOf(
		intFactor(m.ActiveMinutes, rampTo(activeMinutesTarget)),
		intFactor(m.Steps, rampTo(stepsTarget)),
	)
}

// NutritionScore переводит самооценку питания 1-10 в шкалу 0-100.
func NutritionScore(m *domain.NutritionMetrics) float64 {
	if m == nil {
		return neutralScore
	}
	return meanOf(intFactor(m.MealQualityScore, tenfold))
}

func SocialScore(m *domain.SocialMetrics) float64 {
	if m == nil {
		return neutralScore
	}
	return meanOf(
		intFactor(m.InteractionQuality, tenfold),
		intFactor(m.SocialTimeMinutes, rampTo(socialMinutesTarget)),
	)
}

// CognitiveScore усредняет минуты медитации и обучения.
func CognitiveScore(m *domain.CognitiveMetrics) float64 {
	if m == nil {
		return neutralScore
	}
	return meanOf(
		intFactor(m.MeditationMinutes, rampTo(meditationTarget)),
		intFactor(m.LearningMinutes, rampTo(learningMinutesTarget)),
	)
}

// PillarScoresFor рассчитывает оценки всех областей.
func PillarScoresFor(m domain.DailyMetrics) domain.PillarScores {
	return domain.PillarScores{
		Sleep:               SleepScore(m.Sleep),
		Stress:              StressScore(m.Stress),
		PhysicalActivity:    ActivityScore(m.Activity),
		Nutrition:           NutritionScore(m.Nutrition),
		SocialConnections:   SocialScore(m.Social),
		CognitiveEngagement: CognitiveScore(m.Cognitive),
	}
}

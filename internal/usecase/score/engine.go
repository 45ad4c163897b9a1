package score

import "vitality-score/internal/domain"

// PillarWeights веса областей, в сумме 1.
var PillarWeights = map[domain.Pillar]float64{
	domain.PillarSleep:               0.25,
	domain.PillarStress:              0.20,
	domain.PillarPhysicalActivity:    0.15,
	domain.PillarNutrition:           0.15,
	domain.PillarSocialConnections:   0.15,
	domain.PillarCognitiveEngagement: 0.10,
}

// impactBands сопоставляют минимальный итоговый балл и влияние в днях.
var impactBands = []struct {
	minScore float64
	days     float64
}{
	{80, 0.5},
	{65, 0.25},
	{50, 0},
	{35, -0.25},
}

const lowestImpact = -0.5

// Composite возвращает взвешенную сумму оценок областей.
func Composite(p domain.PillarScores) float64 {
	var total float64
	for _, pillar := range domain.Pillars {
		total += p.Get(pillar) * PillarWeights[pillar]
	}
	return total
}

// BiologicalAgeImpact переводит итоговый балл во влияние на возраст.
func BiologicalAgeImpact(score float64) float64 {
	for _, b := range impactBands {
		if score >= b.minScore {
			return b.days
		}
	}
	return lowestImpact
}

// ColorFor возвращает green для неотрицательного влияния и red иначе.
func ColorFor(impact float64) domain.ColorCode {
	if impact >= 0 {
		return domain.ColorGreen
	}
	return domain.ColorRed
}

// Score рассчитывает оценку дня. Функция чистая и безопасна для конкурентного вызова.
func Score(m domain.DailyMetrics) domain.DailyScore {
	pillars := PillarScoresFor(m)
	composite := Composite(pillars)
	impact := BiologicalAgeImpact(composite)
	return domain.DailyScore{
		LongevityImpactScore: composite,
		BiologicalAgeImpact:  impact,
		ColorCode:            ColorFor(impact),
		PillarScores:         pillars,
	}
}

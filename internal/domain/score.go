package domain

import "time"

// Pillar одна из шести областей образа жизни, из которых складывается оценка дня.
type Pillar string

const (
	PillarSleep               Pillar = "sleep"
	PillarStress              Pillar = "stress"
	PillarPhysicalActivity    Pillar = "physical_activity"
	PillarNutrition           Pillar = "nutrition"
	PillarSocialConnections   Pillar = "social_connections"
	PillarCognitiveEngagement Pillar = "cognitive_engagement"
)

// Pillars перечисляет области в порядке отображения.
var Pillars = []Pillar{
	PillarSleep,
	PillarStress,
	PillarPhysicalActivity,
	PillarNutrition,
	PillarSocialConnections,
	PillarCognitiveEngagement,
}

var PillarLabels = map[Pillar]string{
	PillarSleep:               "Sleep",
	PillarStress:              "Stress",
	PillarPhysicalActivity:    "Physical activity",
	PillarNutrition:           "Nutrition",
	PillarSocialConnections:   "Social connections",
	PillarCognitiveEngagement: "Cognitive engagement",
}

// ColorCode цвет светофора для влияния на биологический возраст.
type ColorCode string

const (
	ColorGreen ColorCode = "green"
	ColorRed   ColorCode = "red"
)

// PillarScores содержит шесть оценок 0-100.
type PillarScores struct {
	Sleep               float64 `json:"sleep_score" yaml:"sleep_score"`
	Stress              float64 `json:"stress_score" yaml:"stress_score"`
	PhysicalActivity    float64 `json:"physical_activity_score" yaml:"physical_activity_score"`
	Nutrition           float64 `json:"nutrition_score" yaml:"nutrition_score"`
	SocialConnections   float64 `json:"social_connections_score" yaml:"social_connections_score"`
	CognitiveEngagement float64 `json:"cognitive_engagement_score" yaml:"cognitive_engagement_score"`
}

// Get возвращает оценку одной области.
func (p PillarScores) Get(pillar Pillar) float64 {
	switch pillar {
	case PillarSleep:
		return p.Sleep
	case PillarStress:
		return p.Stress
	case PillarPhysicalActivity:
		return p.PhysicalActivity
	case PillarNutrition:
		return p.Nutrition
	case PillarSocialConnections:
		return p.SocialConnections
	case PillarCognitiveEngagement:
		return p.CognitiveEngagement
	}
	return 0
}

// DailyScore результат расчёта за один день.
//
// BiologicalAgeImpact измеряется в днях: положительное значение означает
// более медленное старение, отрицательное более быстрое.
type DailyScore struct {
	LongevityImpactScore float64   `json:"longevity_impact_score" yaml:"longevity_impact_score"`
	BiologicalAgeImpact  float64   `json:"biological_age_impact" yaml:"biological_age_impact"`
	ColorCode            ColorCode `json:"color_code" yaml:"color_code"`
	PillarScores         `yaml:",inline"`
}

// DailyScoreRecord сохранённая оценка, уникальна по (UserID, Date).
type DailyScoreRecord struct {
	UserID     string `json:"user_id" yaml:"user_id"`
	Date       string `json:"date" yaml:"date"`
	DailyScore `yaml:",inline"`
	ComputedAt time.Time `json:"computed_at" yaml:"computed_at"`
}

// ScoreHistory сводка сохранённых оценок за период.
type ScoreHistory struct {
	UserID     string `json:"user_id" yaml:"user_id"`
	From       string `json:"from" yaml:"from"`
	To         string `json:"to" yaml:"to"`
	DaysScored int    `json:"days_scored" yaml:"days_scored"`

	AverageScore float64      `json:"average_longevity_impact_score" yaml:"average_longevity_impact_score"`
	MinScore     float64      `json:"min_longevity_impact_score" yaml:"min_longevity_impact_score"`
	MaxScore     float64      `json:"max_longevity_impact_score" yaml:"max_longevity_impact_score"`
	Pillars      PillarScores `json:"pillar_averages" yaml:"pillar_averages"`

	// CumulativeImpactDays сумма дневных влияний на биологический возраст.
	CumulativeImpactDays float64 `json:"cumulative_biological_age_impact" yaml:"cumulative_biological_age_impact"`
	GreenDays            int     `json:"green_days" yaml:"green_days"`
	RedDays              int     `json:"red_days" yaml:"red_days"`
	CurrentGreenStreak   int     `json:"current_green_streak" yaml:"current_green_streak"`

	Days []DailyScoreRecord `json:"days" yaml:"days"`
}

package domain

import (
	"fmt"
	"math"
	"time"
)

// DateLayout задаёт формат календарной даты для ключей оценок и метрик.
const DateLayout = "2006-01-02"

// ParseDate разбирает дату в формате YYYY-MM-DD.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t, nil
}

// SleepMetrics содержит данные о сне.
type SleepMetrics struct {
	TotalHours    *float64 `json:"total_hours,omitempty" yaml:"total_hours,omitempty"`
	REMPercentage *float64 `json:"rem_percentage,omitempty" yaml:"rem_percentage,omitempty"`
}

// StressMetrics содержит вариабельность пульса и самооценку стресса 1-10.
type StressMetrics struct {
	HRV         *float64 `json:"hrv,omitempty" yaml:"hrv,omitempty"`
	StressLevel *int     `json:"stress_level,omitempty" yaml:"stress_level,omitempty"`
}

// ActivityMetrics содержит данные об активности.
type ActivityMetrics struct {
	ActiveMinutes *int `json:"active_minutes,omitempty" yaml:"active_minutes,omitempty"`
	Steps         *int `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// NutritionMetrics содержит самооценку качества питания 1-10.
type NutritionMetrics struct {
	MealQualityScore *int `json:"meal_quality_score,omitempty" yaml:"meal_quality_score,omitempty"`
}

type SocialMetrics struct {
	InteractionQuality *int `json:"interaction_quality,omitempty" yaml:"interaction_quality,omitempty"`
	SocialTimeMinutes  *int `json:"social_time_minutes,omitempty" yaml:"social_time_minutes,omitempty"`
}

// CognitiveMetrics содержит время медитации и обучения.
type CognitiveMetrics struct {
	MeditationMinutes *int `json:"meditation_minutes,omitempty" yaml:"meditation_minutes,omitempty"`
	LearningMinutes   *int `json:"learning_minutes,omitempty" yaml:"learning_minutes,omitempty"`
}

// DailyMetrics описывает сырые данные пользователя за день.
// Любая из вложенных структур может отсутствовать.
type DailyMetrics struct {
	Sleep     *SleepMetrics     `json:"sleep,omitempty" yaml:"sleep,omitempty"`
	Stress    *StressMetrics    `json:"stress,omitempty" yaml:"stress,omitempty"`
	Activity  *ActivityMetrics  `json:"activity,omitempty" yaml:"activity,omitempty"`
	Nutrition *NutritionMetrics `json:"nutrition,omitempty" yaml:"nutrition,omitempty"`
	Social    *SocialMetrics    `json:"social,omitempty" yaml:"social,omitempty"`
	Cognitive *CognitiveMetrics `json:"cognitive,omitempty" yaml:"cognitive,omitempty"`
}

// Validate отклоняет значения вне допустимых диапазонов.
func (m DailyMetrics) Validate() error {
	if s := m.Sleep; s != nil {
		if err := checkFloat("sleep.total_hours", s.TotalHours, 0, 24); err != nil {
			return err
		}
		if err := checkFloat("sleep.rem_percentage", s.REMPercentage, 0, 100); err != nil {
			return err
		}
	}
	if s := m.Stress; s != nil {
		if s.HRV != nil && (!finite(*s.HRV) || *s.HRV < 0) {
			return fmt.Errorf("%w: stress.hrv must be a non-negative number", ErrInvalidMetrics)
		}
		if err := checkScale("stress.stress_level", s.StressLevel); err != nil {
			return err
		}
	}
	if a := m.Activity; a != nil {
		if err := checkNonNegative("activity.active_minutes", a.ActiveMinutes); err != nil {
			return err
		}
		if err := checkNonNegative("activity.steps", a.Steps); err != nil {
			return err
		}
	}
	if n := m.Nutrition; n != nil {
		if err := checkScale("nutrition.meal_quality_score", n.MealQualityScore); err != nil {
			return err
		}
	}
	if s := m.Social; s != nil {
		if err := checkScale("social.interaction_quality", s.InteractionQuality); err != nil {
			return err
		}
		if err := checkNonNegative("social.social_time_minutes", s.SocialTimeMinutes); err != nil {
			return err
		}
	}
	if c := m.Cognitive; c != nil {
		if err := checkNonNegative("cognitive.meditation_minutes", c.MeditationMinutes); err != nil {
			return err
		}
		if err := checkNonNegative("cognitive.learning_minutes", c.LearningMinutes); err != nil {
			return err
		}
	}
	return nil
}

func checkFloat(field string, v *float64, min, max float64) error {
	if v == nil {
		return nil
	}
	if !finite(*v) || *v < min || *v > max {
		return fmt.Errorf("%w: %s must be within [%g, %g]", ErrInvalidMetrics, field, min, max)
	}
	return nil
}

// finite отсекает NaN и бесконечности: сравнения с NaN всегда ложны.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkScale(field string, v *int) error {
	if v == nil {
		return nil
	}
	if *v < 1 || *v > 10 {
		return fmt.Errorf("%w: %s must be within [1, 10]", ErrInvalidMetrics, field)
	}
	return nil
}

func checkNonNegative(field string, v *int) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidMetrics, field)
	}
	return nil
}

// DailyMetricsEntry хранит сырые метрики по ключу (пользователь, дата).
type DailyMetricsEntry struct {
	UserID    string
	Date      string
	Metrics   DailyMetrics
	UpdatedAt time.Time
}

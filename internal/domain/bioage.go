package domain

// AgeDomain обозначает независимую оценку биологического возраста.
type AgeDomain string

const (
	AgeDomainLifestyle AgeDomain = "lifestyle"
	AgeDomainMetabolic AgeDomain = "metabolic"
	AgeDomainHormone   AgeDomain = "hormone"
)

// AgeDomains перечисляет домены в порядке весов.
var AgeDomains = []AgeDomain{AgeDomainLifestyle, AgeDomainMetabolic, AgeDomainHormone}

// AgeDomainLabels содержит названия оценок для пользователя.
// Метаболический возраст берётся из оценки питания.
var AgeDomainLabels = map[AgeDomain]string{
	AgeDomainLifestyle: "Lifestyle",
	AgeDomainMetabolic: "Nutrition",
	AgeDomainHormone:   "Hormone",
}

// DomainAge описывает возраст по одному домену в годах.
type DomainAge struct {
	Domain AgeDomain `json:"domain" yaml:"domain"`
	Age    float64   `json:"age" yaml:"age"`
}

// CompositeAgeInput содержит хронологический возраст и необязательные возрасты доменов.
type CompositeAgeInput struct {
	ChronologicalAge float64  `json:"chronological_age" yaml:"chronological_age"`
	LifestyleAge     *float64 `json:"lifestyle_age,omitempty" yaml:"lifestyle_age,omitempty"`
	MetabolicAge     *float64 `json:"metabolic_age,omitempty" yaml:"metabolic_age,omitempty"`
	HormoneAge       *float64 `json:"hormone_age,omitempty" yaml:"hormone_age,omitempty"`
}

// Present возвращает заданные возрасты доменов в порядке AgeDomains.
func (in CompositeAgeInput) Present() []DomainAge {
	out := make([]DomainAge, 0, 3)
	if in.LifestyleAge != nil {
		out = append(out, DomainAge{Domain: AgeDomainLifestyle, Age: *in.LifestyleAge})
	}
	if in.MetabolicAge != nil {
		out = append(out, DomainAge{Domain: AgeDomainMetabolic, Age: *in.MetabolicAge})
	}
	if in.HormoneAge != nil {
		out = append(out, DomainAge{Domain: AgeDomainHormone, Age: *in.HormoneAge})
	}
	return out
}

// OverallBiologicalAgeResult описывает общий биологический возраст.
// Delta = хронологический минус общий: положительное значение означает "моложе".
type OverallBiologicalAgeResult struct {
	OverallAge          float64               `json:"overall_age" yaml:"overall_age"`
	Delta               float64               `json:"delta" yaml:"delta"`
	Confidence          int                   `json:"confidence" yaml:"confidence"`
	ContributingDomains []AgeDomain           `json:"contributing_domains" yaml:"contributing_domains"`
	MissingDomains      []AgeDomain           `json:"missing_domains" yaml:"missing_domains"`
	Weights             map[AgeDomain]float64 `json:"weights" yaml:"weights"`
	DisplayMessage      string                `json:"display_message" yaml:"display_message"`
}

// LifestyleAgeResult описывает возраст, рассчитанный по индексу образа жизни.
type LifestyleAgeResult struct {
	ChronologicalAge float64 `json:"chronological_age" yaml:"chronological_age"`
	Score            float64 `json:"lis_score" yaml:"lis_score"`
	Offset           float64 `json:"offset_years" yaml:"offset_years"`
	LifestyleAge     float64 `json:"lifestyle_age" yaml:"lifestyle_age"`
}

package score

import (
	"math"
	"strings"

	"vitality-score/internal/domain"
)

// DomainBaseWeights перенормируются по доступным доменам.
var DomainBaseWeights = map[domain.AgeDomain]float64{
	domain.AgeDomainLifestyle: 0.50,
	domain.AgeDomainMetabolic: 0.30,
	domain.AgeDomainHormone:   0.20,
}

// confidenceByDomains индексируется числом доступных доменов.
var confidenceByDomains = [...]int{0, 60, 80, 95}

// CompositeBiologicalAge объединяет доступные возрасты доменов в один.
// ok == false, если ни одного домена нет: вместо числа показываем "недостаточно данных".
func CompositeBiologicalAge(in domain.CompositeAgeInput) (domain.OverallBiologicalAgeResult, bool) {
	present := in.Present()
	if len(present) == 0 {
		return domain.OverallBiologicalAgeResult{}, false
	}

	var weightSum float64
	for _, da := range present {
		weightSum += DomainBaseWeights[da.Domain]
	}

	weights := make(map[domain.AgeDomain]float64, len(present))
	contributing := make([]domain.AgeDomain, 0, len(present))
	var overall float64
	for _, da := range present {
		w := DomainBaseWeights[da.Domain] / weightSum
		weights[da.Domain] = w
		contributing = append(contributing, da.Domain)
		overall += da.Age * w
	}
	overall = round1(overall)

	return domain.OverallBiologicalAgeResult{
		OverallAge:          overall,
		Delta:               round1(in.ChronologicalAge - overall),
		Confidence:          confidenceByDomains[len(present)],
		ContributingDomains: contributing,
		MissingDomains:      missingDomains(weights),
		Weights:             weights,
		DisplayMessage:      displayMessage(contributing),
	}, true
}

func missingDomains(present map[domain.AgeDomain]float64) []domain.AgeDomain {
	missing := make([]domain.AgeDomain, 0, len(domain.AgeDomains))
	for _, d := range domain.AgeDomains {
		if _, ok := present[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}

func displayMessage(contributing []domain.AgeDomain) string {
	switch len(contributing) {
	case len(domain.AgeDomains):
		return "Based on all assessments"
	case 1:
		return "Based on " + domain.AgeDomainLabels[contributing[0]] + " assessment"
	}
	labels := make([]string, 0, len(contributing))
	for _, d := range contributing {
		labels = append(labels, domain.AgeDomainLabels[d])
	}
	return "Based on " + strings.Join(labels, " + ") + " assessments"
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

package score

import (
	"fmt"
	"html"
	"strings"

	"vitality-score/internal/domain"
)

// FormatDailyScore формирует HTML сообщение с оценкой дня для Telegram.
func FormatDailyScore(record domain.DailyScoreRecord) string {
	var b strings.Builder

	marker := "🟢"
	if record.ColorCode == domain.ColorRed {
		marker = "🔴"
	}

	b.WriteString(fmt.Sprintf("🧬 <b>Daily longevity score · %s</b>\n", html.EscapeString(record.Date)))
	b.WriteString(fmt.Sprintf("%s <b>%.1f</b>/100\n", marker, record.LongevityImpactScore))
	b.WriteString(fmt.Sprintf("Biological age impact: <b>%s</b>\n", formatImpact(record.BiologicalAgeImpact)))

	b.WriteString("\n<b>Pillars</b>")
	for _, pillar := range domain.Pillars {
		b.WriteString(fmt.Sprintf("\n• %s: %.0f", html.EscapeString(domain.PillarLabels[pillar]), record.Get(pillar)))
	}

	if weakest, ok := weakestPillar(record.PillarScores); ok {
		b.WriteString(fmt.Sprintf("\n\nFocus for tomorrow: <i>%s</i>", html.EscapeString(strings.ToLower(domain.PillarLabels[weakest]))))
	}

	return strings.TrimSpace(b.String())
}

func formatImpact(days float64) string {
	switch {
	case days > 0:
		return fmt.Sprintf("%.2f days younger", days)
	case days < 0:
		return fmt.Sprintf("%.2f days older", -days)
	default:
		return "neutral"
	}
}

// weakestPillar возвращает область с минимальной оценкой ниже нейтральной.
func weakestPillar(p domain.PillarScores) (domain.Pillar, bool) {
	var (
		weakest domain.Pillar
		lowest  = float64(neutralScore)
	)
	for _, pillar := range domain.Pillars {
		if v := p.Get(pillar); v < lowest {
			lowest = v
			weakest = pillar
		}
	}
	return weakest, weakest != ""
}

package telegram

import "strings"

const messageLimit = 4096

// SplitMessage делит текст на части не длиннее limit рун, собирая их из целых строк.
// Строка длиннее limit режется по рунам.
func SplitMessage(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 {
		limit = messageLimit
	}

	var (
		parts   []string
		current []rune
	)
	flush := func() {
		if chunk := strings.Trim(string(current), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		for len(runes) > limit {
			flush()
			parts = append(parts, string(runes[:limit]))
			runes = runes[limit:]
		}
		need := len(runes)
		if len(current) > 0 {
			need++
		}
		if len(current)+need > limit {
			flush()
		}
		if len(current) > 0 {
			current = append(current, '\n')
		}
		current = append(current, runes...)
	}
	flush()
	return parts
}

package llm

import "strings"

// Sanitize reduces a raw backend response to a bare category candidate. It drops
// code fence lines and markdown emphasis, keeps the first non-empty line, removes
// a leading "Category:" style label, and trims quotes and punctuation.
func Sanitize(raw string) string {
	var line string
	for _, candidate := range strings.Split(raw, "\n") {
		candidate = strings.TrimSpace(candidate)
		if strings.HasPrefix(candidate, "```") {
			continue
		}
		candidate = strings.TrimSpace(stripMarkup(candidate))
		if candidate == "" {
			continue
		}
		line = candidate
		break
	}

	if idx := strings.LastIndex(line, ":"); idx >= 0 {
		line = line[idx+1:]
	}

	return strings.Trim(line, " \t\r\"'.,;:!?()[]{}<>")
}

func stripMarkup(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '*', '_', '`', '#':
			return -1
		}
		return r
	}, s)
}

package advisor

import (
	"strings"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
)

// ReportSymbols lists the instruments held in the report's exposure section.
func ReportSymbols(r *domain.RiskReport) []string {
	out := make([]string, 0, len(r.Exposure.Allocations))
	for _, a := range r.Exposure.Allocations {
		out = append(out, strings.ToUpper(a.Symbol))
	}
	return out
}

// ExtractSymbols scans the user message for mentions of the known symbols.
// Returns deduplicated uppercase symbols in order of first mention.
func ExtractSymbols(text string, known []string) []string {
	if len(known) == 0 {
		return nil
	}
	set := make(map[string]bool, len(known))
	for _, k := range known {
		set[strings.ToUpper(k)] = true
	}

	upper := strings.ToUpper(text)
	words := strings.FieldsFunc(upper, func(r rune) bool {
		return !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.')
	})

	seen := make(map[string]bool)
	var result []string
	for _, w := range words {
		w = strings.Trim(w, ".")
		if set[w] && !seen[w] {
			seen[w] = true
			result = append(result, w)
		}
	}
	return result
}

package matching

import (
	"fmt"
	"strings"
)

// FormatMatchesForDisplay renders matches as a numbered chat-friendly list.
func FormatMatchesForDisplay(matches []Match) string {
	return formatRecords(Records(matches))
}

// Display renders the ranked matches the same way as FormatMatchesForDisplay.
func (r Result) Display() string {
	return formatRecords(r.Matches)
}

func formatRecords(records []MatchRecord) string {
	if len(records) == 0 {
		return "No matching bonds found."
	}

	lines := []string{"Found these matches:\n"}
	for i, m := range records {
		reasons := "Partial match"
		if len(m.MatchReasons) > 0 {
			reasons = strings.Join(m.MatchReasons, ", ")
		}
		lines = append(lines,
			fmt.Sprintf("%d. **%s** %s%% %d (%s)", i+1, m.Ticker, formatRate(m.Coupon), m.MaturityYear, m.Country),
			fmt.Sprintf("   Score: %.0f - %s", m.Score, reasons),
		)
	}

	return strings.Join(lines, "\n")
}

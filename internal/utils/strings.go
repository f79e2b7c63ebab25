package utils

import "strings"

// ParseCSV splits a comma-separated string and returns trimmed non-empty values.
// Returns nil for empty/whitespace-only input.
// Used for list-valued query parameters such as ?isins=A,B,C.
func ParseCSV(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

// NormalizeISIN upper-cases and trims an ISIN for storage and lookup.
func NormalizeISIN(isin string) string {
	return strings.ToUpper(strings.TrimSpace(isin))
}

// NormalizeISINs normalizes every ISIN and drops blanks and duplicates, keeping
// first-seen order.
func NormalizeISINs(isins []string) []string {
	seen := make(map[string]bool, len(isins))
	out := make([]string, 0, len(isins))
	for _, isin := range isins {
		n := NormalizeISIN(isin)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

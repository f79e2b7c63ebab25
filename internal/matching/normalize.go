package matching

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeQuery folds compatibility characters (full-width digits, the
// full-width percent sign, ligatures) to their plain forms and trims the result.
// ASCII input passes through unchanged.
func normalizeQuery(text string) string {
	return strings.TrimSpace(norm.NFKC.String(text))
}

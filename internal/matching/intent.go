package matching

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Action is the trading verb detected in a command.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionQuery Action = "query"
)

// QuantityType describes how the size of a trade was expressed.
type QuantityType string

const (
	QuantityPar     QuantityType = "par"     // face value, QuantityValue holds the amount when given
	QuantityPercent QuantityType = "percent" // percent of portfolio/NAV/AUM
	QuantityAll     QuantityType = "all"
	QuantityHalf    QuantityType = "half"
)

// Intent is a trade command split into what to do, how much, and which bond.
type Intent struct {
	Action        Action       `json:"action" msgpack:"action"`
	BondQuery     string       `json:"bond_query" msgpack:"bond_query"`
	QuantityType  QuantityType `json:"quantity_type" msgpack:"quantity_type"`
	QuantityValue *float64     `json:"quantity_value" msgpack:"quantity_value"`
	RawInput      string       `json:"raw_input" msgpack:"raw_input"`
}

var (
	allWordPattern     = regexp.MustCompile(`\ball\b`)
	halfWordPattern    = regexp.MustCompile(`\bhalf\b`)
	percentOfPattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%?\s*(?:of\s+)?(?:portfolio|nav|aum)`)
	kmAmountPattern    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([km])\b`)
	plainAmountPattern = regexp.MustCompile(`\b(\d{1,3}(?:,\d{3})*(?:\.\d+)?)\b`)

	stripActionPattern        = regexp.MustCompile(`^(buy|sell|purchase|reduce)\s+`)
	stripKMPattern            = regexp.MustCompile(`\d+(?:\.\d+)?\s*[km]\b`)
	stripLongNumberPattern    = regexp.MustCompile(`\b\d{4,}\b`)
	stripGroupedNumberPattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d+)?`)
	stripAllHalfPattern       = regexp.MustCompile(`\ball\b|\bhalf\b`)
	stripPercentOfPattern     = regexp.MustCompile(`%?\s*(?:of\s+)?(?:portfolio|nav|aum)`)
	whitespacePattern         = regexp.MustCompile(`\s+`)
)

// Numbers below this are coupons or years, not par amounts.
const minPlainParAmount = 1000

// ParseTradeIntent classifies a trade command.
//
// Examples:
//   - "buy 500k colombia 61"         -> buy, par 500000, "colombia 61"
//   - "sell half mexico"             -> sell, half, "mexico"
//   - "sell all PEMEX 27"            -> sell, all, "pemex 27"
//   - "buy 3% of portfolio in chile" -> buy, percent 3, "3 in chile"
func ParseTradeIntent(text string) Intent {
	normalized := norm.NFKC.String(text)
	lower := strings.ToLower(strings.TrimSpace(normalized))

	intent := Intent{
		Action:   parseAction(lower),
		RawInput: text,
	}
	intent.QuantityType, intent.QuantityValue = parseQuantity(lower, normalized)
	intent.BondQuery = residualBondQuery(lower)

	return intent
}

func parseAction(lower string) Action {
	switch {
	case strings.HasPrefix(lower, "buy") || strings.Contains(lower, "purchase"):
		return ActionBuy
	case strings.HasPrefix(lower, "sell") || strings.Contains(lower, "reduce"):
		return ActionSell
	default:
		return ActionQuery
	}
}

// parseQuantity works on the lower-cased command, except for the plain-number tier
// which scans the original text.
func parseQuantity(lower, original string) (QuantityType, *float64) {
	if allWordPattern.MatchString(lower) {
		return QuantityAll, nil
	}
	if halfWordPattern.MatchString(lower) {
		return QuantityHalf, nil
	}

	if m := percentOfPattern.FindStringSubmatch(lower); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return QuantityPercent, &v
		}
	}

	if m := kmAmountPattern.FindStringSubmatch(lower); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return QuantityPar, nil
		}
		multiplier := 1_000_000.0
		if m[2] == "k" {
			multiplier = 1_000
		}
		amount := v * multiplier
		return QuantityPar, &amount
	}

	if m := plainAmountPattern.FindStringSubmatch(original); m != nil {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err == nil && v >= minPlainParAmount {
			return QuantityPar, &v
		}
	}

	return QuantityPar, nil
}

// residualBondQuery strips the verb and sizing tokens, leaving the bond reference.
// K/M amounts go before bare digit runs so "500k" is not half-eaten by the
// four-digit rule.
func residualBondQuery(lower string) string {
	q := stripActionPattern.ReplaceAllString(lower, "")
	q = stripKMPattern.ReplaceAllString(q, "")
	q = stripLongNumberPattern.ReplaceAllString(q, "")
	q = stripGroupedNumberPattern.ReplaceAllString(q, "")
	q = stripAllHalfPattern.ReplaceAllString(q, "")
	q = stripPercentOfPattern.ReplaceAllString(q, "")
	q = whitespacePattern.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}

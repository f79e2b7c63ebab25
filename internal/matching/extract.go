package matching

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Field extractors. Each one pulls a single typed field out of free text and reports
// whether it found one. They never panic, whatever the input. The tiers inside each
// extractor are tried in a fixed order and the first hit wins; the order is what keeps
// "3 1/4" from being read as a maturity and "61" from being read as a coupon.

// \b is ASCII-only in RE2, so an accented letter ends a word: "colômbia" still
// hits the short "col" alias.
var (
	isinPattern = regexp.MustCompile(`\b([A-Z]{2}[A-Z0-9]{10})\b`)

	couponPercentPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	couponFractionPattern = regexp.MustCompile(`(\d+)\s+(\d)/(\d)`)
	couponDecimalPattern  = regexp.MustCompile(`\b(\d+\.\d+)\b`)

	yearFullPattern       = regexp.MustCompile(`\b(20\d{2})\b`)
	yearApostrophePattern = regexp.MustCompile(`'(\d{2})\b`)
	yearDatePattern       = regexp.MustCompile(`\d{1,2}/\d{1,2}/(\d{2})\b`)
	yearTrailingPattern   = regexp.MustCompile(`\b(\d{2})\s*$`)

	tickerPattern = regexp.MustCompile(`\b([A-Z]{3,10}(?:\s+\d)?)\b`)
)

const (
	// Bare decimals outside this range are treated as prices, amounts or years.
	minPlausibleCoupon = 0.5
	maxPlausibleCoupon = 15.0

	// Bare two-digit suffixes at or above this value are read as 20yy, anything
	// below as 21yy: chat references to maturities always point forward.
	trailingYearPivot = 24
)

// ExtractISIN returns the first ISIN-shaped token (two letters followed by ten
// alphanumerics) in text, upper-cased.
func ExtractISIN(text string) (string, bool) {
	m := isinPattern.FindStringSubmatch(strings.ToUpper(text))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractCoupon returns the coupon rate referenced in text.
//
// Precedence:
//  1. percent form: "3.25%", "3 %"
//  2. mixed fraction: "3 1/4"
//  3. the first bare decimal, accepted only when it lies in [0.5, 15]
func ExtractCoupon(text string) (float64, bool) {
	if m := couponPercentPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v, true
		}
	}

	if m := couponFractionPattern.FindStringSubmatch(text); m != nil {
		whole, errWhole := strconv.Atoi(m[1])
		num, _ := strconv.Atoi(m[2])
		denom, _ := strconv.Atoi(m[3])
		if errWhole == nil && denom != 0 {
			return float64(whole) + float64(num)/float64(denom), true
		}
	}

	if m := couponDecimalPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v >= minPlausibleCoupon && v <= maxPlausibleCoupon {
			return v, true
		}
	}

	return 0, false
}

// ExtractYear returns the maturity year referenced in text, resolving two-digit
// years against the current century.
func ExtractYear(text string) (int, bool) {
	return ExtractYearAt(text, time.Now())
}

// ExtractYearAt is ExtractYear with an explicit reference time.
//
// Precedence:
//  1. four-digit year starting with 20: "2061"
//  2. apostrophe year: "'61"
//  3. date suffix: "05/15/61"
//  4. two digits at the very end of the trimmed text: "colombia 61"
func ExtractYearAt(text string, now time.Time) (int, bool) {
	century := (now.Year() / 100) * 100

	if m := yearFullPattern.FindStringSubmatch(text); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, true
	}

	if m := yearApostrophePattern.FindStringSubmatch(text); m != nil {
		yy, _ := strconv.Atoi(m[1])
		// Two digits never parse negative, so the rollback branch does not fire.
		if yy >= 0 {
			return century + yy, true
		}
		return century - 100 + yy, true
	}

	if m := yearDatePattern.FindStringSubmatch(text); m != nil {
		yy, _ := strconv.Atoi(m[1])
		return century + yy, true
	}

	if m := yearTrailingPattern.FindStringSubmatch(strings.TrimSpace(text)); m != nil {
		yy, _ := strconv.Atoi(m[1])
		if yy >= trailingYearPivot {
			return 2000 + yy, true
		}
		return 2100 + yy, true
	}

	return 0, false
}

// ExtractCountry resolves a country nickname in text ("mex", "ksa", "dom rep") to its
// canonical name using the ordered alias table.
func ExtractCountry(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, a := range countryAliases {
		if a.boundary != nil {
			if a.boundary.MatchString(lower) {
				return a.country, true
			}
			continue
		}
		if strings.Contains(lower, a.alias) {
			return a.country, true
		}
	}
	return "", false
}

// ExtractTickerPart returns the first ticker-like run (3-10 letters, optionally a
// space and one digit) in the upper-cased text. It is a weak signal only.
func ExtractTickerPart(text string) (string, bool) {
	m := tickerPattern.FindStringSubmatch(strings.ToUpper(text))
	if m == nil {
		return "", false
	}
	return m[1], true
}

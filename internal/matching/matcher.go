// Package matching resolves free-text bond references ("3% colombia 61", "sell half
// mexico", an ISIN) to instruments in a caller-supplied candidate pool.
//
// The package is pure computation: no I/O, no shared mutable state. A Matcher is
// immutable once constructed and may be used from any number of goroutines.
package matching

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Score thresholds.
const (
	// MinimumThreshold is the lowest score a candidate needs to be returned at all.
	MinimumThreshold = 30.0

	// ConfidentThreshold is the score the top match needs to be auto-selected.
	ConfidentThreshold = 70.0

	// AmbiguityMargin is how far ahead of the runner-up the top match must be
	// for the result to count as unambiguous.
	AmbiguityMargin = 10.0

	// DefaultTopN caps result lists when the caller does not say otherwise.
	DefaultTopN = 5

	// ExactISINScore is awarded for the ISIN short-circuit.
	ExactISINScore = 100.0
)

// Points per signal.
const (
	pointsCouponExact      = 30.0
	pointsCouponClose      = 25.0
	pointsCouponNear       = 15.0
	pointsYearExact        = 30.0
	pointsYearOffByOne     = 15.0
	pointsCountry          = 25.0
	pointsTicker           = 15.0
	pointsTickerPartial    = 10.0
	pointsPerDescWord      = 3.0
	maxDescriptionBonus    = 10.0
	confidentCandidatePool = 3
)

// Match is a candidate together with the score it earned and the reasons that fired,
// in the order they were found.
type Match struct {
	Candidate
	Score        float64
	MatchReasons []string
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger attaches a logger used for debug tracing of scoring passes.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Matcher) {
		m.log = log.With().Str("component", "bond_matcher").Logger()
	}
}

// WithClock overrides the reference time used to resolve two-digit years.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) {
		if now != nil {
			m.now = now
		}
	}
}

// Matcher scores a fixed pool of bond candidates against free-text queries.
type Matcher struct {
	candidates []Candidate
	now        func() time.Time
	log        zerolog.Logger
}

// NewMatcher normalizes the records into a private candidate pool. An empty or nil
// pool is valid; every query against it simply returns no matches.
func NewMatcher(records []CandidateRecord, opts ...Option) *Matcher {
	m := newMatcher(opts)
	m.candidates = normalizeCandidatesAt(records, m.now())
	return m
}

// NewMatcherFromCandidates builds a Matcher over already-typed candidates. The slice
// is copied; negative coupons or years are clamped to zero and a blank country
// becomes DefaultCountry.
func NewMatcherFromCandidates(candidates []Candidate, opts ...Option) *Matcher {
	m := newMatcher(opts)
	m.candidates = make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Coupon < 0 || math.IsNaN(c.Coupon) {
			c.Coupon = 0
		}
		if c.MaturityYear < 0 {
			c.MaturityYear = 0
		}
		if c.Country == "" {
			c.Country = DefaultCountry
		}
		m.candidates = append(m.candidates, c)
	}
	return m
}

func newMatcher(opts []Option) *Matcher {
	m := &Matcher{
		now: time.Now,
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Size returns the number of candidates in the pool.
func (m *Matcher) Size() int {
	return len(m.candidates)
}

// queryFields are the signals extracted from the query side.
type queryFields struct {
	text    string
	coupon  float64
	year    int
	country string
	ticker  string

	hasCoupon, hasYear, hasCountry, hasTicker bool
}

// Match ranks the pool against query and returns at most topN matches scoring at
// least MinimumThreshold, best first. Ties keep pool order. topN <= 0 means
// DefaultTopN.
//
// A query carrying the ISIN of a pool member returns exactly that bond with
// ExactISINScore, whatever else the query says.
func (m *Matcher) Match(query string, topN int) []Match {
	if topN <= 0 {
		topN = DefaultTopN
	}

	q := normalizeQuery(query)
	if q == "" {
		return []Match{}
	}

	if isin, ok := ExtractISIN(q); ok {
		for _, c := range m.candidates {
			if strings.ToUpper(c.ISIN) == isin {
				m.log.Debug().Str("isin", isin).Msg("Exact ISIN match")
				return []Match{{Candidate: c, Score: ExactISINScore, MatchReasons: []string{"Exact ISIN match"}}}
			}
		}
	}

	fields := queryFields{text: q}
	fields.coupon, fields.hasCoupon = ExtractCoupon(q)
	fields.year, fields.hasYear = ExtractYearAt(q, m.now())
	fields.country, fields.hasCountry = ExtractCountry(q)
	fields.ticker, fields.hasTicker = ExtractTickerPart(q)

	matches := make([]Match, 0)
	for _, c := range m.candidates {
		score, reasons := scoreCandidate(c, fields)
		if score >= MinimumThreshold {
			matches = append(matches, Match{Candidate: c, Score: score, MatchReasons: reasons})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	m.log.Debug().
		Str("query", q).
		Int("candidates", len(m.candidates)).
		Int("above_threshold", len(matches)).
		Msg("Scored bond candidates")

	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches
}

// ConfidentMatch returns the single best match when it clears ConfidentThreshold and
// no runner-up is within AmbiguityMargin of it. Near ties are never auto-resolved.
func (m *Matcher) ConfidentMatch(query string) (Match, bool) {
	matches := m.Match(query, confidentCandidatePool)
	if len(matches) == 0 {
		return Match{}, false
	}

	top := matches[0]
	if top.Score < ConfidentThreshold {
		return Match{}, false
	}
	if len(matches) > 1 && matches[1].Score >= top.Score-AmbiguityMargin {
		return Match{}, false
	}
	return top, true
}

// scoreCandidate applies the additive rubric. A signal only counts when both the
// query and the candidate carry it; absence on either side scores nothing.
func scoreCandidate(c Candidate, q queryFields) (float64, []string) {
	var score float64
	reasons := []string{}

	if q.hasCoupon && c.Coupon > 0 {
		diff := math.Abs(c.Coupon - q.coupon)
		switch {
		case diff < 0.01:
			score += pointsCouponExact
			reasons = append(reasons, "Coupon: "+formatRate(c.Coupon)+"%")
		case diff < 0.25:
			score += pointsCouponClose
			reasons = append(reasons, "Coupon ~"+formatRate(c.Coupon)+"%")
		case diff < 0.5:
			score += pointsCouponNear
			reasons = append(reasons, "Coupon close: "+formatRate(c.Coupon)+"%")
		}
	}

	if q.hasYear && c.MaturityYear > 0 {
		switch {
		case c.MaturityYear == q.year:
			score += pointsYearExact
			reasons = append(reasons, "Maturity: "+strconv.Itoa(q.year))
		case c.MaturityYear-q.year == 1 || q.year-c.MaturityYear == 1:
			score += pointsYearOffByOne
			reasons = append(reasons, "Maturity ~"+strconv.Itoa(c.MaturityYear))
		}
	}

	if q.hasCountry && c.Country != "" && strings.EqualFold(q.country, c.Country) {
		score += pointsCountry
		reasons = append(reasons, "Country: "+c.Country)
	}

	if q.hasTicker && c.Ticker != "" {
		ticker := strings.ToUpper(c.Ticker)
		queryTicker := strings.ToUpper(q.ticker)
		switch {
		case strings.Contains(ticker, queryTicker):
			score += pointsTicker
			reasons = append(reasons, "Ticker: "+c.Ticker)
		case strings.Contains(ticker, prefix(queryTicker, 4)):
			score += pointsTickerPartial
			reasons = append(reasons, "Ticker partial: "+c.Ticker)
		}
	}

	if bonus := descriptionBonus(c.Description, q.text); bonus > 0 {
		score += bonus
		if len(reasons) == 0 {
			reasons = append(reasons, "Description match")
		}
	}

	return score, reasons
}

// descriptionBonus awards points for every query word longer than two characters
// that appears in the candidate description.
func descriptionBonus(description, query string) float64 {
	desc := strings.ToLower(description)
	var hits int
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) > 2 && strings.Contains(desc, w) {
			hits++
		}
	}
	return math.Min(maxDescriptionBonus, float64(hits)*pointsPerDescWord)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// formatRate prints a rate with at least one decimal: 3.25 -> "3.25", 5 -> "5.0".
func formatRate(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}

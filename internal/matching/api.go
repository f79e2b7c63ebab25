package matching

// MatchRecord is the wire form of a Match. Every field is a primitive or a list of
// strings so it travels over any RPC boundary unchanged.
type MatchRecord struct {
	ISIN         string   `json:"isin" msgpack:"isin"`
	Ticker       string   `json:"ticker" msgpack:"ticker"`
	Description  string   `json:"description" msgpack:"description"`
	Country      string   `json:"country" msgpack:"country"`
	Coupon       float64  `json:"coupon" msgpack:"coupon"`
	MaturityYear int      `json:"maturity_year" msgpack:"maturity_year"`
	Score        float64  `json:"score" msgpack:"score"`
	MatchReasons []string `json:"match_reasons" msgpack:"match_reasons"`
	Price        *float64 `json:"price" msgpack:"price"`
	Accrued      *float64 `json:"accrued" msgpack:"accrued"`
	DirtyPrice   float64  `json:"dirty_price" msgpack:"dirty_price"`
}

// Record converts the match to its wire form.
func (m Match) Record() MatchRecord {
	reasons := make([]string, len(m.MatchReasons))
	copy(reasons, m.MatchReasons)

	return MatchRecord{
		ISIN:         m.ISIN,
		Ticker:       m.Ticker,
		Description:  m.Description,
		Country:      m.Country,
		Coupon:       m.Coupon,
		MaturityYear: m.MaturityYear,
		Score:        m.Score,
		MatchReasons: reasons,
		Price:        m.Price,
		Accrued:      m.Accrued,
		DirtyPrice:   m.DirtyPrice(),
	}
}

// Records converts a list of matches, always returning a non-nil slice.
func Records(matches []Match) []MatchRecord {
	out := make([]MatchRecord, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Record())
	}
	return out
}

// Result is the outcome of resolving a trade command against a pool.
type Result struct {
	Intent         Intent        `json:"intent" msgpack:"intent"`
	Matches        []MatchRecord `json:"matches" msgpack:"matches"`
	ConfidentMatch *MatchRecord  `json:"confident_match" msgpack:"confident_match"`
}

// MatchWithIntent parses query as a trade command and matches its bond reference
// against the pool.
func (m *Matcher) MatchWithIntent(query string, topN int) Result {
	intent := ParseTradeIntent(query)

	result := Result{
		Intent:  intent,
		Matches: Records(m.Match(intent.BondQuery, topN)),
	}
	if best, ok := m.ConfidentMatch(intent.BondQuery); ok {
		rec := best.Record()
		result.ConfidentMatch = &rec
	}
	return result
}

// MatchBond is a one-shot match of query against records with no intent parsing.
func MatchBond(query string, records []CandidateRecord) []MatchRecord {
	return Records(NewMatcher(records).Match(query, DefaultTopN))
}

// MatchBondWithIntent parses query as a trade command, builds a matcher over records
// and returns the intent together with the ranked and confident matches. This is the
// entry point for callers holding raw user text.
func MatchBondWithIntent(query string, records []CandidateRecord, topN int, opts ...Option) Result {
	return NewMatcher(records, opts...).MatchWithIntent(query, topN)
}

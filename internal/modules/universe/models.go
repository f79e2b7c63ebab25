package universe

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/aristath/orca/internal/matching"
)

var (
	// ErrInvalidISIN is returned when a bond or holding has no usable ISIN.
	ErrInvalidISIN = errors.New("isin is required")
	// ErrNoSearchFilter is returned by Search when no filter is set.
	ErrNoSearchFilter = errors.New("search requires at least one filter")
)

// Bond is one row of the analytics universe.
// Coupon and MaturityYear are nil when the source did not know them; the matcher
// then derives them from Description.
type Bond struct {
	ISIN         string   `json:"isin" msgpack:"isin"`
	Ticker       string   `json:"ticker" msgpack:"ticker"`
	Description  string   `json:"description" msgpack:"description"`
	Country      string   `json:"country" msgpack:"country"`
	Coupon       *float64 `json:"coupon" msgpack:"coupon"`
	MaturityYear *int     `json:"maturity_year" msgpack:"maturity_year"`
	MaturityDate string   `json:"maturity_date,omitempty" msgpack:"maturity_date,omitempty"`
	Price        *float64 `json:"price" msgpack:"price"`
	Accrued      *float64 `json:"accrued" msgpack:"accrued"`
	UpdatedAt    *int64   `json:"-" msgpack:"-"` // Unix timestamp, converted to string in MarshalJSON
}

// MarshalJSON converts the Unix timestamp to RFC3339 at the API boundary.
func (b Bond) MarshalJSON() ([]byte, error) {
	type Alias Bond
	aux := &struct {
		UpdatedAt string `json:"updated_at,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(&b),
	}

	if b.UpdatedAt != nil {
		aux.UpdatedAt = time.Unix(*b.UpdatedAt, 0).UTC().Format(time.RFC3339)
	}

	return json.Marshal(aux)
}

// CandidateRecord converts the row to the matcher's loosely typed record. Unknown
// fields are left out rather than zeroed so the matcher can fill them itself.
func (b Bond) CandidateRecord() matching.CandidateRecord {
	rec := matching.CandidateRecord{
		"isin":        b.ISIN,
		"ticker":      b.Ticker,
		"description": b.Description,
		"country":     b.Country,
	}
	if b.Coupon != nil {
		rec["coupon"] = *b.Coupon
	}
	if b.MaturityYear != nil {
		rec["maturity_year"] = *b.MaturityYear
	}
	if b.MaturityDate != "" {
		rec["maturity_date"] = b.MaturityDate
	}
	if b.Price != nil {
		rec["price"] = *b.Price
	}
	if b.Accrued != nil {
		rec["accrued_interest"] = *b.Accrued
	}
	return rec
}

// CandidateRecords converts a list of rows, always returning a non-nil slice.
func CandidateRecords(bonds []Bond) []matching.CandidateRecord {
	out := make([]matching.CandidateRecord, 0, len(bonds))
	for _, b := range bonds {
		out = append(out, b.CandidateRecord())
	}
	return out
}

// Candidates normalizes rows into the matcher's typed pool. Missing coupons and
// maturities are derived from the description.
func Candidates(bonds []Bond) []matching.Candidate {
	return matching.NormalizeCandidates(CandidateRecords(bonds))
}

// SearchFilter narrows the analytics universe. Zero values mean "not set".
type SearchFilter struct {
	Country      string   `json:"country,omitempty" msgpack:"country,omitempty"`
	MaturityYear int      `json:"maturity_year,omitempty" msgpack:"maturity_year,omitempty"`
	Ticker       string   `json:"ticker,omitempty" msgpack:"ticker,omitempty"` // substring of ticker or description, case-insensitive
	Coupon       *float64 `json:"coupon,omitempty" msgpack:"coupon,omitempty"` // matched within couponTolerance
	Limit        int      `json:"limit,omitempty" msgpack:"limit,omitempty"`
}

// Empty reports whether no filter is set. Limit alone is not a filter.
func (f SearchFilter) Empty() bool {
	return strings.TrimSpace(f.Country) == "" && f.MaturityYear == 0 &&
		strings.TrimSpace(f.Ticker) == "" && f.Coupon == nil
}

// Holding is a position in a portfolio, by par amount.
type Holding struct {
	PortfolioID string  `json:"portfolio_id" msgpack:"portfolio_id"`
	ISIN        string  `json:"isin" msgpack:"isin"`
	ParAmount   float64 `json:"par_amount" msgpack:"par_amount"`
	UpdatedAt   int64   `json:"updated_at" msgpack:"updated_at"`
}

// WatchlistEntry is a bond a portfolio is watching but not holding.
type WatchlistEntry struct {
	PortfolioID string `json:"portfolio_id" msgpack:"portfolio_id"`
	ISIN        string `json:"isin" msgpack:"isin"`
	AddedAt     int64  `json:"added_at" msgpack:"added_at"`
}

// Package bondmatch resolves free-text trade commands against a candidate pool and
// keeps an audit trail of every request.
package bondmatch

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/aristath/orca/internal/matching"
)

// Source names the candidate pool a request is matched against.
type Source string

const (
	SourceAnalytics Source = "analytics" // the whole analytics universe
	SourceHoldings  Source = "holdings"  // bonds the portfolio holds
	SourceWatchlist Source = "watchlist" // bonds the portfolio watches
	SourceCustom    Source = "custom"    // bonds supplied with the request
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceAnalytics, SourceHoldings, SourceWatchlist, SourceCustom:
		return true
	}
	return false
}

var (
	// ErrEmptyQuery is returned when a request carries no text to match.
	ErrEmptyQuery = errors.New("query is required")
	// ErrUnknownSource is returned for a source outside the known set.
	ErrUnknownSource = errors.New("unknown source")
)

// Request is a bond match request.
type Request struct {
	Query       string                     `json:"query" msgpack:"query"`
	Source      Source                     `json:"source" msgpack:"source"`
	TopN        int                        `json:"top_n" msgpack:"top_n"`
	PortfolioID string                     `json:"portfolio_id" msgpack:"portfolio_id"`
	Bonds       []matching.CandidateRecord `json:"bonds,omitempty" msgpack:"bonds,omitempty"`
}

// Response is the outcome of a bond match request.
type Response struct {
	RequestID          string                 `json:"request_id" msgpack:"request_id"`
	Intent             matching.Intent        `json:"intent" msgpack:"intent"`
	Matches            []matching.MatchRecord `json:"matches" msgpack:"matches"`
	ConfidentMatch     *matching.MatchRecord  `json:"confident_match" msgpack:"confident_match"`
	Source             Source                 `json:"source" msgpack:"source"`
	TotalBondsSearched int                    `json:"total_bonds_searched" msgpack:"total_bonds_searched"`
	Display            string                 `json:"display" msgpack:"display"`
}

// AuditEntry is one row of the match_requests ledger.
type AuditEntry struct {
	ID            string   `json:"id" msgpack:"id"`
	PortfolioID   string   `json:"portfolio_id" msgpack:"portfolio_id"`
	Source        Source   `json:"source" msgpack:"source"`
	RawInput      string   `json:"raw_input" msgpack:"raw_input"`
	Action        string   `json:"action" msgpack:"action"`
	QuantityType  string   `json:"quantity_type" msgpack:"quantity_type"`
	QuantityValue *float64 `json:"quantity_value" msgpack:"quantity_value"`
	BondQuery     string   `json:"bond_query" msgpack:"bond_query"`
	MatchCount    int      `json:"match_count" msgpack:"match_count"`
	ConfidentISIN string   `json:"confident_isin,omitempty" msgpack:"confident_isin,omitempty"`
	CreatedAt     int64    `json:"-" msgpack:"created_at"` // Unix timestamp, converted to string in MarshalJSON
}

// MarshalJSON converts the Unix timestamp to RFC3339 at the API boundary.
func (e AuditEntry) MarshalJSON() ([]byte, error) {
	type Alias AuditEntry
	return json.Marshal(&struct {
		CreatedAt string `json:"created_at"`
		*Alias
	}{
		CreatedAt: time.Unix(e.CreatedAt, 0).UTC().Format(time.RFC3339),
		Alias:     (*Alias)(&e),
	})
}

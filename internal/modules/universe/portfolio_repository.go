package universe

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/orca/internal/utils"
	"github.com/rs/zerolog"
)

// DefaultPortfolioID is used when a caller does not name a portfolio.
const DefaultPortfolioID = "wnbf"

// PortfolioRepository handles holdings and watchlist database operations
type PortfolioRepository struct {
	portfolioDB *sql.DB // portfolio.db - holdings and watchlist tables
	log         zerolog.Logger
	now         func() time.Time
}

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(portfolioDB *sql.DB, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		portfolioDB: portfolioDB,
		log:         log.With().Str("repo", "portfolio").Logger(),
		now:         time.Now,
	}
}

func portfolioOrDefault(portfolioID string) string {
	if p := strings.TrimSpace(portfolioID); p != "" {
		return p
	}
	return DefaultPortfolioID
}

// SetHolding records the par amount held of isin, replacing any previous amount
func (r *PortfolioRepository) SetHolding(portfolioID, isin string, parAmount float64) error {
	isin = utils.NormalizeISIN(isin)
	if isin == "" {
		return ErrInvalidISIN
	}
	if parAmount < 0 {
		return fmt.Errorf("par amount must not be negative, got %v", parAmount)
	}

	_, err := r.portfolioDB.Exec(`
		INSERT INTO holdings (portfolio_id, isin, par_amount, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(portfolio_id, isin) DO UPDATE SET
			par_amount = excluded.par_amount,
			updated_at = excluded.updated_at
	`, portfolioOrDefault(portfolioID), isin, parAmount, r.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set holding: %w", err)
	}

	r.log.Debug().Str("portfolio_id", portfolioOrDefault(portfolioID)).Str("isin", isin).Float64("par_amount", parAmount).Msg("Holding set")
	return nil
}

// RemoveHolding deletes a holding. Removing an absent holding is not an error.
func (r *PortfolioRepository) RemoveHolding(portfolioID, isin string) error {
	_, err := r.portfolioDB.Exec("DELETE FROM holdings WHERE portfolio_id = ? AND isin = ?",
		portfolioOrDefault(portfolioID), utils.NormalizeISIN(isin))
	if err != nil {
		return fmt.Errorf("failed to remove holding: %w", err)
	}
	return nil
}

// ListHoldings returns the portfolio's holdings ordered by ISIN
func (r *PortfolioRepository) ListHoldings(portfolioID string) ([]Holding, error) {
	rows, err := r.portfolioDB.Query(`
		SELECT portfolio_id, isin, par_amount, updated_at
		FROM holdings WHERE portfolio_id = ? ORDER BY isin
	`, portfolioOrDefault(portfolioID))
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]Holding, 0)
	for rows.Next() {
		var h Holding
		if err := rows.Scan(&h.PortfolioID, &h.ISIN, &h.ParAmount, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// ListHoldingISINs returns the ISINs held by the portfolio
func (r *PortfolioRepository) ListHoldingISINs(portfolioID string) ([]string, error) {
	return r.listISINs("SELECT isin FROM holdings WHERE portfolio_id = ? ORDER BY isin", portfolioID)
}

// AddToWatchlist adds isin to the portfolio's watchlist. Adding twice keeps the
// original added_at.
func (r *PortfolioRepository) AddToWatchlist(portfolioID, isin string) error {
	isin = utils.NormalizeISIN(isin)
	if isin == "" {
		return ErrInvalidISIN
	}

	_, err := r.portfolioDB.Exec(`
		INSERT INTO watchlist (portfolio_id, isin, added_at) VALUES (?, ?, ?)
		ON CONFLICT(portfolio_id, isin) DO NOTHING
	`, portfolioOrDefault(portfolioID), isin, r.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

// RemoveFromWatchlist removes isin from the portfolio's watchlist
func (r *PortfolioRepository) RemoveFromWatchlist(portfolioID, isin string) error {
	_, err := r.portfolioDB.Exec("DELETE FROM watchlist WHERE portfolio_id = ? AND isin = ?",
		portfolioOrDefault(portfolioID), utils.NormalizeISIN(isin))
	if err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	return nil
}

// ListWatchlist returns the portfolio's watchlist ordered by ISIN
func (r *PortfolioRepository) ListWatchlist(portfolioID string) ([]WatchlistEntry, error) {
	rows, err := r.portfolioDB.Query(`
		SELECT portfolio_id, isin, added_at
		FROM watchlist WHERE portfolio_id = ? ORDER BY isin
	`, portfolioOrDefault(portfolioID))
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	entries := make([]WatchlistEntry, 0)
	for rows.Next() {
		var e WatchlistEntry
		if err := rows.Scan(&e.PortfolioID, &e.ISIN, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}
	return entries, nil
}

// ListWatchlistISINs returns the ISINs on the portfolio's watchlist
func (r *PortfolioRepository) ListWatchlistISINs(portfolioID string) ([]string, error) {
	return r.listISINs("SELECT isin FROM watchlist WHERE portfolio_id = ? ORDER BY isin", portfolioID)
}

func (r *PortfolioRepository) listISINs(query, portfolioID string) ([]string, error) {
	rows, err := r.portfolioDB.Query(query, portfolioOrDefault(portfolioID))
	if err != nil {
		return nil, fmt.Errorf("failed to query isins: %w", err)
	}
	defer rows.Close()

	isins := make([]string, 0)
	for rows.Next() {
		var isin string
		if err := rows.Scan(&isin); err != nil {
			return nil, fmt.Errorf("failed to scan isin: %w", err)
		}
		isins = append(isins, isin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating isins: %w", err)
	}
	return isins, nil
}

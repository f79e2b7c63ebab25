package bondmatch

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/orca/internal/utils"
	"github.com/rs/zerolog"
)

// History limits
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 1000
)

const auditColumns = `id, portfolio_id, source, raw_input, action, quantity_type,
quantity_value, bond_query, match_count, confident_isin, created_at`

// AuditRepository handles the match request ledger
type AuditRepository struct {
	ledgerDB *sql.DB // ledger.db - match_requests table
	log      zerolog.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(ledgerDB *sql.DB, log zerolog.Logger) *AuditRepository {
	return &AuditRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "match_audit").Logger(),
	}
}

// Record appends an entry to the ledger
func (r *AuditRepository) Record(entry AuditEntry) error {
	var confident sql.NullString
	if entry.ConfidentISIN != "" {
		confident = sql.NullString{String: entry.ConfidentISIN, Valid: true}
	}
	var quantity sql.NullFloat64
	if entry.QuantityValue != nil {
		quantity = sql.NullFloat64{Float64: *entry.QuantityValue, Valid: true}
	}

	_, err := r.ledgerDB.Exec(`
		INSERT INTO match_requests (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.PortfolioID,
		string(entry.Source),
		entry.RawInput,
		entry.Action,
		entry.QuantityType,
		quantity,
		entry.BondQuery,
		entry.MatchCount,
		confident,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record match request: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first. An empty portfolioID lists all portfolios.
func (r *AuditRepository) ListRecent(portfolioID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	query := "SELECT " + auditColumns + " FROM match_requests"
	args := []interface{}{}
	if portfolioID != "" {
		query += " WHERE portfolio_id = ?"
		args = append(args, portfolioID)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	done := utils.MeasureDBQuery("match_requests_recent", r.log)
	rows, err := r.ledgerDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query match requests: %w", err)
	}
	defer rows.Close()

	entries := make([]AuditEntry, 0)
	for rows.Next() {
		var (
			e         AuditEntry
			source    string
			quantity  sql.NullFloat64
			confident sql.NullString
		)
		err := rows.Scan(&e.ID, &e.PortfolioID, &source, &e.RawInput, &e.Action, &e.QuantityType,
			&quantity, &e.BondQuery, &e.MatchCount, &confident, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match request: %w", err)
		}
		e.Source = Source(source)
		if quantity.Valid {
			v := quantity.Float64
			e.QuantityValue = &v
		}
		if confident.Valid {
			e.ConfidentISIN = confident.String
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match requests: %w", err)
	}

	done(int64(len(entries)))
	return entries, nil
}

// DeleteOlderThan removes entries created before cutoff
func (r *AuditRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.ledgerDB.Exec("DELETE FROM match_requests WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old match requests: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

package universe

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/orca/internal/database"
	"github.com/aristath/orca/internal/matching"
	"github.com/aristath/orca/internal/utils"
	"github.com/rs/zerolog"
)

// Search limits
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 500
	couponTolerance    = 0.01
)

// bondColumns is the list of columns for the bonds table
// Column order must match scanBond
const bondColumns = `isin, ticker, description, country, coupon, maturity_year,
maturity_date, price, accrued, updated_at`

// BondRepository handles analytics universe database operations
type BondRepository struct {
	universeDB *sql.DB // universe.db - bonds table
	log        zerolog.Logger
	now        func() time.Time
}

// NewBondRepository creates a new bond repository
func NewBondRepository(universeDB *sql.DB, log zerolog.Logger) *BondRepository {
	return &BondRepository{
		universeDB: universeDB,
		log:        log.With().Str("repo", "bond").Logger(),
		now:        time.Now,
	}
}

// Upsert inserts or updates bonds by ISIN in a single transaction and returns the
// number written. Nothing is written when any bond lacks an ISIN.
func (r *BondRepository) Upsert(bonds []Bond) (int, error) {
	return r.write(bonds, false)
}

// ReplaceAll swaps the whole universe for bonds in a single transaction.
func (r *BondRepository) ReplaceAll(bonds []Bond) (int, error) {
	return r.write(bonds, true)
}

func (r *BondRepository) write(bonds []Bond, clearFirst bool) (int, error) {
	for i, b := range bonds {
		if utils.NormalizeISIN(b.ISIN) == "" {
			return 0, fmt.Errorf("bond %d: %w", i, ErrInvalidISIN)
		}
	}

	done := utils.MeasureDBQuery("bonds_upsert", r.log)
	now := r.now().Unix()

	err := database.WithTransaction(r.universeDB, func(tx *sql.Tx) error {
		if clearFirst {
			if _, err := tx.Exec("DELETE FROM bonds"); err != nil {
				return fmt.Errorf("failed to clear bonds: %w", err)
			}
		}

		stmt, err := tx.Prepare(`
			INSERT INTO bonds (` + bondColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(isin) DO UPDATE SET
				ticker = excluded.ticker,
				description = excluded.description,
				country = excluded.country,
				coupon = excluded.coupon,
				maturity_year = excluded.maturity_year,
				maturity_date = excluded.maturity_date,
				price = excluded.price,
				accrued = excluded.accrued,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare bond upsert: %w", err)
		}
		defer stmt.Close()

		for _, b := range bonds {
			country := strings.TrimSpace(b.Country)
			if country == "" {
				country = matching.DefaultCountry
			}

			_, err := stmt.Exec(
				utils.NormalizeISIN(b.ISIN),
				strings.TrimSpace(b.Ticker),
				strings.TrimSpace(b.Description),
				country,
				nullFloat64(b.Coupon),
				nullInt(b.MaturityYear),
				nullString(b.MaturityDate),
				nullFloat64(b.Price),
				nullFloat64(b.Accrued),
				now,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert bond %s: %w", b.ISIN, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	done(int64(len(bonds)))
	r.log.Info().Int("count", len(bonds)).Bool("replace", clearFirst).Msg("Bonds upserted")
	return len(bonds), nil
}

// GetByISIN returns a bond by ISIN, or nil when it is not in the universe
func (r *BondRepository) GetByISIN(isin string) (*Bond, error) {
	rows, err := r.universeDB.Query("SELECT "+bondColumns+" FROM bonds WHERE isin = ?", utils.NormalizeISIN(isin))
	if err != nil {
		return nil, fmt.Errorf("failed to query bond by ISIN: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	bond, err := scanBond(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan bond: %w", err)
	}
	return &bond, nil
}

// ListAll returns the whole analytics universe ordered by ISIN
func (r *BondRepository) ListAll() ([]Bond, error) {
	return r.query("bonds_list_all", "SELECT "+bondColumns+" FROM bonds ORDER BY isin")
}

// ListByISINs returns the bonds among isins that exist in the universe, ordered by ISIN
func (r *BondRepository) ListByISINs(isins []string) ([]Bond, error) {
	isins = utils.NormalizeISINs(isins)
	if len(isins) == 0 {
		return []Bond{}, nil
	}

	// SQLite caps bound variables; chunk large lists
	const chunkSize = 500
	bonds := make([]Bond, 0, len(isins))
	for start := 0; start < len(isins); start += chunkSize {
		end := start + chunkSize
		if end > len(isins) {
			end = len(isins)
		}
		chunk := isins[start:end]

		args := make([]interface{}, len(chunk))
		for i, isin := range chunk {
			args[i] = isin
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		part, err := r.query("bonds_by_isins",
			"SELECT "+bondColumns+" FROM bonds WHERE isin IN ("+placeholders+") ORDER BY isin", args...)
		if err != nil {
			return nil, err
		}
		bonds = append(bonds, part...)
	}
	return bonds, nil
}

// Search returns bonds matching every filter that is set, ordered by ISIN
func (r *BondRepository) Search(filter SearchFilter) ([]Bond, error) {
	if filter.Empty() {
		return nil, ErrNoSearchFilter
	}

	var (
		where []string
		args  []interface{}
	)
	if c := strings.TrimSpace(filter.Country); c != "" {
		where = append(where, "country = ? COLLATE NOCASE")
		args = append(args, c)
	}
	if filter.MaturityYear != 0 {
		where = append(where, "maturity_year = ?")
		args = append(args, filter.MaturityYear)
	}
	if t := strings.TrimSpace(filter.Ticker); t != "" {
		pattern := "%" + escapeLike(t) + "%"
		where = append(where, `(ticker LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if filter.Coupon != nil {
		where = append(where, "coupon BETWEEN ? AND ?")
		args = append(args, *filter.Coupon-couponTolerance, *filter.Coupon+couponTolerance)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	args = append(args, limit)

	query := "SELECT " + bondColumns + " FROM bonds WHERE " + strings.Join(where, " AND ") + " ORDER BY isin LIMIT ?"
	return r.query("bonds_search", query, args...)
}

// Count returns the size of the analytics universe
func (r *BondRepository) Count() (int, error) {
	var n int
	if err := r.universeDB.QueryRow("SELECT COUNT(*) FROM bonds").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count bonds: %w", err)
	}
	return n, nil
}

// DeleteMatured removes bonds whose known maturity year is before beforeYear.
// Bonds with an unknown maturity are kept.
func (r *BondRepository) DeleteMatured(beforeYear int) (int64, error) {
	result, err := r.universeDB.Exec(
		"DELETE FROM bonds WHERE maturity_year IS NOT NULL AND maturity_year > 0 AND maturity_year < ?",
		beforeYear,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete matured bonds: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

func (r *BondRepository) query(name, query string, args ...interface{}) ([]Bond, error) {
	done := utils.MeasureDBQuery(name, r.log)

	rows, err := r.universeDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bonds: %w", err)
	}
	defer rows.Close()

	bonds := make([]Bond, 0)
	for rows.Next() {
		bond, err := scanBond(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bond: %w", err)
		}
		bonds = append(bonds, bond)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bonds: %w", err)
	}

	done(int64(len(bonds)))
	return bonds, nil
}

func scanBond(rows *sql.Rows) (Bond, error) {
	var (
		bond         Bond
		coupon       sql.NullFloat64
		maturityYear sql.NullInt64
		maturityDate sql.NullString
		price        sql.NullFloat64
		accrued      sql.NullFloat64
		updatedAt    int64
	)

	err := rows.Scan(
		&bond.ISIN,
		&bond.Ticker,
		&bond.Description,
		&bond.Country,
		&coupon,
		&maturityYear,
		&maturityDate,
		&price,
		&accrued,
		&updatedAt,
	)
	if err != nil {
		return bond, err
	}

	if coupon.Valid {
		bond.Coupon = &coupon.Float64
	}
	if maturityYear.Valid {
		y := int(maturityYear.Int64)
		bond.MaturityYear = &y
	}
	if maturityDate.Valid {
		bond.MaturityDate = maturityDate.String
	}
	if price.Valid {
		bond.Price = &price.Float64
	}
	if accrued.Valid {
		bond.Accrued = &accrued.Float64
	}
	bond.UpdatedAt = &updatedAt

	return bond, nil
}

// Helper functions

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat64(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

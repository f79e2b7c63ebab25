// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/aristath/orca/internal/config"
	"github.com/aristath/orca/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens the three databases and applies schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{StartedAt: time.Now()}

	specs := []struct {
		name    string
		profile database.DatabaseProfile
		target  **database.DB
	}{
		// universe.db - Bond analytics universe, replaced wholesale by snapshot syncs
		{database.NameUniverse, database.ProfileStandard, &container.UniverseDB},
		// portfolio.db - Holdings and watchlists per portfolio
		{database.NamePortfolio, database.ProfileStandard, &container.PortfolioDB},
		// ledger.db - Append-only audit trail of match requests
		{database.NameLedger, database.ProfileLedger, &container.LedgerDB},
	}

	for _, spec := range specs {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, spec.name+".db"),
			Profile: spec.profile,
			Name:    spec.name,
		})
		if err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("failed to initialize %s database: %w", spec.name, err)
		}
		*spec.target = db

		if err := db.Migrate(); err != nil {
			_ = container.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", spec.name, err)
		}
	}

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("databases", len(container.Databases())).
		Msg("Databases initialized")

	return container, nil
}

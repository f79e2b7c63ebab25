package di

import (
	"fmt"

	"github.com/aristath/orca/internal/modules/bondmatch"
	"github.com/aristath/orca/internal/modules/universe"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories over the open databases
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	if container.UniverseDB == nil || container.PortfolioDB == nil || container.LedgerDB == nil {
		return fmt.Errorf("databases must be initialized first")
	}

	container.BondRepo = universe.NewBondRepository(container.UniverseDB.Conn(), log)
	container.PortfolioRepo = universe.NewPortfolioRepository(container.PortfolioDB.Conn(), log)
	container.AuditRepo = bondmatch.NewAuditRepository(container.LedgerDB.Conn(), log)

	log.Info().Msg("Repositories initialized")
	return nil
}

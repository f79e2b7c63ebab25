package di

import (
	"fmt"

	"github.com/aristath/orca/internal/config"
	"github.com/aristath/orca/internal/modules/bondmatch"
	"github.com/aristath/orca/internal/modules/universe"
	"github.com/aristath/orca/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates the match service and, when R2 is configured,
// the snapshot importer and backup service.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}
	if container.BondRepo == nil {
		return fmt.Errorf("repositories must be initialized first")
	}

	container.MatchService = bondmatch.NewService(
		container.BondRepo,
		container.PortfolioRepo,
		container.AuditRepo,
		log,
	)

	if !cfg.R2Enabled() {
		log.Info().Msg("R2 not configured, snapshot refresh and backups disabled")
		return nil
	}

	r2Client, err := reliability.NewR2Client(
		cfg.R2.AccountID,
		cfg.R2.AccessKeyID,
		cfg.R2.SecretAccessKey,
		cfg.R2.BucketName,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create r2 client: %w", err)
	}
	container.R2Client = r2Client

	if cfg.R2.UniverseKey != "" {
		container.SnapshotImporter = universe.NewSnapshotImporter(r2Client, container.BondRepo, cfg.R2.UniverseKey, log)
	}
	if cfg.R2.BackupSchedule != "" {
		container.BackupService = reliability.NewR2BackupService(r2Client, container.Databases(), cfg.DataDir, log)
	}

	log.Info().Msg("Services initialized")
	return nil
}

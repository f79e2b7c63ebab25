/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"errors"
	"time"

	"github.com/aristath/orca/internal/database"
	"github.com/aristath/orca/internal/modules/bondmatch"
	"github.com/aristath/orca/internal/modules/universe"
	"github.com/aristath/orca/internal/reliability"
	"github.com/aristath/orca/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: universe (bond analytics), portfolio (holdings, watchlists), ledger (match audit trail)
 * - Repositories: bond, portfolio and audit data access
 * - Services: bond matching
 * - Storage: optional R2 client feeding snapshot refresh and backups
 */
type Container struct {
	// Databases
	UniverseDB  *database.DB
	PortfolioDB *database.DB
	LedgerDB    *database.DB

	// Repositories
	BondRepo      *universe.BondRepository
	PortfolioRepo *universe.PortfolioRepository
	AuditRepo     *bondmatch.AuditRepository

	// Services
	MatchService *bondmatch.Service

	// R2 storage, all nil when R2 is not configured
	R2Client         *reliability.R2Client
	SnapshotImporter *universe.SnapshotImporter
	BackupService    *reliability.R2BackupService

	StartedAt time.Time
}

// Databases returns the open databases in a stable order
func (c *Container) Databases() []*database.DB {
	dbs := make([]*database.DB, 0, 3)
	for _, db := range []*database.DB{c.UniverseDB, c.PortfolioDB, c.LedgerDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// Close closes every database held by the container
func (c *Container) Close() error {
	var errs []error
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// JobInstances holds every scheduled job so they can be triggered via API.
// Optional jobs are nil when their feature is disabled.
type JobInstances struct {
	AuditCleanup      *bondmatch.AuditCleanupJob
	PruneMatured      *universe.PruneMaturedJob
	WALCheck          *scheduler.CheckWALCheckpointsJob
	DailyMaintenance  *reliability.DailyMaintenanceJob
	WeeklyMaintenance *reliability.WeeklyMaintenanceJob
	SnapshotRefresh   *universe.SnapshotRefreshJob
	Backup            *reliability.BackupJob
}

// All returns the non-nil jobs keyed by name
func (j *JobInstances) All() map[string]scheduler.Job {
	jobs := make(map[string]scheduler.Job)
	add := func(job scheduler.Job, present bool) {
		if present {
			jobs[job.Name()] = job
		}
	}
	add(j.AuditCleanup, j.AuditCleanup != nil)
	add(j.PruneMatured, j.PruneMatured != nil)
	add(j.WALCheck, j.WALCheck != nil)
	add(j.DailyMaintenance, j.DailyMaintenance != nil)
	add(j.WeeklyMaintenance, j.WeeklyMaintenance != nil)
	add(j.SnapshotRefresh, j.SnapshotRefresh != nil)
	add(j.Backup, j.Backup != nil)
	return jobs
}

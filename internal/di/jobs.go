// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"
	"time"

	"github.com/aristath/orca/internal/config"
	"github.com/aristath/orca/internal/modules/bondmatch"
	"github.com/aristath/orca/internal/modules/universe"
	"github.com/aristath/orca/internal/reliability"
	"github.com/aristath/orca/internal/scheduler"
	"github.com/rs/zerolog"
)

// BackupTimeout bounds one backup run including upload
const BackupTimeout = 30 * time.Minute

// RegisterJobs creates every job and registers it with sched on its configured schedule.
// Returns JobInstances for manual triggering via API.
func RegisterJobs(container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	databases := container.Databases()

	walCheck := scheduler.NewCheckWALCheckpointsJob(databases...)
	walCheck.SetLogger(log)

	instances := &JobInstances{
		AuditCleanup:      bondmatch.NewAuditCleanupJob(container.AuditRepo, cfg.AuditRetentionDays, log),
		PruneMatured:      universe.NewPruneMaturedJob(container.BondRepo, log),
		WALCheck:          walCheck,
		DailyMaintenance:  reliability.NewDailyMaintenanceJob(databases, cfg.DataDir, log),
		WeeklyMaintenance: reliability.NewWeeklyMaintenanceJob(databases, log),
	}

	if container.SnapshotImporter != nil {
		instances.SnapshotRefresh = universe.NewSnapshotRefreshJob(container.SnapshotImporter, universe.DefaultSnapshotTimeout, log)
	}
	if container.BackupService != nil {
		instances.Backup = reliability.NewBackupJob(container.BackupService, cfg.R2.BackupRetentionDays, BackupTimeout, log)
	}

	if sched == nil {
		return instances, nil
	}

	schedules := []struct {
		schedule string
		job      scheduler.Job
		enabled  bool
	}{
		{cfg.AuditCleanupSchedule, instances.AuditCleanup, true},
		{cfg.MaturedPruneSchedule, instances.PruneMatured, true},
		{cfg.WALCheckSchedule, instances.WALCheck, true},
		{cfg.DailyMaintenanceSchedule, instances.DailyMaintenance, true},
		{cfg.WeeklyMaintenanceSchedule, instances.WeeklyMaintenance, true},
		{cfg.R2.RefreshSchedule, instances.SnapshotRefresh, instances.SnapshotRefresh != nil},
		{cfg.R2.BackupSchedule, instances.Backup, instances.Backup != nil},
	}

	for _, s := range schedules {
		if !s.enabled || s.schedule == "" {
			continue
		}
		if err := sched.AddJob(s.schedule, s.job); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", s.job.Name(), err)
		}
	}

	log.Info().Int("jobs", len(sched.JobNames())).Msg("Jobs registered")
	return instances, nil
}

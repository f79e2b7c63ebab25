package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/orca/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// Disk space thresholds for the daily check, in GB
const (
	CriticalFreeGB = 0.5
	LowFreeGB      = 5.0
)

// DiskUsageFunc reports free bytes for the filesystem holding path
type DiskUsageFunc func(path string) (uint64, error)

func gopsutilFreeBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// DailyMaintenanceJob checks integrity, truncates WAL files and watches disk space
type DailyMaintenanceJob struct {
	databases []*database.DB
	dataDir   string
	freeBytes DiskUsageFunc
	log       zerolog.Logger
}

// NewDailyMaintenanceJob creates a new daily maintenance job
func NewDailyMaintenanceJob(databases []*database.DB, dataDir string, log zerolog.Logger) *DailyMaintenanceJob {
	return &DailyMaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		freeBytes: gopsutilFreeBytes,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// SetDiskUsage replaces the free space probe
func (j *DailyMaintenanceJob) SetDiskUsage(fn DiskUsageFunc) {
	j.freeBytes = fn
}

// Run executes the daily maintenance job
func (j *DailyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting daily maintenance")
	startTime := time.Now()

	for _, db := range j.databases {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := db.HealthCheck(ctx)
		cancel()
		if err != nil {
			j.log.Error().Str("database", db.Name()).Err(err).Msg("CRITICAL: Integrity check failed")
			return fmt.Errorf("CRITICAL: %w", err)
		}
	}

	for _, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Str("database", db.Name()).Err(err).Msg("WAL checkpoint failed")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Daily maintenance completed successfully")

	return nil
}

// Name returns the job name for scheduler
func (j *DailyMaintenanceJob) Name() string {
	return "daily_maintenance"
}

func (j *DailyMaintenanceJob) checkDiskSpace() error {
	free, err := j.freeBytes(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableGB := float64(free) / 1e9
	j.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")

	if availableGB < CriticalFreeGB {
		j.log.Error().Float64("available_gb", availableGB).Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("CRITICAL: only %.2f GB free", availableGB)
	}
	if availableGB < LowFreeGB {
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}
	return nil
}

// WeeklyMaintenanceJob reclaims space in the rewritable databases.
// The append-only ledger is never vacuumed.
type WeeklyMaintenanceJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewWeeklyMaintenanceJob creates a new weekly maintenance job
func NewWeeklyMaintenanceJob(databases []*database.DB, log zerolog.Logger) *WeeklyMaintenanceJob {
	return &WeeklyMaintenanceJob{
		databases: databases,
		log:       log.With().Str("job", "weekly_maintenance").Logger(),
	}
}

// Run executes the weekly maintenance job
func (j *WeeklyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting weekly maintenance")
	startTime := time.Now()

	for _, db := range j.databases {
		if db.Profile() == database.ProfileLedger {
			j.log.Debug().Str("database", db.Name()).Msg("Skipping VACUUM for append-only ledger")
			continue
		}

		before, after, err := db.Vacuum()
		if err != nil {
			j.log.Error().Str("database", db.Name()).Err(err).Msg("VACUUM failed")
			continue
		}

		j.log.Info().
			Str("database", db.Name()).
			Int64("size_before_bytes", before).
			Int64("size_after_bytes", after).
			Int64("reclaimed_bytes", before-after).
			Msg("VACUUM completed")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Weekly maintenance completed successfully")

	return nil
}

// Name returns the job name for scheduler
func (j *WeeklyMaintenanceJob) Name() string {
	return "weekly_maintenance"
}

package universe

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSnapshotTimeout bounds a single snapshot refresh.
const DefaultSnapshotTimeout = 5 * time.Minute

// PruneMaturedJob removes bonds that matured before the current year.
// It should be scheduled to run daily.
type PruneMaturedJob struct {
	repo BondRepositoryInterface
	log  zerolog.Logger
	now  func() time.Time
}

// NewPruneMaturedJob creates a new matured-bond pruning job
func NewPruneMaturedJob(repo BondRepositoryInterface, log zerolog.Logger) *PruneMaturedJob {
	return &PruneMaturedJob{
		repo: repo,
		log:  log.With().Str("job", "prune_matured_bonds").Logger(),
		now:  time.Now,
	}
}

// SetClock overrides the job's clock
func (j *PruneMaturedJob) SetClock(now func() time.Time) {
	j.now = now
}

// Run executes the pruning job
func (j *PruneMaturedJob) Run() error {
	year := j.now().Year()

	deleted, err := j.repo.DeleteMatured(year)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to prune matured bonds")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Int("before_year", year).
			Msg("Pruned matured bonds")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *PruneMaturedJob) Name() string {
	return "prune_matured_bonds"
}

// SnapshotRefreshJob re-imports the universe snapshot from object storage
type SnapshotRefreshJob struct {
	importer *SnapshotImporter
	timeout  time.Duration
	log      zerolog.Logger
}

// NewSnapshotRefreshJob creates a new snapshot refresh job
func NewSnapshotRefreshJob(importer *SnapshotImporter, timeout time.Duration, log zerolog.Logger) *SnapshotRefreshJob {
	if timeout <= 0 {
		timeout = DefaultSnapshotTimeout
	}
	return &SnapshotRefreshJob{
		importer: importer,
		timeout:  timeout,
		log:      log.With().Str("job", "snapshot_refresh").Logger(),
	}
}

// Run executes the refresh. A failed refresh keeps the previous universe.
func (j *SnapshotRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.importer.Import(ctx); err != nil {
		j.log.Error().Err(err).Msg("Snapshot refresh failed")
		return err
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *SnapshotRefreshJob) Name() string {
	return "snapshot_refresh"
}

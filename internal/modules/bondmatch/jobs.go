package bondmatch

import (
	"time"

	"github.com/rs/zerolog"
)

// AuditCleanupJob removes match requests older than the retention window.
// It should be scheduled to run daily.
type AuditCleanupJob struct {
	repo          AuditRepositoryInterface
	retentionDays int
	log           zerolog.Logger
	now           func() time.Time
}

// NewAuditCleanupJob creates a new audit cleanup job
func NewAuditCleanupJob(repo AuditRepositoryInterface, retentionDays int, log zerolog.Logger) *AuditCleanupJob {
	return &AuditCleanupJob{
		repo:          repo,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "match_audit_cleanup").Logger(),
		now:           time.Now,
	}
}

// SetClock overrides the job's clock
func (j *AuditCleanupJob) SetClock(now func() time.Time) {
	j.now = now
}

// Run executes the cleanup job. A non-positive retention keeps everything.
func (j *AuditCleanupJob) Run() error {
	if j.retentionDays <= 0 {
		return nil
	}

	cutoff := j.now().AddDate(0, 0, -j.retentionDays)
	deleted, err := j.repo.DeleteOlderThan(cutoff)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to delete old match requests")
		return err
	}

	if deleted > 0 {
		j.log.Info().
			Int64("deleted", deleted).
			Time("cutoff", cutoff).
			Msg("Match audit cleanup completed")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *AuditCleanupJob) Name() string {
	return "match_audit_cleanup"
}

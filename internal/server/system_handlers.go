package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/orca/internal/di"
	"github.com/aristath/orca/internal/reliability"
	"github.com/aristath/orca/internal/scheduler"
)

// SystemHandlers serves status, maintenance and backup endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	container *di.Container
	jobs      *di.JobInstances
	sched     *scheduler.Scheduler

	systemStats func() (cpuPercent, memPercent float64)
	diskUsage   func(path string) (*disk.UsageStat, error)
}

// NewSystemHandlers creates system handlers. jobs and sched may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	container *di.Container,
	jobs *di.JobInstances,
	sched *scheduler.Scheduler,
) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		container: container,
		jobs:      jobs,
		sched:     sched,
		diskUsage: disk.Usage,
	}
	h.systemStats = h.getSystemStats
	return h
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status          string  `json:"status"`
	Version         string  `json:"version"`
	StartedAt       string  `json:"started_at"`
	UptimeSeconds   int64   `json:"uptime_seconds"`
	UniverseBonds   int     `json:"universe_bonds"`
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryPercent   float64 `json:"memory_percent"`
	R2Enabled       bool    `json:"r2_enabled"`
	SnapshotRefresh bool    `json:"snapshot_refresh"`
	Backups         bool    `json:"backups"`
	ScheduledJobs   int     `json:"scheduled_jobs"`
	LastChecked     string  `json:"last_checked"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// DBInfo represents information about a single database
type DBInfo struct {
	Name       string  `json:"name"`
	Path       string  `json:"path"`
	Profile    string  `json:"profile"`
	SizeMB     float64 `json:"size_mb"`
	TableCount int     `json:"table_count"`
}

// DiskUsageResponse represents disk usage statistics
type DiskUsageResponse struct {
	DataDirMB   float64 `json:"data_dir_mb"`
	TotalMB     float64 `json:"total_mb"`
	AvailableMB float64 `json:"available_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// JobStatus describes one registered job
type JobStatus struct {
	Name      string `json:"name"`
	Schedule  string `json:"schedule,omitempty"`
	Scheduled bool   `json:"scheduled"`
}

// HandleSystemStatus returns a snapshot of the current system status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response := SystemStatusResponse{
		Status:          "healthy",
		Version:         Version,
		StartedAt:       h.container.StartedAt.UTC().Format(time.RFC3339),
		UptimeSeconds:   int64(time.Since(h.container.StartedAt).Seconds()),
		R2Enabled:       h.container.R2Client != nil,
		SnapshotRefresh: h.container.SnapshotImporter != nil,
		Backups:         h.container.BackupService != nil,
		LastChecked:     time.Now().UTC().Format(time.RFC3339),
	}

	count, err := h.container.BondRepo.Count()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count universe bonds")
		response.Status = "degraded"
	}
	response.UniverseBonds = count

	response.CPUPercent, response.MemoryPercent = h.systemStats()

	if h.sched != nil {
		response.ScheduledJobs = len(h.sched.JobNames())
	}

	writeJSON(w, h.log, http.StatusOK, response)
}

// HandleDatabaseStats returns database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	response := DatabaseStatsResponse{
		Databases:   make([]DBInfo, 0, 3),
		LastChecked: time.Now().UTC().Format(time.RFC3339),
	}

	for _, db := range h.container.Databases() {
		info := DBInfo{
			Name:    db.Name(),
			Path:    db.Path(),
			Profile: string(db.Profile()),
		}

		if stat, err := os.Stat(db.Path()); err == nil {
			info.SizeMB = float64(stat.Size()) / 1024 / 1024
			response.TotalSizeMB += info.SizeMB
		}

		err := db.Conn().QueryRowContext(r.Context(),
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'").Scan(&info.TableCount)
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to count tables")
		}

		response.Databases = append(response.Databases, info)
	}

	writeJSON(w, h.log, http.StatusOK, response)
}

// HandleDiskUsage returns disk usage statistics for the data directory
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	usage, err := h.diskUsage(h.dataDir)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read disk usage")
		http.Error(w, "Failed to read disk usage", http.StatusInternalServerError)
		return
	}

	response := DiskUsageResponse{
		DataDirMB:   h.getDirSize(h.dataDir),
		TotalMB:     float64(usage.Total) / 1024 / 1024,
		AvailableMB: float64(usage.Free) / 1024 / 1024,
		UsedPercent: usage.UsedPercent,
	}

	writeJSON(w, h.log, http.StatusOK, response)
}

// HandleJobsStatus lists jobs and their schedules
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	schedules := map[string]string{}
	if h.sched != nil {
		schedules = h.sched.Jobs()
	}

	jobs := make([]JobStatus, 0)
	if h.jobs != nil {
		for name := range h.jobs.All() {
			schedule, scheduled := schedules[name]
			jobs = append(jobs, JobStatus{Name: name, Schedule: schedule, Scheduled: scheduled})
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// HandleTriggerJob runs the named job immediately
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var job scheduler.Job
	if h.jobs != nil {
		job = h.jobs.All()[name]
	}
	if job == nil {
		http.Error(w, "Unknown job", http.StatusNotFound)
		return
	}

	start := time.Now()
	var err error
	if h.sched != nil {
		err = h.sched.RunNow(job)
	} else {
		err = job.Run()
	}
	if err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Triggered job failed")
		http.Error(w, "Job failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"job":         name,
		"status":      "completed",
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// HandleListBackups lists archives stored in R2
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	service := h.backupService(w)
	if service == nil {
		return
	}

	backups, err := service.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		http.Error(w, "Failed to list backups", http.StatusBadGateway)
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"backups": backups,
		"count":   len(backups),
	})
}

// HandleCreateBackup uploads a backup now, outside the schedule
func (h *SystemHandlers) HandleCreateBackup(w http.ResponseWriter, r *http.Request) {
	service := h.backupService(w)
	if service == nil {
		return
	}

	// Detached from the request so a slow upload outlives the router timeout
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), di.BackupTimeout)
	defer cancel()

	archive, err := service.CreateAndUploadBackup(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		http.Error(w, "Backup failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, h.log, http.StatusCreated, map[string]string{"archive": archive})
}

func (h *SystemHandlers) backupService(w http.ResponseWriter) *reliability.R2BackupService {
	if h.container.BackupService == nil {
		http.Error(w, "R2 backups are not configured", http.StatusServiceUnavailable)
		return nil
	}
	return h.container.BackupService
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats samples CPU over 100ms and reads memory usage
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

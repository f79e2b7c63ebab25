package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/orca/internal/config"
	"github.com/aristath/orca/internal/di"
	"github.com/aristath/orca/internal/reliability"
	"github.com/aristath/orca/internal/scheduler"
)

type memoryStore struct {
	objects map[string][]byte
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]types.Object, error) {
	objects := make([]types.Object, 0)
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, types.Object{Key: aws.String(key), Size: aws.Int64(int64(len(data)))})
		}
	}
	return objects, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

type testServer struct {
	server    *Server
	container *di.Container
	dataDir   string
}

func setupServer(t *testing.T, devMode bool) *testServer {
	t.Helper()

	cfg := &config.Config{
		DataDir:                   t.TempDir(),
		Port:                      8001,
		AuditRetentionDays:        90,
		AuditCleanupSchedule:      "0 0 3 * * *",
		MaturedPruneSchedule:      "0 30 3 * * *",
		WALCheckSchedule:          "0 */15 * * * *",
		DailyMaintenanceSchedule:  "0 0 2 * * *",
		WeeklyMaintenanceSchedule: "0 0 3 * * 0",
	}
	log := zerolog.New(nil).Level(zerolog.Disabled)
	sched := scheduler.New(log)

	container, jobs, err := di.Wire(cfg, log, sched)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	jobs.DailyMaintenance.SetDiskUsage(func(string) (uint64, error) { return 50e9, nil })

	srv := New(Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   devMode,
		DataDir:   cfg.DataDir,
		Container: container,
		Jobs:      jobs,
		Scheduler: sched,
	})
	srv.systemHandlers.systemStats = func() (float64, float64) { return 12.5, 40 }
	srv.systemHandlers.diskUsage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Total: 100 << 20, Free: 60 << 20, UsedPercent: 40}, nil
	}

	return &testServer{server: srv, container: container, dataDir: cfg.DataDir}
}

func (ts *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestServer_Health(t *testing.T) {
	ts := setupServer(t, true)

	rec := ts.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "orca", body["service"])
}

func TestServer_SyncThenMatch(t *testing.T) {
	ts := setupServer(t, true)

	rec := ts.do(t, http.MethodPost, "/api/universe/bonds", `{"bonds":[
		{"isin":"US195325DS19","ticker":"COLTES","description":"REPUBLIC OF COLOMBIA 3.25 04/22/61","country":"Colombia","coupon":3.25,"maturity_year":2061,"price":70.5,"accrued":1.75},
		{"isin":"US71654QDD16","ticker":"PEMEX","description":"PEMEX 5.95 01/28/31","country":"Mexico"}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), decode(t, rec)["upserted"])

	rec = ts.do(t, http.MethodPost, "/api/bond_match", `{"query":"sell 250k 3.25% colombia 61"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, float64(2), body["total_bonds_searched"])
	confident, ok := body["confident_match"].(map[string]interface{})
	require.True(t, ok, "expected a confident match")
	assert.Equal(t, "US195325DS19", confident["isin"])

	rec = ts.do(t, http.MethodGet, "/api/bond_match/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = ts.do(t, http.MethodGet, "/api/system/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode(t, rec)
	assert.Equal(t, "healthy", status["status"])
	assert.Equal(t, float64(2), status["universe_bonds"])
	assert.Equal(t, 12.5, status["cpu_percent"])
	assert.Equal(t, float64(40), status["memory_percent"])
	assert.Equal(t, false, status["r2_enabled"])
	assert.Equal(t, float64(5), status["scheduled_jobs"])
}

func TestServer_DatabaseStatsAndDisk(t *testing.T) {
	ts := setupServer(t, true)

	rec := ts.do(t, http.MethodGet, "/api/system/database/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats DatabaseStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Len(t, stats.Databases, 3)
	assert.Equal(t, "universe", stats.Databases[0].Name)
	assert.Equal(t, "ledger", stats.Databases[2].Profile)
	assert.GreaterOrEqual(t, stats.Databases[0].TableCount, 1)
	assert.Greater(t, stats.TotalSizeMB, 0.0)

	rec = ts.do(t, http.MethodGet, "/api/system/disk", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var usage DiskUsageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usage))
	assert.Equal(t, 100.0, usage.TotalMB)
	assert.Equal(t, 60.0, usage.AvailableMB)
	assert.Greater(t, usage.DataDirMB, 0.0)

	ts.server.systemHandlers.diskUsage = func(string) (*disk.UsageStat, error) { return nil, errors.New("no device") }
	rec = ts.do(t, http.MethodGet, "/api/system/disk", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_Jobs(t *testing.T) {
	ts := setupServer(t, true)

	rec := ts.do(t, http.MethodGet, "/api/system/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Jobs  []JobStatus `json:"jobs"`
		Count int         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Count)
	assert.Equal(t, "check_wal_checkpoints", resp.Jobs[0].Name)
	assert.Equal(t, "0 */15 * * * *", resp.Jobs[0].Schedule)
	assert.True(t, resp.Jobs[0].Scheduled)

	rec = ts.do(t, http.MethodPost, "/api/system/jobs/prune_matured_bonds/run", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode(t, rec)["status"])

	rec = ts.do(t, http.MethodPost, "/api/system/jobs/daily_maintenance/run", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/system/jobs/rebalance/run", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_BackupsDisabled(t *testing.T) {
	ts := setupServer(t, true)

	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodGet, "/api/system/backups", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(t, http.MethodPost, "/api/system/backups", "").Code)
}

func TestServer_Backups(t *testing.T) {
	ts := setupServer(t, true)

	store := &memoryStore{objects: make(map[string][]byte)}
	ts.container.BackupService = reliability.NewR2BackupService(store, ts.container.Databases(), ts.dataDir, zerolog.Nop())

	rec := ts.do(t, http.MethodPost, "/api/system/backups", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	archive, _ := decode(t, rec)["archive"].(string)
	assert.True(t, strings.HasPrefix(archive, "orca-backup-"), archive)
	assert.Contains(t, store.objects, archive)

	rec = ts.do(t, http.MethodGet, "/api/system/backups", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])
}

func TestServer_CompressesOutsideDevMode(t *testing.T) {
	ts := setupServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/bond_match/countries", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

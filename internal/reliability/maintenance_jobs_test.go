package reliability

import (
	"errors"
	"testing"

	"github.com/aristath/orca/internal/database"
	testingpkg "github.com/aristath/orca/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedFree(bytes uint64, err error) DiskUsageFunc {
	return func(string) (uint64, error) { return bytes, err }
}

func TestDailyMaintenanceJob(t *testing.T) {
	tests := []struct {
		name      string
		free      uint64
		diskErr   error
		expectErr bool
	}{
		{"plenty of space", 50e9, nil, false},
		{"low space only warns", 2e9, nil, false},
		{"critical space halts", 1e8, nil, true},
		{"disk probe failure", 0, errors.New("no such device"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewDailyMaintenanceJob(testDatabases(t), t.TempDir(), zerolog.New(nil).Level(zerolog.Disabled))
			job.SetDiskUsage(fixedFree(tt.free, tt.diskErr))

			err := job.Run()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDailyMaintenanceJob_ClosedDatabase(t *testing.T) {
	db, cleanup := testingpkg.NewTestDB(t, database.NameUniverse)
	cleanup()

	job := NewDailyMaintenanceJob([]*database.DB{db}, t.TempDir(), zerolog.New(nil).Level(zerolog.Disabled))
	job.SetDiskUsage(fixedFree(50e9, nil))

	assert.Equal(t, "daily_maintenance", job.Name())
	assert.ErrorContains(t, job.Run(), "CRITICAL")
}

func TestDailyMaintenanceJob_RealDisk(t *testing.T) {
	job := NewDailyMaintenanceJob(nil, t.TempDir(), zerolog.New(nil).Level(zerolog.Disabled))
	free, err := job.freeBytes(t.TempDir())
	require.NoError(t, err)
	assert.Greater(t, free, uint64(0))
}

func TestWeeklyMaintenanceJob(t *testing.T) {
	dbs := testDatabases(t)

	_, err := dbs[0].Conn().Exec("CREATE TABLE scratch (v TEXT)")
	require.NoError(t, err)
	_, err = dbs[0].Conn().Exec("INSERT INTO scratch (v) VALUES (randomblob(100000))")
	require.NoError(t, err)
	_, err = dbs[0].Conn().Exec("DROP TABLE scratch")
	require.NoError(t, err)

	job := NewWeeklyMaintenanceJob(dbs, zerolog.New(nil).Level(zerolog.Disabled))
	assert.Equal(t, "weekly_maintenance", job.Name())
	require.NoError(t, job.Run())

	// A vacuum failure is logged, not fatal
	closed, cleanup := testingpkg.NewTestDB(t, database.NamePortfolio)
	cleanup()
	assert.NoError(t, NewWeeklyMaintenanceJob([]*database.DB{closed}, zerolog.New(nil).Level(zerolog.Disabled)).Run())
}

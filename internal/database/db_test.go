package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTempDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBuildConnectionString(t *testing.T) {
	ledger := buildConnectionString("/tmp/ledger.db", ProfileLedger)
	assert.True(t, strings.HasPrefix(ledger, "/tmp/ledger.db?_pragma=journal_mode(WAL)"))
	assert.Contains(t, ledger, "synchronous(FULL)")
	assert.Contains(t, ledger, "auto_vacuum(NONE)")
	assert.NotContains(t, ledger, "temp_store")

	standard := buildConnectionString("/tmp/universe.db", ProfileStandard)
	assert.Contains(t, standard, "synchronous(NORMAL)")
	assert.Contains(t, standard, "auto_vacuum(INCREMENTAL)")
	assert.Contains(t, standard, "temp_store(MEMORY)")
	assert.Contains(t, standard, "busy_timeout(5000)")
}

func TestNew_DefaultsProfile(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "x"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "x", db.Name())
	assert.True(t, filepath.IsAbs(db.Path()))
}

func TestMigrate_CreatesTables(t *testing.T) {
	tests := []struct {
		name    string
		profile DatabaseProfile
		tables  []string
	}{
		{NameUniverse, ProfileStandard, []string{"bonds"}},
		{NamePortfolio, ProfileStandard, []string{"holdings", "watchlist"}},
		{NameLedger, ProfileLedger, []string{"match_requests"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTempDB(t, tt.name, tt.profile)
			require.NoError(t, db.Migrate())
			// Idempotent
			require.NoError(t, db.Migrate())

			for _, table := range tt.tables {
				var n int
				err := db.Conn().QueryRow(
					"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table,
				).Scan(&n)
				require.NoError(t, err)
				assert.Equal(t, 1, n, "table %s", table)
			}
		})
	}
}

func TestMigrate_UnknownNameIsNoop(t *testing.T) {
	db := newTempDB(t, "scratch", ProfileStandard)
	assert.NoError(t, db.Migrate())
}

func TestWithTransaction(t *testing.T) {
	db := newTempDB(t, "tx", ProfileStandard)
	_, err := db.Conn().Exec("CREATE TABLE t (v INTEGER)")
	require.NoError(t, err)

	count := func() int {
		var n int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM t").Scan(&n))
		return n
	}

	t.Run("commits", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			_, err := tx.Exec("INSERT INTO t (v) VALUES (1)")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, count())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			_, _ = tx.Exec("INSERT INTO t (v) VALUES (2)")
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, 1, count())
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			_, _ = tx.Exec("INSERT INTO t (v) VALUES (3)")
			panic("boom")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in transaction")
		assert.Equal(t, 1, count())
	})

	t.Run("nil connection", func(t *testing.T) {
		assert.Error(t, WithTransaction(nil, func(tx *sql.Tx) error { return nil }))
	})
}

func TestHealthCheck(t *testing.T) {
	db := newTempDB(t, NameUniverse, ProfileStandard)
	require.NoError(t, db.Migrate())
	assert.NoError(t, db.HealthCheck(context.Background()))
}

func TestWALCheckpoint(t *testing.T) {
	db := newTempDB(t, NameLedger, ProfileLedger)
	require.NoError(t, db.Migrate())

	assert.NoError(t, db.WALCheckpoint(""))
	assert.NoError(t, db.WALCheckpoint("passive"))
	assert.Error(t, db.WALCheckpoint("DROP TABLE"))
}

func TestBackupTo(t *testing.T) {
	db := newTempDB(t, NameUniverse, ProfileStandard)
	require.NoError(t, db.Migrate())
	_, err := db.Conn().Exec(
		"INSERT INTO bonds (isin, ticker, updated_at) VALUES ('US195325DS19', 'COLTES', 1)")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, db.BackupTo(context.Background(), dest))

	copyDB, err := New(Config{Path: dest, Name: NameUniverse})
	require.NoError(t, err)
	defer copyDB.Close()

	var ticker string
	require.NoError(t, copyDB.Conn().QueryRow("SELECT ticker FROM bonds").Scan(&ticker))
	assert.Equal(t, "COLTES", ticker)

	// Refuses to overwrite
	assert.Error(t, db.BackupTo(context.Background(), dest))
}

func TestVacuum(t *testing.T) {
	db := newTempDB(t, NamePortfolio, ProfileStandard)
	require.NoError(t, db.Migrate())

	before, after, err := db.Vacuum()
	require.NoError(t, err)
	assert.Positive(t, before)
	assert.Positive(t, after)
}

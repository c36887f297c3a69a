package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MigratesKnownSchemas(t *testing.T) {
	for _, name := range []string{"ledger", "history", "cache"} {
		t.Run(name, func(t *testing.T) {
			db, err := New(Config{
				Path: filepath.Join(t.TempDir(), name+".db"),
				Name: name,
			})
			require.NoError(t, err)
			defer db.Close()

			assert.Equal(t, ProfileStandard, db.Profile())
			require.NoError(t, db.Migrate())
			require.NoError(t, db.Migrate(), "schemas must be re-runnable")
			require.NoError(t, db.HealthCheck(context.Background()))
		})
	}
}

func TestBuildConnectionString(t *testing.T) {
	ledger := buildConnectionString("/tmp/ledger.db", ProfileLedger)
	assert.Contains(t, ledger, "/tmp/ledger.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, ledger, "synchronous(FULL)")

	cache := buildConnectionString("file:test?mode=memory", ProfileCache)
	assert.Contains(t, cache, "file:test?mode=memory&_pragma=journal_mode(WAL)")
	assert.Contains(t, cache, "synchronous(OFF)")
}

func TestWithTransaction(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "tx.db"), Name: "tx"})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Conn().Exec("CREATE TABLE items (v INTEGER)")
	require.NoError(t, err)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO items (v) VALUES (1)")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec("INSERT INTO items (v) VALUES (2)")
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
	assert.Equal(t, 1, count, "failed transaction must roll back")

	assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
}

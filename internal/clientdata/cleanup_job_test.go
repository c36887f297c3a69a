package clientdata

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupJobName(t *testing.T) {
	job := NewCleanupJob(NewRepository(setupTestDB(t)), zerolog.Nop())
	assert.Equal(t, "cache_cleanup", job.Name())
}

func TestCleanupJobRun(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	job := NewCleanupJob(repo, zerolog.Nop())

	now := time.Now()
	insertRaw(t, db, TableCurrentPrices, "OLD", 1.0, now.Add(-time.Hour).Unix())
	insertRaw(t, db, TableCurrentPrices, "NEW", 2.0, now.Add(time.Hour).Unix())
	insertRaw(t, db, TableReports, "old", "r", now.Add(-time.Hour).Unix())

	require.NoError(t, job.Run())

	var count int
	require.NoError(t, db.QueryRow(
		"SELECT (SELECT COUNT(*) FROM current_prices) + (SELECT COUNT(*) FROM reports)",
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestCleanupJobRunEmptyTables(t *testing.T) {
	job := NewCleanupJob(NewRepository(setupTestDB(t)), zerolog.Nop())
	assert.NoError(t, job.Run())
}

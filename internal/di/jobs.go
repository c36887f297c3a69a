package di

import (
	"fmt"

	"github.com/aristath/sentinel-analytics/internal/clientdata"
	"github.com/aristath/sentinel-analytics/internal/clients/prices"
	"github.com/aristath/sentinel-analytics/internal/config"
	"github.com/aristath/sentinel-analytics/internal/database"
	"github.com/aristath/sentinel-analytics/internal/reliability"
	"github.com/aristath/sentinel-analytics/internal/scheduler"
	"github.com/rs/zerolog"
)

// Fixed maintenance schedules (cron with seconds)
const (
	scheduleCacheCleanup    = "0 0 * * * *"
	scheduleWALCheckpoint   = "0 */30 * * * *"
	scheduleDiskSpace       = "0 */15 * * * *"
	scheduleIntegrityCheck  = "0 0 3 * * *"
	scheduleVacuum          = "0 0 4 * * SUN"
	scheduleArchiveRotation = "0 30 4 * * *"
)

// RegisterJobs creates the background jobs and registers them with the
// container's scheduler. The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	databases := container.Databases()

	jobs := &JobInstances{
		PriceRefresh: prices.NewRefreshJob(
			container.PriceProvider,
			container.TransactionRepo,
			cfg.Analytics.Benchmark,
			cfg.Prices.Period,
			log,
		),
		CacheCleanup:   clientdata.NewCleanupJob(container.ClientDataRepo, log),
		WALCheckpoint:  scheduler.NewWALCheckpointJob(databases, log),
		IntegrityCheck: scheduler.NewIntegrityCheckJob(databases, log),
		DiskSpace:      reliability.NewDiskSpaceJob(cfg.DataDir, log),
		// the ledger is append-only and never needs reclaiming
		Vacuum: reliability.NewVacuumJob(map[string]*database.DB{
			"history": container.HistoryDB,
			"cache":   container.CacheDB,
		}, log),
	}
	if container.ReportArchiver != nil {
		jobs.ArchiveRotation = reliability.NewArchiveRotationJob(
			container.ReportArchiver,
			cfg.Analytics.ArchiveRetentionDays,
			log,
		)
	}

	schedules := []struct {
		schedule string
		job      scheduler.Job
	}{
		{cfg.Prices.RefreshSchedule, jobs.PriceRefresh},
		{scheduleCacheCleanup, jobs.CacheCleanup},
		{scheduleWALCheckpoint, jobs.WALCheckpoint},
		{scheduleDiskSpace, jobs.DiskSpace},
		{scheduleIntegrityCheck, jobs.IntegrityCheck},
		{scheduleVacuum, jobs.Vacuum},
		{scheduleArchiveRotation, jobs.ArchiveRotation},
	}
	for _, s := range schedules {
		if s.job == nil {
			continue
		}
		if err := container.Scheduler.AddJob(s.schedule, s.job); err != nil {
			return nil, fmt.Errorf("failed to register job %s: %w", s.job.Name(), err)
		}
	}

	log.Info().Int("count", len(jobs.All())).Msg("Background jobs registered")
	return jobs, nil
}

package reliability

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/aristath/sentinel-analytics/internal/database"
)

// Free space thresholds for the data directory
const (
	criticalFreeBytes = 500 * 1024 * 1024
	lowFreeBytes      = 5 * 1024 * 1024 * 1024
)

// DiskSpaceJob checks free space on the data directory. It fails only when
// space is critically low; the ledger needs room to commit.
type DiskSpaceJob struct {
	dataDir string
	usage   func(path string) (*disk.UsageStat, error)
	log     zerolog.Logger
}

// NewDiskSpaceJob creates a new disk space job
func NewDiskSpaceJob(dataDir string, log zerolog.Logger) *DiskSpaceJob {
	return &DiskSpaceJob{
		dataDir: dataDir,
		usage:   disk.Usage,
		log:     log.With().Str("job", "disk_space").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *DiskSpaceJob) Name() string {
	return "disk_space"
}

// Run executes the disk space check
func (j *DiskSpaceJob) Run() error {
	stat, err := j.usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	freeGB := float64(stat.Free) / 1e9
	switch {
	case stat.Free < criticalFreeBytes:
		j.log.Error().Float64("free_gb", freeGB).Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("only %.2f GB free in %s", freeGB, j.dataDir)
	case stat.Free < lowFreeBytes:
		j.log.Warn().Float64("free_gb", freeGB).Msg("Disk space running low")
	default:
		j.log.Debug().Float64("free_gb", freeGB).Float64("used_pct", stat.UsedPercent).Msg("Disk space check")
	}

	return nil
}

// VacuumJob rebuilds databases to reclaim space left by expired cache rows
// and pruned history
type VacuumJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewVacuumJob creates a new vacuum job
func NewVacuumJob(databases map[string]*database.DB, log zerolog.Logger) *VacuumJob {
	return &VacuumJob{
		databases: databases,
		log:       log.With().Str("job", "vacuum").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *VacuumJob) Name() string {
	return "vacuum"
}

// Run vacuums every database, continuing past failures
func (j *VacuumJob) Run() error {
	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed []string
	for _, name := range names {
		db := j.databases[name]
		if db == nil {
			continue
		}
		if err := j.vacuumDatabase(db, name); err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("VACUUM failed")
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("vacuum failed for %v", failed)
	}
	return nil
}

func (j *VacuumJob) vacuumDatabase(db *database.DB, name string) error {
	before, err := databaseSize(db)
	if err != nil {
		return err
	}

	if _, err := db.Conn().Exec("VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	after, err := databaseSize(db)
	if err != nil {
		return err
	}

	j.log.Info().
		Str("database", name).
		Float64("size_before_mb", float64(before)/1024/1024).
		Float64("size_after_mb", float64(after)/1024/1024).
		Msg("VACUUM completed")

	return nil
}

func databaseSize(db *database.DB) (int64, error) {
	var pageCount, pageSize int64
	if err := db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	if err := db.Conn().QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("failed to read page size: %w", err)
	}
	return pageCount * pageSize, nil
}

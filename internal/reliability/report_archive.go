// Package reliability keeps generated reports and local databases safe:
// report archives in Cloudflare R2 and routine database maintenance.
package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"github.com/aristath/sentinel-analytics/internal/modules/report"
)

const (
	archivePrefix = "reports/"
	archiveSuffix = ".json.gz"

	// minArchivesToKeep survive rotation regardless of age
	minArchivesToKeep = 3
)

// ObjectStore is the bucket the archive writes to; *R2Client satisfies it
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	List(ctx context.Context, prefix string) ([]types.Object, error)
	Delete(ctx context.Context, key string) error
}

// ArchiveInfo describes one archived report
type ArchiveInfo struct {
	Key       string    `json:"key"`
	ReportID  string    `json:"report_id"`
	Date      time.Time `json:"date"`
	SizeBytes int64     `json:"size_bytes"`
}

// ReportArchiver stores reports as gzipped JSON under
// reports/<YYYY-MM-DD>/<report id>.json.gz
type ReportArchiver struct {
	store ObjectStore
	now   func() time.Time
	log   zerolog.Logger
}

// NewReportArchiver creates a new report archiver
func NewReportArchiver(store ObjectStore, log zerolog.Logger) *ReportArchiver {
	return &ReportArchiver{
		store: store,
		now:   time.Now,
		log:   log.With().Str("service", "report_archive").Logger(),
	}
}

// ArchiveKey returns the object key for a report
func ArchiveKey(r *report.Report, now time.Time) string {
	date := r.GeneratedAt
	if date.IsZero() {
		date = now
	}
	return archivePrefix + date.UTC().Format("2006-01-02") + "/" + r.ID + archiveSuffix
}

// Archive uploads r and returns its key
func (a *ReportArchiver) Archive(ctx context.Context, r *report.Report) (string, error) {
	if r == nil || r.ID == "" {
		return "", fmt.Errorf("report has no id")
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(r); err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("failed to compress report: %w", err)
	}

	key := ArchiveKey(r, a.now())
	size := int64(buf.Len())
	if err := a.store.Upload(ctx, key, &buf, size, "application/gzip"); err != nil {
		return "", err
	}

	a.log.Info().
		Str("key", key).
		Int64("size_bytes", size).
		Msg("Report archived")

	return key, nil
}

// ListArchives lists archived reports, newest first
func (a *ReportArchiver) ListArchives(ctx context.Context) ([]ArchiveInfo, error) {
	objects, err := a.store.List(ctx, archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list report archives: %w", err)
	}

	archives := make([]ArchiveInfo, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}
		info, ok := parseArchiveKey(*obj.Key)
		if !ok {
			a.log.Warn().Str("key", *obj.Key).Msg("Skipping unrecognized archive key")
			continue
		}
		if obj.Size != nil {
			info.SizeBytes = *obj.Size
		}
		archives = append(archives, info)
	}

	sort.Slice(archives, func(i, j int) bool {
		if !archives[i].Date.Equal(archives[j].Date) {
			return archives[i].Date.After(archives[j].Date)
		}
		return archives[i].Key > archives[j].Key
	})

	return archives, nil
}

// Rotate deletes archives older than retentionDays, always keeping the
// newest few. retentionDays <= 0 keeps everything.
func (a *ReportArchiver) Rotate(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	archives, err := a.ListArchives(ctx)
	if err != nil {
		return 0, err
	}
	if len(archives) <= minArchivesToKeep {
		return 0, nil
	}

	cutoff := a.now().UTC().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, archive := range archives[minArchivesToKeep:] {
		if !archive.Date.Before(cutoff) {
			continue
		}
		if err := a.store.Delete(ctx, archive.Key); err != nil {
			a.log.Error().Err(err).Str("key", archive.Key).Msg("Failed to delete old archive")
			continue
		}
		deleted++
	}

	a.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(archives)-deleted).
		Msg("Report archive rotation completed")

	return deleted, nil
}

func parseArchiveKey(key string) (ArchiveInfo, bool) {
	rest, ok := strings.CutPrefix(key, archivePrefix)
	if !ok {
		return ArchiveInfo{}, false
	}
	day, file, ok := strings.Cut(rest, "/")
	if !ok || !strings.HasSuffix(file, archiveSuffix) {
		return ArchiveInfo{}, false
	}
	date, err := time.Parse("2006-01-02", day)
	if err != nil {
		return ArchiveInfo{}, false
	}
	return ArchiveInfo{
		Key:      key,
		ReportID: strings.TrimSuffix(file, archiveSuffix),
		Date:     date,
	}, true
}

// ArchiveRotationJob prunes old report archives on a schedule
type ArchiveRotationJob struct {
	archiver      *ReportArchiver
	retentionDays int
	log           zerolog.Logger
}

// NewArchiveRotationJob creates a new rotation job
func NewArchiveRotationJob(archiver *ReportArchiver, retentionDays int, log zerolog.Logger) *ArchiveRotationJob {
	return &ArchiveRotationJob{
		archiver:      archiver,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "archive_rotation").Logger(),
	}
}

// Name returns the job name
func (j *ArchiveRotationJob) Name() string {
	return "archive_rotation"
}

// Run executes the rotation
func (j *ArchiveRotationJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := j.archiver.Rotate(ctx, j.retentionDays); err != nil {
		return fmt.Errorf("failed to rotate report archives: %w", err)
	}
	return nil
}

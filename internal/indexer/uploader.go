package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/vector-ingest/internal/storage"
)

// Upserter accepts one batch of records at a time.
type Upserter interface {
	Upsert(ctx context.Context, records []storage.VectorRecord) error
}

// BatchStat describes one completed batch.
type BatchStat struct {
	Seq      int // 1-based
	Size     int
	Elapsed  time.Duration
	Uploaded int     // Cumulative records uploaded, this batch included
	Percent  float64 // Uploaded as a percentage of all records
}

// UploadReport summarizes an upload. On failure it covers the batches that
// completed before the failing one.
type UploadReport struct {
	Uploaded         int
	TotalRecords     int
	TotalBatches     int
	CompletedBatches int
	Success          bool
	Batches          []BatchStat
	Duration         time.Duration
}

// Uploader sends records in fixed-size batches, one upsert at a time.
// It never retries: the first failing batch ends the upload.
type Uploader struct {
	// OnBatch, if set, is called after each successful batch.
	OnBatch func(BatchStat)

	logger *slog.Logger
}

// NewUploader creates an Uploader.
func NewUploader(logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{logger: logger}
}

// Upload partitions records into consecutive batches of at most batchSize and
// upserts them in order.
func (u *Uploader) Upload(ctx context.Context, target Upserter, records []storage.VectorRecord, batchSize int) (*UploadReport, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrUploadFailure, batchSize)
	}

	start := time.Now()
	total := len(records)
	report := &UploadReport{
		TotalRecords: total,
		TotalBatches: (total + batchSize - 1) / batchSize,
	}

	for seq, offset := 1, 0; offset < total; seq, offset = seq+1, offset+batchSize {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, fmt.Errorf("%w: canceled before batch %d: %w", ErrUploadFailure, seq, err)
		}

		batch := records[offset:min(offset+batchSize, total)]
		batchStart := time.Now()
		if err := target.Upsert(ctx, batch); err != nil {
			report.Duration = time.Since(start)
			u.logger.Error("Batch upload failed", "batch", seq, "size", len(batch), "error", err)
			return report, fmt.Errorf("%w: batch %d of %d: %w", ErrUploadFailure, seq, report.TotalBatches, err)
		}

		report.Uploaded += len(batch)
		report.CompletedBatches++
		stat := BatchStat{
			Seq:      seq,
			Size:     len(batch),
			Elapsed:  time.Since(batchStart),
			Uploaded: report.Uploaded,
			Percent:  float64(report.Uploaded) / float64(total) * 100,
		}
		report.Batches = append(report.Batches, stat)

		u.logger.Info("Uploaded batch",
			"batch", seq,
			"of", report.TotalBatches,
			"size", stat.Size,
			"elapsed", stat.Elapsed,
			"percent", fmt.Sprintf("%.1f", stat.Percent),
		)
		if u.OnBatch != nil {
			u.OnBatch(stat)
		}
	}

	report.Success = true
	report.Duration = time.Since(start)
	return report, nil
}

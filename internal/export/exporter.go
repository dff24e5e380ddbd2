// Package export renders the booking ledger as CSV, either streamed to
// the caller or archived to S3.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ashdownmotors/garage-platform/internal/ledger"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

// S3Client interface for S3 operations (allows mocking in tests)
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// csvHeader is the canonical column order for exported bookings.
var csvHeader = []string{
	"Timestamp", "Registration", "Name", "Email", "Phone",
	"Vehicle Make", "Vehicle Model", "Vehicle Year",
	"Services", "Price", "Notes", "Status",
}

const pageSize = 500

// Exporter produces CSV exports of the booking ledger.
type Exporter struct {
	repo   *ledger.Repository
	s3     S3Client
	bucket string
	prefix string
	logger *logging.Logger
}

// Config holds configuration for the Exporter.
type Config struct {
	Repo   *ledger.Repository
	S3     S3Client
	Bucket string
	Prefix string
	Logger *logging.Logger
}

// New creates an Exporter. S3 settings may be empty when only streamed
// exports are needed.
func New(cfg Config) *Exporter {
	if cfg.Repo == nil {
		panic("export: repo required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "bookings"
	}
	return &Exporter{
		repo:   cfg.Repo,
		s3:     cfg.S3,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: cfg.Logger,
	}
}

// Result describes a completed S3 export.
type Result struct {
	Rows         int    `json:"rows"`
	S3Key        string `json:"s3_key"`
	BytesWritten int64  `json:"bytes_written"`
}

// WriteCSV streams matching bookings as CSV and returns the row count.
// Prices carry the currency symbol here, at the presentation boundary.
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer, filter ledger.Filter) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("export: write header: %w", err)
	}

	rows := 0
	filter.Limit = pageSize
	for {
		records, _, err := e.repo.List(ctx, filter)
		if err != nil {
			return rows, fmt.Errorf("export: list bookings: %w", err)
		}
		for _, rec := range records {
			if err := cw.Write(recordRow(rec)); err != nil {
				return rows, fmt.Errorf("export: write row: %w", err)
			}
			rows++
		}
		if len(records) < pageSize {
			break
		}
		filter.Offset += pageSize
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("export: flush csv: %w", err)
	}
	return rows, nil
}

// ExportToS3 writes the CSV to the configured bucket and returns the key.
func (e *Exporter) ExportToS3(ctx context.Context, filter ledger.Filter) (*Result, error) {
	if e.s3 == nil || e.bucket == "" {
		return nil, fmt.Errorf("export: S3 not configured")
	}

	var buf bytes.Buffer
	rows, err := e.WriteCSV(ctx, &buf, filter)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("%s/%d/%02d/bookings_%s.csv",
		e.prefix, now.Year(), now.Month(), now.Format("20060102T150405Z"))

	_, err = e.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
		Metadata: map[string]string{
			"row_count": fmt.Sprintf("%d", rows),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("export: s3 upload failed: %w", err)
	}

	e.logger.Info("bookings exported to S3", "rows", rows, "s3_key", key)
	return &Result{
		Rows:         rows,
		S3Key:        key,
		BytesWritten: int64(buf.Len()),
	}, nil
}

func recordRow(rec ledger.Record) []string {
	return []string{
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.Vehicle.Registration,
		rec.Customer.Name,
		rec.Customer.Email,
		rec.Customer.Phone,
		rec.Vehicle.Make,
		rec.Vehicle.Model,
		rec.Vehicle.Year,
		ledger.JoinServices(rec.SelectedServices),
		ledger.FormatPrice(rec.TotalPrice),
		rec.Notes,
		string(rec.Status),
	}
}

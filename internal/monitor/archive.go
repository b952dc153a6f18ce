// Copyright 2025 James Ross
package monitor

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"
)

// S3Archiver uploads rotated (zstd-compressed) record files to S3, adapted
// from internal/long-term-archives/s3_exporter.go: same session/uploader
// setup, trimmed to "upload one already-compressed file" instead of
// serializing a batch of in-memory jobs.
type S3Archiver struct {
	cfg      S3Config
	uploader *s3manager.Uploader
	log      *zap.Logger
}

// NewS3Archiver opens an AWS session for cfg. A custom Endpoint (MinIO,
// LocalStack) forces path-style addressing.
func NewS3Archiver(cfg S3Config, log *zap.Logger) (*S3Archiver, error) {
	if log == nil {
		log = zap.NewNop()
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("monitor: create aws session: %w", err)
	}

	return &S3Archiver{cfg: cfg, uploader: s3manager.NewUploader(sess), log: log}, nil
}

// UploadRotatedFile uploads a single rotated record file under
// <KeyPrefix>/<queue>/<basename>.
func (a *S3Archiver) UploadRotatedFile(ctx context.Context, queue, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("monitor: open rotated file: %w", err)
	}
	defer f.Close()

	key := filepath.ToSlash(filepath.Join(a.cfg.KeyPrefix, queue, filepath.Base(path)))
	_, err = a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(a.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("monitor: upload to s3: %w", err)
	}

	a.log.Info("monitor: archived rotated record file to s3",
		zap.String("queue", queue), zap.String("key", key))
	return nil
}

// ClickHouseArchiver inserts Record rows into a ClickHouse table for
// SQL-queryable history, adapted from
// internal/long-term-archives/clickhouse_exporter.go.
type ClickHouseArchiver struct {
	db    *sql.DB
	table string
	log   *zap.Logger
}

// NewClickHouseArchiver opens a ClickHouse connection and ensures the target
// table exists.
func NewClickHouseArchiver(cfg ClickHouseConfig, log *zap.Logger) (*ClickHouseArchiver, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{cfg.DSN},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: 30 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("monitor: ping clickhouse: %w", err)
	}

	a := &ClickHouseArchiver{db: db, table: cfg.Table, log: log}
	if err := a.ensureTable(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *ClickHouseArchiver) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id String,
			queue String,
			received_at DateTime,
			payload String
		) ENGINE = MergeTree()
		ORDER BY (queue, received_at)
	`, a.table)
	if _, err := a.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("monitor: ensure clickhouse table: %w", err)
	}
	return nil
}

// Insert writes rec as one row.
func (a *ClickHouseArchiver) Insert(ctx context.Context, rec Record) error {
	query := fmt.Sprintf("INSERT INTO %s (id, queue, received_at, payload) VALUES (?, ?, ?, ?)", a.table)
	_, err := a.db.ExecContext(ctx, query, rec.ID, rec.Queue, rec.ReceivedAt, string(rec.Payload))
	if err != nil {
		return fmt.Errorf("monitor: insert clickhouse row: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (a *ClickHouseArchiver) Close() error {
	return a.db.Close()
}

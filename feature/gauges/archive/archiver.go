package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jancika1998-netizen/Water-Level/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Config holds configuration for the CSV export archiver.
type Config struct {
	// Enabled switches archiving on.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// Prefix is the object key prefix for archived exports.
	Prefix string `mapstructure:"prefix" default:"history/"`
}

// Archiver uploads fresh CSV exports of updated station histories to
// object storage after each sync cycle.
type Archiver struct {
	client storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// New creates an archiver writing into the given bucket.
func New(client storage.Client, bucket string, cfg Config, logger *zap.Logger) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: cfg.Prefix, logger: logger}
}

// EnsureBucket creates the archive bucket if it does not exist.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check archive bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create archive bucket: %w", err)
	}
	return nil
}

// ArchiveCSV uploads one station's CSV export, overwriting the previous
// object so the archive always holds the complete current history.
func (a *Archiver) ArchiveCSV(ctx context.Context, stationKey string, csv []byte) error {
	objectName := a.prefix + stationKey + ".csv"
	_, err := a.client.PutObject(ctx, a.bucket, objectName,
		bytes.NewReader(csv), int64(len(csv)),
		minio.PutObjectOptions{ContentType: "text/csv"})
	if err != nil {
		return fmt.Errorf("archive %s: %w", stationKey, err)
	}
	a.logger.Debug("history export archived",
		zap.String("station", stationKey), zap.Int("bytes", len(csv)))
	return nil
}

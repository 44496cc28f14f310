package store

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"visioniq.io/visioniq/pkg/log"
	"visioniq.io/visioniq/pkg/options"
)

const uploadTimeout = 30 * time.Second

// Archiver copies the log file to durable object storage.
type Archiver interface {
	// CheckBucket ensures the destination bucket exists.
	CheckBucket(ctx context.Context) error

	// Upload replaces the archived copy with the file at path.
	Upload(ctx context.Context, path string) error
}

type minioArchiver struct {
	client     *minio.Client
	bucketName string
	objectKey  string
}

// NewMinIOArchiver creates an S3 compatible archiver.
func NewMinIOArchiver(opts *options.S3Options) (Archiver, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &minioArchiver{
		client:     client,
		bucketName: opts.BucketName,
		objectKey:  opts.ObjectKey,
	}, nil
}

func (a *minioArchiver) CheckBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("Bucket does not exist, creating...", "bucket", a.bucketName)
		if err := a.client.MakeBucket(ctx, a.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

func (a *minioArchiver) Upload(ctx context.Context, path string) error {
	_, err := a.client.FPutObject(ctx, a.bucketName, a.objectKey, path, minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to %s/%s: %w", path, a.bucketName, a.objectKey, err)
	}
	return nil
}

var _ Store = (*ArchivingStore)(nil)

// ArchivingStore uploads the whole log after every successful append.
// Upload failures are logged and never fail the append.
type ArchivingStore struct {
	*CSVStore

	archiver Archiver
	logger   log.Logger
}

func NewArchivingStore(s *CSVStore, archiver Archiver) *ArchivingStore {
	return &ArchivingStore{
		CSVStore: s,
		archiver: archiver,
		logger:   log.WithName("store.archive"),
	}
}

func (a *ArchivingStore) Append(s Sample) error {
	if err := a.CSVStore.Append(s); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	if err := a.archiver.Upload(ctx, a.Path()); err != nil {
		a.logger.Error(err, "Failed to archive sample log")
	}
	return nil
}

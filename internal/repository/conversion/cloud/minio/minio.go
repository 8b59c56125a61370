package minio

import (
	"context"
	"fmt"
	"io"

	"pdf-rocket/internal/config"
	repo "pdf-rocket/internal/repository/conversion"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type FileRepository struct {
	client  *minio.Client
	bucket  string
	retries retry.Strategy
	logger  *zlog.Zerolog
}

func NewMinIORepository(cfg *config.Config, retries retry.Strategy, logger *zlog.Zerolog) (*FileRepository, error) {
	client, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	r := &FileRepository{
		client:  client,
		bucket:  cfg.Storage.Bucket,
		retries: retries,
		logger:  logger,
	}

	if err := r.ensureBucket(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRepository) ensureBucket(ctx context.Context) error {
	return retry.Do(func() error {
		exists, err := r.client.BucketExists(ctx, r.bucket)
		if err != nil {
			return fmt.Errorf("%w: failed to check bucket: %v", repo.ErrStorageError, err)
		}
		if exists {
			return nil
		}
		if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: failed to create bucket %s: %v", repo.ErrStorageError, r.bucket, err)
		}
		r.logger.Info().Str("bucket", r.bucket).Msg("Bucket created")
		return nil
	}, r.retries)
}

// SaveConverted uploads a converted document. The reader must be seekable for retries
// to resend the full body.
func (r *FileRepository) SaveConverted(ctx context.Context, path string, data io.ReadSeeker, size int64, contentType string) error {
	if path == "" || size <= 0 {
		return repo.ErrStorageValidation
	}

	return retry.Do(func() error {
		if _, err := data.Seek(0, io.SeekStart); err != nil {
			return err
		}
		_, err := r.client.PutObject(ctx, r.bucket, path, data, size, minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return fmt.Errorf("%w: failed to put %s: %v", repo.ErrStorageError, path, err)
		}
		return nil
	}, r.retries)
}

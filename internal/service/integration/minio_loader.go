package integration

import (
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type minioLoader struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewMinioLoader returns a loader that reads code bodies from a bucket. The
// object key is the submission's FileID, or assignment/submission/filename
// when FileID is unset.
func NewMinioLoader(ctx context.Context, cfg MinioConfig, logger zerolog.Logger) (ContentLoader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	return &minioLoader{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With().Str("component", "minio_loader").Logger(),
	}, nil
}

func (l *minioLoader) LoadContent(ctx context.Context, submission models.Submission) (string, error) {
	key := ObjectKey(submission)

	obj, err := l.client.GetObject(ctx, l.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := readLimited(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return "", fmt.Errorf("object %s: %w", key, ErrContentNotFound)
		}
		return "", fmt.Errorf("failed to read object %s: %w", key, err)
	}

	l.logger.Debug().
		Str("submission_id", submission.ID).
		Str("key", key).
		Int("size", len(data)).
		Msg("Loaded submission content")

	return string(data), nil
}

func ObjectKey(submission models.Submission) string {
	if submission.FileID != nil && *submission.FileID != "" {
		return *submission.FileID
	}
	return path.Join(submission.AssignmentID, submission.ID, submission.Filename)
}

// Package s3 archives raw bank statement files in an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"khata/internal/config"
	"khata/internal/domain"
	"khata/internal/port"
)

type archive struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewArchive creates an S3-backed ObjectStorage. Uploads without a bucket go
// to cfg.Bucket. A custom endpoint (MinIO, LocalStack) switches to path-style
// addressing.
func NewArchive(ctx context.Context, cfg config.S3Config) (port.ObjectStorage, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &archive{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
	}, nil
}

func (a *archive) bucketOr(bucket string) string {
	if bucket == "" {
		return a.bucket
	}
	return bucket
}

// Upload stores a statement with server-side encryption.
func (a *archive) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	bucket := a.bucketOr(input.Bucket)
	if bucket == "" {
		return nil, domain.ErrStorageMissing
	}
	put := &s3.PutObjectInput{
		Bucket:               aws.String(bucket),
		Key:                  aws.String(input.Key),
		Body:                 input.Body,
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	}
	if input.ContentType != "" {
		put.ContentType = aws.String(input.ContentType)
	}

	result, err := a.uploader.Upload(ctx, put)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	out := &port.UploadOutput{Location: result.Location}
	if result.ETag != nil {
		out.ETag = *result.ETag
	}
	return out, nil
}

// Download fetches an archived statement. A missing key maps to domain.ErrNotFound.
func (a *archive) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	result, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucketOr(bucket)),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("statement %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("s3 download: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 download read: %w", err)
	}
	return data, nil
}

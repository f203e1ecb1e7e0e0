// Package archive writes daily ledger exports to S3-compatible object
// storage as JSON lines.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	appconfig "nfc-wallet/config"
	"nfc-wallet/internal/core/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const contentType = "application/x-ndjson"

// S3API is the subset of the S3 client the archive needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive implements ports.LedgerArchive.
type S3Archive struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Archive wraps an existing client.
func NewS3Archive(client S3API, bucket, prefix string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client builds an S3 client from cfg. A custom endpoint switches to
// path-style addressing for MinIO and R2.
func NewS3Client(ctx context.Context, cfg appconfig.ArchiveConfig) (*s3.Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Key returns the object key for day: <prefix>/YYYY/MM/DD.jsonl.
func (a *S3Archive) Key(day time.Time) string {
	return path.Join(a.prefix, day.UTC().Format("2006/01/02")+".jsonl")
}

// Put uploads entries, one JSON object per line, and returns the key.
// Re-exporting a day overwrites the previous object.
func (a *S3Archive) Put(ctx context.Context, day time.Time, entries []domain.LedgerEntry) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return "", fmt.Errorf("encode ledger entry: %w", err)
		}
	}

	key := a.Key(day)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return key, nil
}

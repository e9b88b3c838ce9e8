// Copyright (c) 2026 Imma Platform. All rights reserved.

/*
Package objstore implements blob storage for uploaded documents.

The domain layer only depends on the [Storer] contract: store a blob, get a
stable URL back. The S3 implementation targets any S3-compatible endpoint
(AWS, Cloudflare R2, MinIO) via aws-sdk-go-v2.
*/
package objstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Storer is the opaque "store blob, return reference" capability consumed
// by registration and scholarship workflows.
type Storer interface {
	// Store persists the blob under a derived unique key and returns the
	// public URL to be persisted as a reference string.
	Store(ctx context.Context, filename, contentType string, blob []byte) (string, error)
}

// Config holds the S3 connection settings.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional: custom endpoint for R2/MinIO
	AccessKey string
	SecretKey string
}

// S3Store implements [Storer] against an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds the S3 client from static credentials.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("objstore: bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("objstore: failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		if cfg.Endpoint != "" {
			options.BaseEndpoint = aws.String(cfg.Endpoint)
			// Path-style addressing is required by most non-AWS endpoints.
			options.UsePathStyle = true
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// Store uploads the blob and returns its public URL.
func (store *S3Store) Store(ctx context.Context, filename, contentType string, blob []byte) (string, error) {
	key := objectKey(filename)

	_, err := store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(store.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(blob),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("objstore: put failed: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", store.bucket, key), nil
}

// objectKey derives a collision-free object key, partitioned by upload date
// so the bucket stays browsable.
func objectKey(filename string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("uploads/%d/%02d/%02d/%s_%s",
		now.Year(), now.Month(), now.Day(), uuid.NewString(), sanitize(filename))
}

// sanitize strips path separators and whitespace from a client filename.
func sanitize(filename string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_", "..", "_")
	cleaned := replacer.Replace(filename)
	if cleaned == "" {
		return "document"
	}
	return cleaned
}

// # Disabled Store

// DisabledStore rejects every upload. Used when no bucket is configured so
// upload-bearing endpoints fail loudly instead of silently dropping files.
type DisabledStore struct{}

// NewDisabledStore returns a Storer with uploads turned off.
func NewDisabledStore() *DisabledStore {
	return &DisabledStore{}
}

// Store implements [Storer] by refusing the blob.
func (store *DisabledStore) Store(ctx context.Context, filename, contentType string, blob []byte) (string, error) {
	return "", fmt.Errorf("objstore: object storage is not configured")
}

package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options holds the configuration for creating an S3Store.
type S3Options struct {
	Region    string
	Bucket    string
	KeyPrefix string

	// ArchivePrefix, when non-empty, makes FetchBody copy the object under
	// this prefix before reading it, so processed mail is distinguishable
	// from unprocessed mail in the bucket.
	ArchivePrefix string
}

// S3API is the subset of the S3 client the store uses.
// Used for testing with mock implementations.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// S3Store fetches stored messages from an S3 bucket. The object key is the
// configured key prefix followed by the message id.
type S3Store struct {
	client        S3API
	bucket        string
	keyPrefix     string
	archivePrefix string
}

// NewS3 creates an S3Store with a client built from the default AWS
// configuration chain and the configured region.
func NewS3(ctx context.Context, opts S3Options) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewS3WithClient(opts, s3.NewFromConfig(awsCfg)), nil
}

// NewS3WithClient creates an S3Store with a custom client, used for testing.
func NewS3WithClient(opts S3Options, client S3API) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        opts.Bucket,
		keyPrefix:     opts.KeyPrefix,
		archivePrefix: opts.ArchivePrefix,
	}
}

// FetchBody reads the whole stored message. When an archive prefix is
// configured the object is first copied there; a failed copy is logged but
// never fails the fetch, so archival problems cannot lose a forward.
func (s *S3Store) FetchBody(ctx context.Context, messageID string) (string, error) {
	key := s.keyPrefix + messageID

	if s.archivePrefix != "" {
		_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(s.bucket),
			CopySource: aws.String(s.bucket + "/" + key),
			Key:        aws.String(s.archivePrefix + messageID),
		})
		if err != nil {
			slog.Warn("failed to archive stored message",
				"bucket", s.bucket,
				"key", key,
				"error", err,
			)
		}
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read s3://%s/%s: %w", s.bucket, key, err)
	}

	return string(data), nil
}

package objectstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

// Stats is the result of a recursive bucket listing.
type Stats struct {
	SizeBytes   int64
	ObjectCount int64
}

// Store is the read-only view of the object store the metering engine
// consumes. Implemented by Client against any S3-compatible backend.
type Store interface {
	BucketExists(ctx context.Context, name string) (bool, error)
	StatBucket(ctx context.Context, name string) (Stats, error)
	ListBucketNames(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// Config holds the connection settings for an S3-compatible endpoint.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// Client wraps the AWS S3 SDK configured for a custom S3-compatible endpoint
// (path-style addressing, static credentials).
type Client struct {
	s3     *s3.Client
	logger zerolog.Logger
}

func NewClient(logger zerolog.Logger, cfg Config) *Client {
	return &Client{
		s3: s3.New(s3.Options{
			BaseEndpoint: aws.String(cfg.Endpoint),
			Region:       cfg.Region,
			Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
			UsePathStyle: true,
		}),
		logger: logger.With().Str("component", "objectstore").Logger(),
	}
}

// BucketExists checks for the bucket via HeadBucket, distinguishing a missing
// bucket from other failures.
func (c *Client) BucketExists(ctx context.Context, name string) (bool, error) {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head bucket %s: %w", name, err)
	}
	return true, nil
}

// StatBucket performs a recursive listing over all pages and sums object
// sizes. A bucket with millions of objects is traversed in full; the listing
// is never capped at a single page.
func (c *Client) StatBucket(ctx context.Context, name string) (Stats, error) {
	var stats Stats

	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(name),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return Stats{}, fmt.Errorf("list objects in %s: %w", name, err)
		}
		for _, obj := range page.Contents {
			if obj.Size != nil {
				stats.SizeBytes += *obj.Size
			}
			stats.ObjectCount++
		}
	}

	return stats, nil
}

// ListBucketNames returns the names of all buckets visible to the configured
// credentials.
func (c *Client) ListBucketNames(ctx context.Context) ([]string, error) {
	out, err := c.s3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		if b.Name != nil {
			names = append(names, *b.Name)
		}
	}
	return names, nil
}

// Ping verifies the endpoint is reachable and the credentials are accepted.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.s3.ListBuckets(ctx, &s3.ListBucketsInput{}); err != nil {
		return fmt.Errorf("object store unreachable: %w", err)
	}
	return nil
}

// IsNotFound reports whether err is a missing-bucket condition
// (NoSuchBucket / NotFound / HTTP 404).
func IsNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "NotFound":
			return true
		}
	}
	return false
}

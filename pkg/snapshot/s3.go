package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the part of *s3.Client used by S3Sink.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink writes snapshot documents to an S3 bucket.
//
// Example usage:
//
//	client, err := snapshot.NewS3Client(ctx, "us-east-1", "")
//	sink := snapshot.NewS3Sink(client, "my-bucket", "reaxar/")
type S3Sink struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Sink creates a sink writing to bucket under prefix.
func NewS3Sink(client PutObjectAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// Put uploads data as prefix+name.
func (s *S3Sink) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"snapshot-time": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}

// NewS3Client builds an S3 client from the default AWS configuration chain:
// environment variables, shared config and credentials files, SSO and
// instance roles. A non-empty region overrides the configured one. A
// non-empty endpoint selects an S3-compatible server and path-style
// addressing.
func NewS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

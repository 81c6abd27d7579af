package durable

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/larder"
)

// S3Config configures the S3-backed durable tier. It works with AWS S3
// and S3-compatible services such as MinIO.
type S3Config struct {
	// Bucket holding the cache records. Required.
	Bucket string
	// AccessKey and SecretKey are static credentials. Required.
	AccessKey string
	SecretKey string
	// Endpoint overrides the AWS endpoint for S3-compatible services.
	Endpoint string
	// Region defaults to us-east-1.
	Region string
	// PathStyle forces path-style addressing, required by MinIO.
	PathStyle bool
}

func (c *S3Config) applyDefaults() {
	if c.Region == "" {
		c.Region = "us-east-1"
	}
}

func (c S3Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("%w: missing bucket", ErrInvalidConfig)
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("%w: missing credentials", ErrInvalidConfig)
	}
	return nil
}

// S3 is a Durable implementation that stores each record as an object in
// a bucket. The record key is used as the object key unchanged.
type S3 struct {
	client *s3.Client
	bucket string
}

var _ larder.Durable = (*S3)(nil)

// NewS3 creates an S3-backed durable tier from the given config.
func NewS3(cfg S3Config) (*S3, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := s3.New(s3.Options{}, func(o *s3.Options) {
		o.Region = cfg.Region
		o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.PathStyle
		}
	})

	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// Get returns the record stored under key, or larder.ErrNotFound.
func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapS3Error(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("durable: read object body: %w", err)
	}
	return data, nil
}

// Set stores data under key, replacing any previous record.
func (s *S3) Set(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/octet-stream"),
	})
	return err
}

// Delete removes the record under key. S3 reports success for missing
// objects, so deleting a missing key is not an error.
func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// Keys returns all object keys that start with prefix. S3 lists objects
// in lexicographic order already.
func (s *S3) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// wrapS3Error maps S3 not-found responses to larder.ErrNotFound and
// passes everything else through unchanged.
func wrapS3Error(err error) error {
	var notFound *types.NoSuchKey
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", larder.ErrNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %v", larder.ErrNotFound, err)
		}
	}
	return err
}

package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const contentTypeXML = "application/xml"

// Sink stores a finished export document under a key and returns where
// it went.
type Sink interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
}

// FileSink writes documents below a local directory.
type FileSink struct {
	Dir string
}

// Put writes r to Dir/key, creating directories as needed.
func (s FileSink) Put(_ context.Context, key string, r io.Reader) (string, error) {
	dest := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close output file: %w", err)
	}
	return dest, nil
}

// S3Config holds S3 sink settings. Endpoint and PathStyle allow
// S3-compatible stores such as MinIO.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	Prefix    string
	PathStyle bool
}

// S3Sink uploads documents to a bucket.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Sink creates an S3 sink using the default AWS credential chain.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Sink{client: client, bucket: cfg.Bucket, prefix: strings.Trim(cfg.Prefix, "/")}, nil
}

// Put uploads r as an XML object and returns its s3:// URL.
func (s *S3Sink) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if s.prefix != "" {
		key = path.Join(s.prefix, key)
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentTypeXML),
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", s.bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

// utils/r2.go
package utils

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	// CDNBaseURL is prefixed to object keys in returned URLs. Defaults to the
	// bucket's R2 endpoint.
	CDNBaseURL string
	// Endpoint overrides the R2 endpoint, e.g. for an S3-compatible emulator.
	Endpoint string
}

// R2Storage stores campaign videos in a Cloudflare R2 bucket through the S3 API.
type R2Storage struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewR2Storage(ctx context.Context, cfg R2Config) (*R2Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("r2: bucket name is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}
	cdnBaseURL := strings.TrimRight(cfg.CDNBaseURL, "/")
	if cdnBaseURL == "" {
		cdnBaseURL = endpoint + "/" + cfg.Bucket
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &R2Storage{client: client, bucket: cfg.Bucket, cdnBaseURL: cdnBaseURL}, nil
}

// Upload puts the multipart file at key and returns its public URL.
func (r *R2Storage) Upload(ctx context.Context, key string, fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(fileHeader.Size),
		ContentType:   aws.String(fileHeader.Header.Get("Content-Type")),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return fmt.Sprintf("%s/%s", r.cdnBaseURL, key), nil
}

package fetch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// parseS3URL parses "s3://bucket/path/to/object" into bucket and key.
func parseS3URL(rawURL string) (bucket, key string, err error) {
	if !strings.HasPrefix(rawURL, "s3://") {
		return "", "", fmt.Errorf("invalid S3 url: must start with s3://")
	}

	path := strings.TrimPrefix(rawURL, "s3://")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid S3 url: missing bucket name")
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid S3 url: missing object key")
	}

	return parts[0], parts[1], nil
}

// fetchS3 downloads an s3:// object to destPath using the default AWS
// credential chain.
func (f *Fetcher) fetchS3(ctx context.Context, rawURL, destPath string, progress ProgressFunc) error {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return err
	}

	var cfgOpts []func(*config.LoadOptions) error
	if f.s3Region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(f.s3Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if f.s3Endpoint != "" {
			o.BaseEndpoint = aws.String(f.s3Endpoint)
		}
	})

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("reading s3://%s/%s: %w", bucket, key, err)
	}
	defer result.Body.Close()

	var total int64
	if result.ContentLength != nil {
		total = *result.ContentLength
	}

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	return copyTo(ctx, file, result.Body, 0, total, progress)
}

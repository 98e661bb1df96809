package fetch

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/storage"
)

// parseGCSURL parses "gs://bucket/path/to/object" into bucket and key.
func parseGCSURL(rawURL string) (bucket, key string, err error) {
	if !strings.HasPrefix(rawURL, "gs://") {
		return "", "", fmt.Errorf("invalid GCS url: must start with gs://")
	}

	path := strings.TrimPrefix(rawURL, "gs://")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("invalid GCS url: missing bucket name")
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS url: missing object key")
	}

	return parts[0], parts[1], nil
}

// fetchGCS downloads a gs:// object to destPath.
func (f *Fetcher) fetchGCS(ctx context.Context, rawURL, destPath string, progress ProgressFunc) error {
	bucket, key, err := parseGCSURL(rawURL)
	if err != nil {
		return err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating GCS client: %w", err)
	}
	defer client.Close()

	reader, err := client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("opening gs://%s/%s: %w", bucket, key, err)
	}
	defer reader.Close()

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	return copyTo(ctx, file, reader, 0, reader.Attrs.Size, progress)
}

// Package fetch retrieves trace files from remote locations.
//
// Traces are addressed by URL: http:// and https:// downloads support
// resuming a partial file, gs:// reads from Google Cloud Storage, and
// s3:// reads from AWS S3. The fetched bytes are written verbatim;
// decompression happens at read time in the trace package.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
)

// DefaultResponseHeaderTimeout bounds the wait for response headers.
const DefaultResponseHeaderTimeout = 30 * time.Second

// Progress reports how far a fetch has advanced. BytesTotal is zero
// when the remote side does not report a length.
type Progress struct {
	BytesFetched int64
	BytesTotal   int64
}

// ProgressFunc receives periodic Progress updates during a fetch.
type ProgressFunc func(Progress)

// Fetcher downloads trace files to local paths.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger

	s3Region   string
	s3Endpoint string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithS3Region sets the AWS region for s3:// fetches.
func WithS3Region(region string) Option {
	return func(f *Fetcher) {
		f.s3Region = region
	}
}

// WithS3Endpoint sets a custom endpoint for s3:// fetches, for
// S3-compatible services like MinIO.
func WithS3Endpoint(endpoint string) Option {
	return func(f *Fetcher) {
		f.s3Endpoint = endpoint
	}
}

// New creates a Fetcher with sensible defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: 0, // No overall timeout - large traces take a while.
			Transport: &http.Transport{
				ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL to destPath, dispatching on the URL scheme.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, destPath string, progress ProgressFunc) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parsing url: %w", err)
	}

	f.logger.Info("fetching trace",
		zap.String("url", rawURL),
		zap.String("dest", destPath),
	)

	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, rawURL, destPath, progress)
	case "gs":
		return f.fetchGCS(ctx, rawURL, destPath, progress)
	case "s3":
		return f.fetchS3(ctx, rawURL, destPath, progress)
	default:
		return fmt.Errorf("unsupported scheme %q in %s", u.Scheme, rawURL)
	}
}

// copyTo streams body into file, reporting progress as it goes.
func copyTo(ctx context.Context, file *os.File, body io.Reader, written, total int64, progress ProgressFunc) error {
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			if _, writeErr := file.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("writing file: %w", writeErr)
			}
			written += int64(n)
			if progress != nil {
				progress(Progress{BytesFetched: written, BytesTotal: total})
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
	}
}

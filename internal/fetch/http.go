package fetch

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
)

// fetchHTTP downloads a URL to destPath with resume support: if a
// partial file exists, a Range request continues where it left off.
func (f *Fetcher) fetchHTTP(ctx context.Context, url, destPath string, progress ProgressFunc) error {
	var existingSize int64
	if info, err := os.Stat(destPath); err == nil {
		existingSize = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if existingSize > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", existingSize))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var totalSize int64
	if resp.StatusCode == http.StatusPartialContent {
		// Content-Range: bytes 500-1233/1234
		if contentRange := resp.Header.Get("Content-Range"); contentRange != "" {
			var start, end int64
			if _, err := fmt.Sscanf(contentRange, "bytes %d-%d/%d", &start, &end, &totalSize); err != nil {
				totalSize = existingSize + resp.ContentLength
			}
		}
	} else {
		totalSize = resp.ContentLength
		existingSize = 0 // Server ignored the range, start over.
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if existingSize > 0 {
		flags = os.O_WRONLY | os.O_APPEND
	}
	file, err := os.OpenFile(destPath, flags, 0o644)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	return copyTo(ctx, file, resp.Body, existingSize, totalSize, progress)
}

// ContentLength returns the size of an HTTP resource without
// downloading it, or zero if the server does not report one.
func (f *Fetcher) ContentLength(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	lengthStr := resp.Header.Get("Content-Length")
	if lengthStr == "" {
		return 0, nil
	}
	return strconv.ParseInt(lengthStr, 10, 64)
}

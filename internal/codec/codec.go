// Package codec provides compression and decompression for trace files.
//
// Production traces ship compressed (the common formats are zstd and gzip);
// the reader picks a codec from the file extension so callers never care
// which one a given trace uses.
package codec

import (
	"compress/gzip"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Codec provides compression and decompression functionality.
type Codec interface {
	// Reader wraps r to decompress data read from it.
	Reader(r io.Reader) (io.ReadCloser, error)
	// Writer wraps w to compress data written to it.
	Writer(w io.Writer) (io.WriteCloser, error)
	// Extension returns the file extension without dot (e.g., "zst", "gz").
	// Returns empty string for no compression.
	Extension() string
}

// ForPath returns the codec matching the path's extension: Zstd for .zst,
// Gzip for .gz, Noop for everything else.
func ForPath(path string) Codec {
	switch {
	case strings.HasSuffix(path, ".zst"):
		return Zstd{}
	case strings.HasSuffix(path, ".gz"):
		return Gzip{}
	default:
		return Noop{}
	}
}

// Zstd implements zstd compression.
type Zstd struct{}

// Compile-time check that Zstd implements Codec.
var _ Codec = Zstd{}

// Reader wraps r to decompress zstd data.
func (Zstd) Reader(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// Writer wraps w to compress data with zstd.
func (Zstd) Writer(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

// Extension returns "zst".
func (Zstd) Extension() string { return "zst" }

// Gzip implements gzip compression.
type Gzip struct{}

// Compile-time check that Gzip implements Codec.
var _ Codec = Gzip{}

// Reader wraps r to decompress gzip data.
func (Gzip) Reader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// Writer wraps w to compress data with gzip.
func (Gzip) Writer(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

// Extension returns "gz".
func (Gzip) Extension() string { return "gz" }

// Noop implements no compression.
type Noop struct{}

// Compile-time check that Noop implements Codec.
var _ Codec = Noop{}

// Reader returns r wrapped as a ReadCloser (no decompression).
func (Noop) Reader(r io.Reader) (io.ReadCloser, error) {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc, nil
	}
	return io.NopCloser(r), nil
}

// Writer returns w wrapped as a WriteCloser (no compression).
func (Noop) Writer(w io.Writer) (io.WriteCloser, error) {
	if wc, ok := w.(io.WriteCloser); ok {
		return wc, nil
	}
	return nopWriteCloser{w}, nil
}

// Extension returns empty string.
func (Noop) Extension() string { return "" }

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

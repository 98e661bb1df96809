// Package trace reads access traces for replay through the simulator.
//
// A trace is a delimited text file with one access per line; the format
// describes which columns carry the key and the object size, matching the
// column-oriented layouts the public block and CDN traces ship in. Files
// may be zstd- or gzip-compressed; compression is detected from the
// extension.
package trace

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cachelab/cachesim"
	"github.com/cachelab/cachesim/internal/codec"
)

// Format describes how to extract requests from a delimited trace file.
type Format struct {
	// KeyColumn is the zero-based column holding the object key.
	KeyColumn int

	// SizeColumn is the zero-based column holding the object size.
	// Negative means the trace has no size column and every object gets
	// size 1 (object count, not bytes, consumes the capacity).
	SizeColumn int

	// Delimiter separates columns. Defaults to ',' when zero.
	Delimiter rune

	// HasHeader skips the first line when true.
	HasHeader bool
}

// DefaultFormat is key in column 0, size in column 1, comma-delimited,
// no header.
func DefaultFormat() Format {
	return Format{KeyColumn: 0, SizeColumn: 1, Delimiter: ','}
}

// UnitSizeFormat is key in column 0 with all sizes fixed at 1.
func UnitSizeFormat() Format {
	return Format{KeyColumn: 0, SizeColumn: -1, Delimiter: ','}
}

// Reader streams requests from a trace file.
type Reader struct {
	rc     io.ReadCloser
	file   *os.File
	csv    *csv.Reader
	format Format
	line   int
}

// Compile-time check that Reader implements cachesim.Source.
var _ cachesim.Source = (*Reader)(nil)

// Open opens a trace file for reading, decompressing by extension.
func Open(path string, format Format) (*Reader, error) {
	if format.Delimiter == 0 {
		format.Delimiter = ','
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace: %w", err)
	}

	rc, err := codec.ForPath(path).Reader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decompressing trace: %w", err)
	}

	cr := csv.NewReader(rc)
	cr.Comma = format.Delimiter
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	r := &Reader{rc: rc, file: f, csv: cr, format: format}

	if format.HasHeader {
		if _, err := cr.Read(); err != nil && !errors.Is(err, io.EOF) {
			r.Close()
			return nil, fmt.Errorf("reading trace header: %w", err)
		}
		r.line++
	}

	return r, nil
}

// Next returns the next request, or io.EOF at end of trace.
func (r *Reader) Next() (cachesim.Request, error) {
	record, err := r.csv.Read()
	if errors.Is(err, io.EOF) {
		return cachesim.Request{}, io.EOF
	}
	if err != nil {
		return cachesim.Request{}, fmt.Errorf("reading trace: %w", err)
	}
	r.line++

	if r.format.KeyColumn >= len(record) {
		return cachesim.Request{}, fmt.Errorf("trace line %d: no key column %d in %d fields", r.line, r.format.KeyColumn, len(record))
	}
	req := cachesim.Request{Key: record[r.format.KeyColumn], Size: 1}
	if req.Key == "" {
		return cachesim.Request{}, fmt.Errorf("trace line %d: empty key", r.line)
	}

	if r.format.SizeColumn >= 0 {
		if r.format.SizeColumn >= len(record) {
			return cachesim.Request{}, fmt.Errorf("trace line %d: no size column %d in %d fields", r.line, r.format.SizeColumn, len(record))
		}
		size, err := strconv.ParseInt(record[r.format.SizeColumn], 10, 64)
		if err != nil {
			return cachesim.Request{}, fmt.Errorf("trace line %d: parsing size: %w", r.line, err)
		}
		if size <= 0 {
			return cachesim.Request{}, fmt.Errorf("trace line %d: size must be positive, got %d", r.line, size)
		}
		req.Size = size
	}

	return req, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	if err := r.rc.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// ReadAll reads an entire trace file into memory.
func ReadAll(path string, format Format) ([]cachesim.Request, error) {
	r, err := Open(path, format)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var requests []cachesim.Request
	for {
		req, err := r.Next()
		if errors.Is(err, io.EOF) {
			return requests, nil
		}
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
}

// Write writes requests to a trace file in key,size form, compressing by
// extension. Used by the generator and by tests.
func Write(path string, requests []cachesim.Request) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace: %w", err)
	}

	wc, err := codec.ForPath(path).Writer(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("compressing trace: %w", err)
	}

	cw := csv.NewWriter(wc)
	for _, req := range requests {
		if err := cw.Write([]string{req.Key, strconv.FormatInt(req.Size, 10)}); err != nil {
			wc.Close()
			f.Close()
			return fmt.Errorf("writing trace: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		wc.Close()
		f.Close()
		return fmt.Errorf("writing trace: %w", err)
	}

	if err := wc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Footprint returns the total size of the distinct keys in the trace,
// counting the last size seen per key. Capacity fractions in batch
// evaluations are expressed relative to this.
func Footprint(requests []cachesim.Request) int64 {
	sizes := make(map[string]int64, len(requests))
	for _, req := range requests {
		sizes[req.Key] = req.Size
	}
	var total int64
	for _, size := range sizes {
		total += size
	}
	return total
}

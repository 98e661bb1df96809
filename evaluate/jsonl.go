package evaluate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cachelab/cachesim/internal/codec"
)

// WriteJSONL writes entries as one JSON object per line.
func WriteJSONL(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return fmt.Errorf("encoding entry %d: %w", i, err)
		}
	}
	return nil
}

// ReadJSONL reads entries written by WriteJSONL.
func ReadJSONL(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// WriteFile writes entries to path, compressing by extension the same
// way traces are (.zst, .gz, or plain).
func WriteFile(path string, entries []Entry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer file.Close()

	w, err := codec.ForPath(path).Writer(file)
	if err != nil {
		return err
	}
	if err := WriteJSONL(w, entries); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return file.Close()
}

// ReadFile reads entries from path, decompressing by extension.
func ReadFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	r, err := codec.ForPath(path).Reader(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return ReadJSONL(r)
}

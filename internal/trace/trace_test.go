package trace

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cachelab/cachesim"
)

func writeTempTrace(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing temp trace: %v", err)
	}
	return path
}

func TestReader_DefaultFormat(t *testing.T) {
	path := writeTempTrace(t, "trace.csv", "a,100\nb,200\na,100\n")

	requests, err := ReadAll(path, DefaultFormat())
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	want := []cachesim.Request{
		{Key: "a", Size: 100},
		{Key: "b", Size: 200},
		{Key: "a", Size: 100},
	}
	if len(requests) != len(want) {
		t.Fatalf("ReadAll() returned %d requests, want %d", len(requests), len(want))
	}
	for i := range want {
		if requests[i] != want[i] {
			t.Errorf("request %d = %+v, want %+v", i, requests[i], want[i])
		}
	}
}

func TestReader_HeaderAndDelimiter(t *testing.T) {
	path := writeTempTrace(t, "trace.tsv", "ts\tkey\tsize\n1\tx\t42\n2\ty\t7\n")

	format := Format{KeyColumn: 1, SizeColumn: 2, Delimiter: '\t', HasHeader: true}
	requests, err := ReadAll(path, format)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	if len(requests) != 2 {
		t.Fatalf("ReadAll() returned %d requests, want 2", len(requests))
	}
	if requests[0].Key != "x" || requests[0].Size != 42 {
		t.Errorf("request 0 = %+v, want {x 42}", requests[0])
	}
}

func TestReader_UnitSize(t *testing.T) {
	path := writeTempTrace(t, "trace.csv", "a\nb\nc\n")

	requests, err := ReadAll(path, UnitSizeFormat())
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	for i, req := range requests {
		if req.Size != 1 {
			t.Errorf("request %d size = %d, want 1", i, req.Size)
		}
	}
}

func TestReader_BadSize(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{name: "non-numeric", contents: "a,abc\n"},
		{name: "zero", contents: "a,0\n"},
		{name: "negative", contents: "a,-5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempTrace(t, "trace.csv", tt.contents)
			if _, err := ReadAll(path, DefaultFormat()); err == nil {
				t.Error("ReadAll() expected error, got nil")
			}
		})
	}
}

func TestReader_Compressed(t *testing.T) {
	for _, ext := range []string{".gz", ".zst"} {
		path := filepath.Join(t.TempDir(), "trace.csv"+ext)
		want := []cachesim.Request{{Key: "a", Size: 1}, {Key: "b", Size: 2}}
		if err := Write(path, want); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		got, err := ReadAll(path, DefaultFormat())
		if err != nil {
			t.Fatalf("ReadAll(%s) error = %v", ext, err)
		}
		if len(got) != len(want) {
			t.Fatalf("ReadAll(%s) returned %d requests, want %d", ext, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s request %d = %+v, want %+v", ext, i, got[i], want[i])
			}
		}
	}
}

func TestReader_NextEOF(t *testing.T) {
	path := writeTempTrace(t, "trace.csv", "a,1\n")
	r, err := Open(path, DefaultFormat())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	if _, err := r.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestSplit(t *testing.T) {
	requests := Generate(GeneratorSpec{Keys: 10, Requests: 100, Seed: 1})

	train, test := Split(requests, 0.7)
	if len(train) != 70 || len(test) != 30 {
		t.Errorf("Split() = %d/%d, want 70/30", len(train), len(test))
	}

	train, test = Split(requests, 0)
	if len(train) != 0 || len(test) != 100 {
		t.Errorf("Split(0) = %d/%d, want 0/100", len(train), len(test))
	}
}

func TestSampleByKey_Deterministic(t *testing.T) {
	requests := Generate(GeneratorSpec{Keys: 50, Requests: 500, Seed: 2})

	s1 := SampleByKey(requests, 0.5)
	s2 := SampleByKey(requests, 0.5)
	if len(s1) != len(s2) {
		t.Fatalf("SampleByKey() lengths differ: %d vs %d", len(s1), len(s2))
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			t.Fatalf("SampleByKey() not deterministic at %d", i)
		}
	}

	// Every retained key keeps all its accesses.
	kept := make(map[string]int)
	for _, req := range s1 {
		kept[req.Key]++
	}
	total := make(map[string]int)
	for _, req := range requests {
		total[req.Key]++
	}
	for key, n := range kept {
		if n != total[key] {
			t.Errorf("key %q sampled %d of %d accesses", key, n, total[key])
		}
	}
}

func TestGenerate_Reproducible(t *testing.T) {
	spec := GeneratorSpec{Keys: 20, Requests: 200, MaxSize: 64, Skew: 1.3, Seed: 42}

	a := Generate(spec)
	b := Generate(spec)
	if len(a) != len(b) {
		t.Fatalf("Generate() lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Generate() not reproducible at %d: %+v vs %+v", i, a[i], b[i])
		}
	}

	for i, req := range a {
		if req.Size < 1 || req.Size > spec.MaxSize {
			t.Errorf("request %d size = %d, want 1..%d", i, req.Size, spec.MaxSize)
		}
	}
}

func TestFootprint(t *testing.T) {
	requests := []cachesim.Request{
		{Key: "a", Size: 10},
		{Key: "b", Size: 20},
		{Key: "a", Size: 10},
	}
	if got := Footprint(requests); got != 30 {
		t.Errorf("Footprint() = %d, want 30", got)
	}
}

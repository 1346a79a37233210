package localfs

import (
	"os"
	"strings"
	"testing"
)

func TestStageWritesAndRemoveDeletes(t *testing.T) {
	staging, err := NewStaging(t.TempDir())
	if err != nil {
		t.Fatalf("NewStaging() error = %v", err)
	}

	path, err := staging.Stage("rx scan 1.png", []byte("bytes"))
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if !strings.Contains(path, "_rx_scan_1.png") {
		t.Fatalf("expected sanitized suffix, got %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(raw) != "bytes" {
		t.Fatalf("unexpected staged content %q", raw)
	}

	if err := staging.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected staged file gone, stat err = %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	staging, err := NewStaging(t.TempDir())
	if err != nil {
		t.Fatalf("NewStaging() error = %v", err)
	}
	path, err := staging.Stage("rx.png", []byte("x"))
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if err := staging.Remove(path); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := staging.Remove(path); err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}
}

package filetype

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dalibo/logsift/internal/cancel"
)

func TestProcessPathTextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "syslog.log")
	content := "2024-03-05T10:00:00 host svc[1]: hello world, this is a log line\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	results := ProcessPath(path, cancel.NewController().TempFile)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Status != Valid {
		t.Fatalf("Status = %v, want Valid", results[0].Status)
	}
	if results[0].FileType.Kind != KindTextSyslog {
		t.Errorf("Kind = %v, want text", results[0].FileType.Kind)
	}
}

func TestProcessPathEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.log")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	results := ProcessPath(path, cancel.NewController().TempFile)
	if len(results) != 1 || results[0].Status != ErrEmpty {
		t.Fatalf("got %+v, want single ErrEmpty", results)
	}
}

func TestProcessPathTooSmall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.log")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	results := ProcessPath(path, cancel.NewController().TempFile)
	if len(results) != 1 || results[0].Status != ErrTooSmall {
		t.Fatalf("got %+v, want single ErrTooSmall", results)
	}
}

func TestProcessPathNotExist(t *testing.T) {
	results := ProcessPath("/nonexistent/path/to/nowhere.log", cancel.NewController().TempFile)
	if len(results) != 1 || results[0].Status != ErrNotExist {
		t.Fatalf("got %+v, want single ErrNotExist", results)
	}
}

func TestProcessPathDirectoryRecursesAndSkipsKnownExtensions(t *testing.T) {
	dir := t.TempDir()
	content := "2024-03-05T10:00:00 host svc[1]: hello world, this is a log line\n"
	if err := os.WriteFile(filepath.Join(dir, "a.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "image.png"), []byte("not a log but long enough"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	results := ProcessPath(dir, cancel.NewController().TempFile)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (png skipped)", len(results))
	}
	if results[0].Status != Valid {
		t.Errorf("Status = %v, want Valid", results[0].Status)
	}
}

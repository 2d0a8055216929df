package sysline

import (
	"os"
	"testing"
	"time"

	"github.com/dalibo/logsift/internal/block"
	"github.com/dalibo/logsift/internal/lineio"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	f, err := os.CreateTemp("", "sysline-*.tmp")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	f.Write(data)
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func newReader(t *testing.T, data []byte) *Reader {
	t.Helper()
	path := writeTempFile(t, data)
	br, err := block.OpenPlain(path, 64)
	if err != nil {
		t.Fatalf("OpenPlain: %v", err)
	}
	t.Cleanup(func() { br.Close() })
	lr, err := lineio.New(br)
	if err != nil {
		t.Fatalf("lineio.New: %v", err)
	}
	return New(lr, block.FileOffset(len(data)), 2024, time.UTC)
}

const sampleLog = `2024-03-05T10:00:00 host service[1]: starting up
  continuation of previous line
2024-03-05T10:00:01 host service[1]: second message
2024-03-05T10:00:02 host service[1]: third message
`

func TestLearnAdoptsISO8601(t *testing.T) {
	r := newReader(t, []byte(sampleLog))
	if err := r.Learn(); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if r.PatternIndex() != 3 {
		t.Errorf("PatternIndex() = %d, want 3 (iso8601)", r.PatternIndex())
	}
}

func TestNextGroupsContinuationLines(t *testing.T) {
	r := newReader(t, []byte(sampleLog))
	if err := r.Learn(); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	sys, status, err := r.Next(0)
	if err != nil || status != block.Found {
		t.Fatalf("Next(0) = (%v, %v, %v)", sys, status, err)
	}
	if len(sys.Lines) != 2 {
		t.Fatalf("got %d lines, want 2 (main + continuation)", len(sys.Lines))
	}
	if sys.DateTimeL.Hour() != 10 || sys.DateTimeL.Minute() != 0 || sys.DateTimeL.Second() != 0 {
		t.Errorf("got time %v", sys.DateTimeL)
	}

	sys2, status, err := r.Next(sys.FoEnd)
	if err != nil || status != block.Found {
		t.Fatalf("Next(second) = (%v, %v, %v)", sys2, status, err)
	}
	if len(sys2.Lines) != 1 {
		t.Errorf("got %d lines, want 1", len(sys2.Lines))
	}
	if sys2.DateTimeL.Second() != 1 {
		t.Errorf("got second=%d, want 1", sys2.DateTimeL.Second())
	}

	sys3, status, err := r.Next(sys2.FoEnd)
	if err != nil || status != block.Found {
		t.Fatalf("Next(third) = (%v, %v, %v)", sys3, status, err)
	}
	if !r.IsLast(sys3) {
		t.Errorf("IsLast(sys3) = false, want true")
	}
}

func TestLearnFailsOnNonMatchingContent(t *testing.T) {
	r := newReader(t, []byte("no timestamps here\njust plain text\nnothing to see\n"))
	if err := r.Learn(); err != ErrNoSyslinesFound {
		t.Errorf("got %v, want ErrNoSyslinesFound", err)
	}
}

func TestNextBeforeLearnErrors(t *testing.T) {
	r := newReader(t, []byte(sampleLog))
	if _, _, err := r.Next(0); err == nil {
		t.Errorf("expected error calling Next before Learn")
	}
}

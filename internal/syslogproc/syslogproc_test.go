package syslogproc

import (
	"os"
	"testing"
	"time"

	"github.com/dalibo/logsift/internal/block"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	f, err := os.CreateTemp("", "syslogproc-*.tmp")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	f.Write(data)
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func openBlock(t *testing.T, data []byte) block.Reader {
	t.Helper()
	path := writeTempFile(t, data)
	br, err := block.OpenPlain(path, 64)
	if err != nil {
		t.Fatalf("OpenPlain: %v", err)
	}
	t.Cleanup(func() { br.Close() })
	return br
}

const isoLog = `2024-03-05T10:00:00 host svc[1]: one
2024-03-05T10:00:01 host svc[1]: two
2024-03-05T10:00:02 host svc[1]: three
2024-03-05T10:00:03 host svc[1]: four
`

func TestStreamAllNoWindow(t *testing.T) {
	br := openBlock(t, []byte(isoLog))
	r, err := New(br, 2024, time.UTC, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var got []time.Time
	for {
		sys, status, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if status == block.Done {
			break
		}
		got = append(got, sys.DateTimeL)
	}
	if len(got) != 4 {
		t.Fatalf("got %d syslines, want 4", len(got))
	}
	if r.Stage() != Stage4Summary {
		t.Errorf("Stage() = %v, want Stage4Summary", r.Stage())
	}
	if r.Summary().SyslinesFound != 4 {
		t.Errorf("SyslinesFound = %d, want 4", r.Summary().SyslinesFound)
	}
}

func TestStreamWithWindow(t *testing.T) {
	br := openBlock(t, []byte(isoLog))
	after := time.Date(2024, 3, 5, 10, 0, 1, 0, time.UTC)
	before := time.Date(2024, 3, 5, 10, 0, 3, 0, time.UTC)
	r, err := New(br, 2024, time.UTC, &after, &before)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var got []time.Time
	for {
		sys, status, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if status == block.Done {
			break
		}
		got = append(got, sys.DateTimeL)
	}
	if len(got) != 3 {
		t.Fatalf("got %d syslines, want 3 (10:00:01, 10:00:02, 10:00:03 in inclusive [after, before])", len(got))
	}
}

const yearlessLog = `Dec 30 23:00:00 host svc[1]: before rollover
Dec 31 23:59:59 host svc[1]: last of year
Jan  1 00:00:01 host svc[1]: first of new year
Jan  2 08:00:00 host svc[1]: second day
`

func TestYearFillAcrossRollover(t *testing.T) {
	br := openBlock(t, []byte(yearlessLog))
	r, err := New(br, 2024, time.UTC, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !r.Summary().YearFillApplied {
		t.Fatalf("expected year fill to apply for syslog-traditional pattern")
	}

	var years []int
	for {
		sys, status, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if status == block.Done {
			break
		}
		years = append(years, sys.DateTimeL.Year())
	}
	if len(years) != 4 {
		t.Fatalf("got %d syslines, want 4", len(years))
	}
	want := []int{2023, 2023, 2024, 2024}
	for i := range want {
		if years[i] != want[i] {
			t.Errorf("years[%d] = %d, want %d", i, years[i], want[i])
		}
	}
}

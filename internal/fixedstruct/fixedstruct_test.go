package fixedstruct

import (
	"encoding/binary"
	"os"
	"testing"
	"time"

	"github.com/dalibo/logsift/internal/block"
)

// buildAcctFile writes n synthetic acct-layout records (64 bytes, a
// little-endian uint32 time at offset 8) with the given unix times, in
// the given on-disk order.
func buildAcctFile(t *testing.T, times []int64) string {
	t.Helper()
	buf := make([]byte, 64*len(times))
	for i, ts := range times {
		rec := buf[i*64 : (i+1)*64]
		binary.LittleEndian.PutUint32(rec[8:12], uint32(ts))
	}
	f, err := os.CreateTemp("", "acct-*.bin")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	if _, err := f.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestIdentifyAndStreamInTimeOrder(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	// on-disk order is 2, 0, 1 relative to time order 0 < 1 < 2
	times := []int64{base + 20, base, base + 10}
	path := buildAcctFile(t, times)

	br, err := block.OpenPlain(path, 4096)
	if err != nil {
		t.Fatalf("OpenPlain: %v", err)
	}
	defer br.Close()

	r, outOfOrder, err := NewReader(br)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if r.Kind() != KindAcct {
		t.Errorf("Kind() = %v, want acct", r.Kind())
	}
	if outOfOrder == 0 {
		t.Errorf("expected at least one out-of-order record")
	}

	var got []int64
	for {
		rec, status, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if status == block.Done {
			break
		}
		got = append(got, rec.Time.Unix())
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i] < got[i-1] {
			t.Errorf("records not in time order: %v", got)
		}
	}
}

func TestIdentifySkipsNullRecords(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Unix()
	times := []int64{base, 0, base + 5}
	path := buildAcctFile(t, times)

	br, err := block.OpenPlain(path, 4096)
	if err != nil {
		t.Fatalf("OpenPlain: %v", err)
	}
	defer br.Close()

	r, _, err := NewReader(br)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	var count int
	for {
		_, status, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if status == block.Done {
			break
		}
		count++
	}
	if count != 2 {
		t.Errorf("got %d records, want 2 (null record skipped)", count)
	}
}

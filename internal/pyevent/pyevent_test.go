package pyevent

import (
	"os"
	"testing"

	"github.com/dalibo/logsift/internal/block"
	"github.com/dalibo/logsift/internal/recordio"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	f, err := os.CreateTemp("", "pyevent-*.jsonl")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	f.Write(data)
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestReaderStreamsJSONLines(t *testing.T) {
	data := `{"timestamp":"2024-03-05T10:00:00Z","event":"start"}
{"ts":1709632801.5,"event":"tick"}
not json at all
{"event":"no timestamp field"}
{"timestamp":"2024-03-05T10:00:02Z","event":"end"}
`
	path := writeTempFile(t, []byte(data))
	br, err := block.OpenPlain(path, 4096)
	if err != nil {
		t.Fatalf("OpenPlain: %v", err)
	}
	defer br.Close()

	r := New(br)
	var found, ignored int
	for {
		msg, status := r.Next()
		if status == recordio.Done {
			break
		}
		if status == recordio.ErrIgnore {
			ignored++
			continue
		}
		if status == recordio.Err {
			t.Fatalf("unexpected Err")
		}
		found++
		if msg.DateTimeL.IsZero() {
			t.Errorf("got zero time")
		}
	}
	if found != 3 {
		t.Errorf("found = %d, want 3", found)
	}
	if ignored != 2 {
		t.Errorf("ignored = %d, want 2", ignored)
	}
}

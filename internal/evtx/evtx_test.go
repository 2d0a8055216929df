package evtx

import (
	"os"
	"testing"

	"github.com/dalibo/logsift/internal/block"
	"github.com/dalibo/logsift/internal/recordio"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	f, err := os.CreateTemp("", "evtx-*.xml")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	f.Write(data)
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

const sampleEvents = `<Events>
<Event><System><TimeCreated SystemTime="2024-03-05T10:00:00Z"/></System><EventData><Data>first</Data></EventData></Event>
<Event><System><TimeCreated SystemTime="2024-03-05T10:00:01Z"/></System><EventData><Data>second</Data></EventData></Event>
<Event><System><TimeCreated SystemTime="not-a-time"/></System><EventData><Data>broken</Data></EventData></Event>
<Event><System><TimeCreated SystemTime="2024-03-05T10:00:02Z"/></System><EventData><Data>third</Data></EventData></Event>
</Events>`

func TestReaderStreamsEvents(t *testing.T) {
	path := writeTempFile(t, []byte(sampleEvents))
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
	if ignored != 1 {
		t.Errorf("ignored = %d, want 1", ignored)
	}
}

package journal

import (
	"os"
	"testing"

	"github.com/dalibo/logsift/internal/block"
	"github.com/dalibo/logsift/internal/recordio"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	f, err := os.CreateTemp("", "journal-*.export")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	f.Write(data)
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestReaderPrefersSourceRealtimeByDefault(t *testing.T) {
	data := "" +
		"__REALTIME_TIMESTAMP=1700000000000000\n" +
		"_SOURCE_REALTIME_TIMESTAMP=1700000001000000\n" +
		"MESSAGE=hello world\n" +
		"\n"
	path := writeTempFile(t, []byte(data))
	br, err := block.OpenPlain(path, 4096)
	if err != nil {
		t.Fatalf("OpenPlain: %v", err)
	}
	defer br.Close()

	r := New(br, PolicyPreferSourceRealtime)
	msg, status := r.Next()
	if status != recordio.Found {
		t.Fatalf("status = %v, want Found", status)
	}
	if msg.DateTimeL.UnixMicro() != 1700000001000000 {
		t.Errorf("got unixmicro=%d, want source realtime", msg.DateTimeL.UnixMicro())
	}

	_, status = r.Next()
	if status != recordio.Done {
		t.Errorf("second Next status = %v, want Done", status)
	}
}

func TestReaderForceRealtimePolicy(t *testing.T) {
	data := "" +
		"__REALTIME_TIMESTAMP=1700000000000000\n" +
		"_SOURCE_REALTIME_TIMESTAMP=1700000001000000\n" +
		"MESSAGE=hello\n" +
		"\n"
	path := writeTempFile(t, []byte(data))
	br, err := block.OpenPlain(path, 4096)
	if err != nil {
		t.Fatalf("OpenPlain: %v", err)
	}
	defer br.Close()

	r := New(br, PolicyForceRealtime)
	msg, status := r.Next()
	if status != recordio.Found {
		t.Fatalf("status = %v, want Found", status)
	}
	if msg.DateTimeL.UnixMicro() != 1700000000000000 {
		t.Errorf("got unixmicro=%d, want realtime", msg.DateTimeL.UnixMicro())
	}
}

func TestReaderMultipleEntries(t *testing.T) {
	data := "" +
		"__REALTIME_TIMESTAMP=1700000000000000\n" +
		"MESSAGE=one\n" +
		"\n" +
		"__REALTIME_TIMESTAMP=1700000001000000\n" +
		"MESSAGE=two\n" +
		"\n"
	path := writeTempFile(t, []byte(data))
	br, err := block.OpenPlain(path, 4096)
	if err != nil {
		t.Fatalf("OpenPlain: %v", err)
	}
	defer br.Close()

	r := New(br, PolicyForceRealtime)
	count := 0
	for {
		_, status := r.Next()
		if status == recordio.Done {
			break
		}
		if status != recordio.Found {
			t.Fatalf("unexpected status %v", status)
		}
		count++
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

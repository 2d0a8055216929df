package worker

import (
	"os"
	"testing"
	"time"

	"github.com/dalibo/logsift/internal/block"
	"github.com/dalibo/logsift/internal/filetype"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	f, err := os.CreateTemp("", "worker-*.log")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	defer f.Close()
	f.Write(data)
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestRunTextSendsFileInfoThenMessagesThenSummary(t *testing.T) {
	data := "2024-03-05T10:00:00 host svc[1]: one\n2024-03-05T10:00:01 host svc[1]: two\n"
	path := writeTempFile(t, data)

	cfg := Config{
		Path: path, PathID: 0,
		FileType: filetype.FileType{Archival: block.Normal, Kind: filetype.KindTextSyslog},
		BlockSz:  4096,
		RefYear:  2024, TzFallback: time.UTC,
	}

	out := make(chan ChanDatum, 8)
	stop := make(chan struct{})
	Run(cfg, out, stop)
	close(out)

	var data_ []ChanDatum
	for d := range out {
		data_ = append(data_, d)
	}

	if len(data_) != 4 {
		t.Fatalf("got %d datums, want 4 (info + 2 messages + summary)", len(data_))
	}
	if data_[0].Kind != KindFileInfo || data_[0].Err != nil {
		t.Errorf("first datum = %+v, want FileInfo with no error", data_[0])
	}
	if data_[1].Kind != KindNewMessage || data_[1].IsLast {
		t.Errorf("second datum = %+v, want NewMessage not last", data_[1])
	}
	if data_[2].Kind != KindNewMessage || !data_[2].IsLast {
		t.Errorf("third datum = %+v, want NewMessage is last", data_[2])
	}
	if data_[3].Kind != KindFileSummary || data_[3].Summary.MessagesFound != 2 {
		t.Errorf("fourth datum = %+v, want FileSummary with 2 messages", data_[3])
	}
}

func TestRunConstructFailureSendsInfoErrorThenSummary(t *testing.T) {
	cfg := Config{
		Path: "/nonexistent/path.log", PathID: 1,
		FileType: filetype.FileType{Archival: block.Normal, Kind: filetype.KindTextSyslog},
		BlockSz:  4096,
		RefYear:  2024, TzFallback: time.UTC,
	}

	out := make(chan ChanDatum, 8)
	stop := make(chan struct{})
	Run(cfg, out, stop)
	close(out)

	var data_ []ChanDatum
	for d := range out {
		data_ = append(data_, d)
	}
	if len(data_) != 2 {
		t.Fatalf("got %d datums, want 2 (info error + summary)", len(data_))
	}
	if data_[0].Kind != KindFileInfo || data_[0].Err == nil {
		t.Errorf("first datum = %+v, want FileInfo with error", data_[0])
	}
	if data_[1].Kind != KindFileSummary {
		t.Errorf("second datum = %+v, want FileSummary", data_[1])
	}
}

package merge

import (
	"testing"
	"time"

	"github.com/dalibo/logsift/internal/cancel"
	"github.com/dalibo/logsift/internal/worker"
)

func mkTime(s int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, s, 0, time.UTC)
}

func TestMergeEmitsGlobalChronologicalOrder(t *testing.T) {
	chA := make(chan worker.ChanDatum, 5)
	chB := make(chan worker.ChanDatum, 5)

	chA <- worker.ChanDatum{Kind: worker.KindFileInfo}
	chA <- worker.ChanDatum{Kind: worker.KindNewMessage, Msg: worker.Message{DateTimeL: mkTime(0), Raw: []byte("a0")}}
	chA <- worker.ChanDatum{Kind: worker.KindNewMessage, Msg: worker.Message{DateTimeL: mkTime(2), Raw: []byte("a2")}, IsLast: true}
	chA <- worker.ChanDatum{Kind: worker.KindFileSummary, Summary: worker.Summary{MessagesFound: 2}}
	close(chA)

	chB <- worker.ChanDatum{Kind: worker.KindFileInfo}
	chB <- worker.ChanDatum{Kind: worker.KindNewMessage, Msg: worker.Message{DateTimeL: mkTime(1), Raw: []byte("b1")}, IsLast: true}
	chB <- worker.ChanDatum{Kind: worker.KindFileSummary, Summary: worker.Summary{MessagesFound: 1}}
	close(chB)

	var emitted []string
	print := func(pathID int, msg worker.Message) {
		emitted = append(emitted, string(msg.Raw))
	}

	m := New(&cancel.Flag{}, print, nil, nil)
	m.Register(0, chA, make(chan struct{}))
	m.Register(1, chB, make(chan struct{}))
	m.Run()

	want := []string{"a0", "b1", "a2"}
	if len(emitted) != len(want) {
		t.Fatalf("got %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Errorf("emitted[%d] = %q, want %q", i, emitted[i], want[i])
		}
	}
}

func TestMergeBreaksTiesByPathIdOrder(t *testing.T) {
	chA := make(chan worker.ChanDatum, 5)
	chB := make(chan worker.ChanDatum, 5)

	tie := mkTime(5)
	chA <- worker.ChanDatum{Kind: worker.KindFileInfo}
	chA <- worker.ChanDatum{Kind: worker.KindNewMessage, Msg: worker.Message{DateTimeL: tie, Raw: []byte("a")}, IsLast: true}
	chA <- worker.ChanDatum{Kind: worker.KindFileSummary}
	close(chA)

	chB <- worker.ChanDatum{Kind: worker.KindFileInfo}
	chB <- worker.ChanDatum{Kind: worker.KindNewMessage, Msg: worker.Message{DateTimeL: tie, Raw: []byte("b")}, IsLast: true}
	chB <- worker.ChanDatum{Kind: worker.KindFileSummary}
	close(chB)

	var emitted []string
	print := func(pathID int, msg worker.Message) {
		emitted = append(emitted, string(msg.Raw))
	}

	m := New(&cancel.Flag{}, print, nil, nil)
	m.Register(0, chA, make(chan struct{}))
	m.Register(1, chB, make(chan struct{}))
	m.Run()

	if len(emitted) != 2 || emitted[0] != "a" || emitted[1] != "b" {
		t.Fatalf("got %v, want [a b] (pathid 0 before 1 on tie)", emitted)
	}
}

func TestMergeStopsOnCancellation(t *testing.T) {
	chA := make(chan worker.ChanDatum) // unbuffered, nothing ever sent
	flag := &cancel.Flag{}
	flag.Cancel()

	m := New(flag, func(int, worker.Message) {}, nil, nil)
	stop := make(chan struct{})
	m.Register(0, chA, stop)
	m.Run()

	select {
	case <-stop:
	default:
		t.Errorf("expected stop channel to be closed on cancellation")
	}
}

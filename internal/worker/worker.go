// Package worker implements C9: the per-file goroutine that constructs
// the right reader chain for a classified path and streams ChanDatum
// values to the merge loop, per spec.md §4.9.
//
// spec.md describes cancellation as "the receiver side closing" the
// channel; in Go only the sender may safely close a channel, so instead
// the merge loop closes a per-worker Stop channel and the worker selects
// on it alongside every send — the same observable behavior (a blocked
// send unblocks and the worker exits without further I/O) through the
// idiomatic Go mechanism.
package worker

import (
	"time"

	"github.com/dalibo/logsift/internal/block"
	"github.com/dalibo/logsift/internal/evtx"
	"github.com/dalibo/logsift/internal/filetype"
	"github.com/dalibo/logsift/internal/fixedstruct"
	"github.com/dalibo/logsift/internal/journal"
	"github.com/dalibo/logsift/internal/pyevent"
	"github.com/dalibo/logsift/internal/recordio"
	"github.com/dalibo/logsift/internal/syslogproc"
)

// DatumKind tags a ChanDatum, mirroring spec.md §3's ChanDatum union.
type DatumKind int

const (
	KindFileInfo DatumKind = iota
	KindNewMessage
	KindFileSummary
)

// Message is one record ready for the merge loop: a rendered byte form,
// its datetime, and the substring range of that datetime within Raw (for
// optional highlighting/prepend alignment).
type Message struct {
	DateTimeL    time.Time
	Raw          []byte
	DtBeg, DtEnd int
}

// Summary is the terminal per-file report, sent exactly once.
type Summary struct {
	Path          string
	PathID        int
	MessagesFound int
	Pattern       string
	Note          string
}

// ChanDatum is the tagged union sent from worker to merge loop.
type ChanDatum struct {
	Kind DatumKind

	// KindFileInfo
	MTime time.Time
	Err   error

	// KindNewMessage
	Msg    Message
	IsLast bool

	// KindFileSummary
	Summary Summary
}

// Config parameterizes one worker, per spec.md §4.9.
type Config struct {
	Path     string
	PathID   int
	FileType filetype.FileType
	BlockSz  int

	DtAfter, DtBefore *time.Time
	TzFallback        *time.Location
	RefYear           int
	JournalPolicy     journal.TimestampPolicy

	TarContainer string
	TarMember    block.TarMember
	IsTarMember  bool
}

func (c Config) openBlock() (block.Reader, error) {
	if c.IsTarMember {
		return block.OpenTarMember(c.TarContainer, c.TarMember, c.BlockSz)
	}
	return block.Open(c.Path, c.FileType.Archival, c.BlockSz)
}

func trySend(out chan<- ChanDatum, stop <-chan struct{}, d ChanDatum) bool {
	select {
	case out <- d:
		return true
	case <-stop:
		return false
	}
}

// Run drives one file end to end: construct the reader chain, send
// FileInfo, stream NewMessage values within the inclusive [DtAfter,
// DtBefore] window, then send FileSummary. stop is closed by the merge
// loop to request early exit; Run always returns promptly afterward
// without further I/O.
func Run(cfg Config, out chan<- ChanDatum, stop <-chan struct{}) {
	br, err := cfg.openBlock()
	if err != nil {
		trySend(out, stop, ChanDatum{Kind: KindFileInfo, Err: err})
		trySend(out, stop, ChanDatum{Kind: KindFileSummary, Summary: Summary{Path: cfg.Path, PathID: cfg.PathID, Note: err.Error()}})
		return
	}
	defer br.Close()

	res := br.Result()
	if !trySend(out, stop, ChanDatum{Kind: KindFileInfo, MTime: res.ModTime}) {
		return
	}

	switch cfg.FileType.Kind {
	case filetype.KindTextSyslog:
		runText(cfg, br, out, stop)
	case filetype.KindFixedStruct:
		runFixedStruct(cfg, br, out, stop)
	case filetype.KindEvtx:
		runRecordReader(cfg, evtx.New(br), out, stop)
	case filetype.KindJournal:
		runRecordReader(cfg, journal.New(br, cfg.JournalPolicy), out, stop)
	case filetype.KindEtl, filetype.KindOdl:
		runRecordReader(cfg, pyevent.New(br), out, stop)
	default:
		trySend(out, stop, ChanDatum{Kind: KindFileSummary, Summary: Summary{Path: cfg.Path, PathID: cfg.PathID, Note: "unsupported file kind"}})
	}
}

func runText(cfg Config, br block.Reader, out chan<- ChanDatum, stop <-chan struct{}) {
	sp, err := syslogproc.New(br, cfg.RefYear, cfg.TzFallback, cfg.DtAfter, cfg.DtBefore)
	if err != nil {
		trySend(out, stop, ChanDatum{Kind: KindFileSummary, Summary: Summary{Path: cfg.Path, PathID: cfg.PathID, Note: err.Error()}})
		return
	}

	count := 0
	var pending *Message
	for {
		sys, status, err := sp.Next()
		if status == block.Err {
			trySend(out, stop, ChanDatum{Kind: KindFileSummary, Summary: Summary{Path: cfg.Path, PathID: cfg.PathID, MessagesFound: count, Note: err.Error()}})
			return
		}
		if status == block.Done {
			break
		}
		var raw []byte
		for _, l := range sys.Lines {
			raw = append(raw, l.Data...)
		}
		msg := Message{DateTimeL: sys.DateTimeL, Raw: raw, DtBeg: sys.DtBeg, DtEnd: sys.DtEnd}
		if pending != nil {
			count++
			if !trySend(out, stop, ChanDatum{Kind: KindNewMessage, Msg: *pending}) {
				return
			}
		}
		pending = &msg
	}
	if pending != nil {
		count++
		if !trySend(out, stop, ChanDatum{Kind: KindNewMessage, Msg: *pending, IsLast: true}) {
			return
		}
	}
	sum := sp.Summary()
	trySend(out, stop, ChanDatum{Kind: KindFileSummary, Summary: Summary{
		Path: cfg.Path, PathID: cfg.PathID, MessagesFound: count, Pattern: sum.PatternName,
	}})
}

func runFixedStruct(cfg Config, br block.Reader, out chan<- ChanDatum, stop <-chan struct{}) {
	fr, outOfOrder, err := fixedstruct.NewReader(br)
	if err != nil {
		trySend(out, stop, ChanDatum{Kind: KindFileSummary, Summary: Summary{Path: cfg.Path, PathID: cfg.PathID, Note: err.Error()}})
		return
	}

	count := 0
	var pending *Message
	for {
		rec, status, err := fr.Next()
		if status == block.Err {
			trySend(out, stop, ChanDatum{Kind: KindFileSummary, Summary: Summary{Path: cfg.Path, PathID: cfg.PathID, MessagesFound: count, Note: err.Error()}})
			return
		}
		if status == block.Done {
			break
		}
		if cfg.DtAfter != nil && rec.Time.Before(*cfg.DtAfter) {
			continue
		}
		if cfg.DtBefore != nil && rec.Time.After(*cfg.DtBefore) {
			continue
		}
		msg := Message{DateTimeL: rec.Time, Raw: rec.Raw}
		if pending != nil {
			count++
			if !trySend(out, stop, ChanDatum{Kind: KindNewMessage, Msg: *pending}) {
				return
			}
		}
		pending = &msg
	}
	if pending != nil {
		count++
		if !trySend(out, stop, ChanDatum{Kind: KindNewMessage, Msg: *pending, IsLast: true}) {
			return
		}
	}
	note := ""
	if outOfOrder > 0 {
		note = "out-of-order records encountered"
	}
	trySend(out, stop, ChanDatum{Kind: KindFileSummary, Summary: Summary{
		Path: cfg.Path, PathID: cfg.PathID, MessagesFound: count, Pattern: fr.Kind().String(), Note: note,
	}})
}

// recordReader is implemented by evtx.Reader, journal.Reader, pyevent.Reader.
type recordReader interface {
	Next() (recordio.Message, recordio.Status)
}

func runRecordReader(cfg Config, rr recordReader, out chan<- ChanDatum, stop <-chan struct{}) {
	count := 0
	var pending *Message
	for {
		rm, status := rr.Next()
		if status == recordio.Err {
			trySend(out, stop, ChanDatum{Kind: KindFileSummary, Summary: Summary{Path: cfg.Path, PathID: cfg.PathID, MessagesFound: count, Note: "decode error"}})
			return
		}
		if status == recordio.Done {
			break
		}
		if status == recordio.ErrIgnore {
			continue
		}
		if cfg.DtAfter != nil && rm.DateTimeL.Before(*cfg.DtAfter) {
			continue
		}
		if cfg.DtBefore != nil && rm.DateTimeL.After(*cfg.DtBefore) {
			continue
		}
		msg := Message{DateTimeL: rm.DateTimeL, Raw: rm.Raw, DtBeg: rm.DtBeg, DtEnd: rm.DtEnd}
		if pending != nil {
			count++
			if !trySend(out, stop, ChanDatum{Kind: KindNewMessage, Msg: *pending}) {
				return
			}
		}
		pending = &msg
	}
	if pending != nil {
		count++
		if !trySend(out, stop, ChanDatum{Kind: KindNewMessage, Msg: *pending, IsLast: true}) {
			return
		}
	}
	trySend(out, stop, ChanDatum{Kind: KindFileSummary, Summary: Summary{Path: cfg.Path, PathID: cfg.PathID, MessagesFound: count}})
}

// Package evtx implements the Evtx half of C7: a thin wrapper streaming
// Windows Event Tracing XML records in file order, decoding each
// <Event>'s <System><TimeCreated SystemTime="..."/> into a datetime.
//
// EVTX's canonical on-disk form is a binary chunked format; this module
// only has to read the XML rendering spec.md names, so encoding/xml is
// the natural decoder — no ecosystem EVTX binary parser appears anywhere
// in the example pack to ground a fuller implementation on.
package evtx

import (
	"bytes"
	"encoding/xml"
	"io"
	"time"

	"github.com/dalibo/logsift/internal/block"
	"github.com/dalibo/logsift/internal/recordio"
)

type timeCreated struct {
	SystemTime string `xml:"SystemTime,attr"`
}

type system struct {
	TimeCreated timeCreated `xml:"TimeCreated"`
}

type event struct {
	XMLName xml.Name `xml:"Event"`
	System  system   `xml:"System"`
	Inner   []byte   `xml:",innerxml"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z",
}

func parseSystemTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Reader streams events in on-disk order (EVTX chunks are not guaranteed
// globally time-sorted; spec.md §4.7 permits this and asks for an
// out-of-order counter instead of reordering).
type Reader struct {
	dec        *xml.Decoder
	OutOfOrder int
	lastSeen   time.Time
	haveLast   bool
}

// New wraps br's bytes as an XML event stream.
func New(br block.Reader) *Reader {
	return &Reader{dec: xml.NewDecoder(block.NewIOReader(br))}
}

// Next returns the next record. A malformed individual <Event> yields
// ErrIgnore and resumes scanning rather than aborting the file.
func (r *Reader) Next() (recordio.Message, recordio.Status) {
	for {
		tok, err := r.dec.Token()
		if err == io.EOF {
			return recordio.Message{}, recordio.Done
		}
		if err != nil {
			return recordio.Message{}, recordio.Err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Event" {
			continue
		}

		var ev event
		if err := r.dec.DecodeElement(&ev, &se); err != nil {
			return recordio.Message{}, recordio.ErrIgnore
		}
		t, ok := parseSystemTime(ev.System.TimeCreated.SystemTime)
		if !ok {
			return recordio.Message{}, recordio.ErrIgnore
		}

		if r.haveLast && t.Before(r.lastSeen) {
			r.OutOfOrder++
		}
		r.lastSeen = t
		r.haveLast = true

		raw, merr := xml.Marshal(ev)
		if merr != nil {
			raw = ev.Inner
		}
		dtBeg := bytes.Index(raw, []byte(ev.System.TimeCreated.SystemTime))
		dtEnd := dtBeg + len(ev.System.TimeCreated.SystemTime)
		if dtBeg < 0 {
			dtBeg, dtEnd = 0, 0
		}

		return recordio.Message{DateTimeL: t, DtBeg: dtBeg, DtEnd: dtEnd, Raw: raw}, recordio.Found
	}
}

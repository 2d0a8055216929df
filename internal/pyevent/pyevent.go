// Package pyevent implements the PyEvent half of C7: a thin wrapper over
// newline-delimited JSON events emitted by Python ETL/ODL pipelines, each
// object carrying a timestamp under one of a few conventional field
// names. JSON is the natural shape for "Python-emitted event stream" and
// encoding/json is the only JSON decoder anywhere in the example pack, so
// this is the one package in the tree that leans on stdlib by necessity
// rather than choice — see DESIGN.md.
package pyevent

import (
	"bufio"
	"encoding/json"
	"strconv"
	"time"

	"github.com/dalibo/logsift/internal/block"
	"github.com/dalibo/logsift/internal/recordio"
)

// timestampFields lists the field names tried, in order, to find an
// event's datetime.
var timestampFields = []string{"timestamp", "ts", "time", "@timestamp"}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return epochFloatToTime(f), true
		}
		return time.Time{}, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return epochFloatToTime(f), true
	}
	return time.Time{}, false
}

func epochFloatToTime(f float64) time.Time {
	secs := int64(f)
	nsec := int64((f - float64(secs)) * 1e9)
	return time.Unix(secs, nsec).UTC()
}

// Reader streams one JSON object per line in file order.
type Reader struct {
	sc *bufio.Scanner
}

// New wraps br as a newline-delimited JSON event stream.
func New(br block.Reader) *Reader {
	sc := bufio.NewScanner(block.NewIOReader(br))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{sc: sc}
}

// Next returns the next event. A line that isn't valid JSON, or whose
// object has no recognized timestamp field, yields ErrIgnore.
func (r *Reader) Next() (recordio.Message, recordio.Status) {
	for r.sc.Scan() {
		line := r.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		raw := make([]byte, len(line))
		copy(raw, line)

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return recordio.Message{}, recordio.ErrIgnore
		}

		var t time.Time
		var tsRaw json.RawMessage
		found := false
		for _, name := range timestampFields {
			v, ok := obj[name]
			if !ok {
				continue
			}
			if parsed, ok := parseTimestamp(v); ok {
				t, tsRaw, found = parsed, v, true
				break
			}
		}
		if !found {
			return recordio.Message{}, recordio.ErrIgnore
		}

		dtBeg := indexOf(raw, tsRaw)
		dtEnd := dtBeg + len(tsRaw)
		if dtBeg < 0 {
			dtBeg, dtEnd = 0, 0
		}
		return recordio.Message{DateTimeL: t, DtBeg: dtBeg, DtEnd: dtEnd, Raw: raw}, recordio.Found
	}
	if err := r.sc.Err(); err != nil {
		return recordio.Message{}, recordio.Err
	}
	return recordio.Message{}, recordio.Done
}

func indexOf(hay, needle []byte) int {
	if len(needle) == 0 {
		return -1
	}
	for i := 0; i+len(needle) <= len(hay); i++ {
		match := true
		for j := range needle {
			if hay[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

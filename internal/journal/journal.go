// Package journal implements the Journal half of C7: a thin wrapper
// streaming systemd's journal export format (`journalctl -o export`),
// entries separated by a blank line, fields either "KEY=value\n" or, for
// values containing embedded newlines, "KEY\n" followed by an 8-byte
// little-endian length and that many raw bytes plus a trailing newline.
package journal

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/dalibo/logsift/internal/block"
	"github.com/dalibo/logsift/internal/recordio"
)

// Field names carrying the two candidate datetimes, per spec.md's open
// question on journal timestamp source selection.
const (
	FieldRealtime       = "__REALTIME_TIMESTAMP"
	FieldSourceRealtime = "_SOURCE_REALTIME_TIMESTAMP"
)

// TimestampPolicy resolves the datetime-source open question: absent an
// explicit override, _SOURCE_REALTIME_TIMESTAMP is preferred when present
// and __REALTIME_TIMESTAMP is the fallback — the opposite of journalctl's
// default, per spec.md's mandated deterministic precedence.
type TimestampPolicy int

const (
	PolicyPreferSourceRealtime TimestampPolicy = iota
	PolicyForceRealtime
	PolicyForceSourceRealtime
)

// Reader streams journal export entries in file order.
type Reader struct {
	r      *bufio.Reader
	policy TimestampPolicy
}

// New wraps br as a journal export stream under policy.
func New(br block.Reader, policy TimestampPolicy) *Reader {
	return &Reader{r: bufio.NewReaderSize(block.NewIOReader(br), 64*1024), policy: policy}
}

func parseRealtimeMicros(s string) (time.Time, bool) {
	us, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMicro(us).UTC(), true
}

func (r *Reader) selectTime(fields map[string]string) (time.Time, bool) {
	switch r.policy {
	case PolicyForceRealtime:
		if s, ok := fields[FieldRealtime]; ok {
			return parseRealtimeMicros(s)
		}
		return time.Time{}, false
	case PolicyForceSourceRealtime:
		if s, ok := fields[FieldSourceRealtime]; ok {
			return parseRealtimeMicros(s)
		}
		return time.Time{}, false
	default: // PolicyPreferSourceRealtime
		if s, ok := fields[FieldSourceRealtime]; ok {
			if t, ok := parseRealtimeMicros(s); ok {
				return t, true
			}
		}
		if s, ok := fields[FieldRealtime]; ok {
			return parseRealtimeMicros(s)
		}
		return time.Time{}, false
	}
}

// Next returns the next entry. A structurally broken entry (bad binary
// length, truncated mid-entry) yields ErrIgnore and resumes at the next
// blank-line boundary rather than aborting the file.
func (r *Reader) Next() (recordio.Message, recordio.Status) {
	fields := map[string]string{}
	var keys []string
	sawAny := false

	for {
		line, err := r.r.ReadBytes('\n')
		if len(line) == 0 {
			if err == io.EOF {
				if sawAny {
					break
				}
				return recordio.Message{}, recordio.Done
			}
			return recordio.Message{}, recordio.Err
		}

		trimmed := bytes.TrimSuffix(line, []byte("\n"))
		if len(trimmed) == 0 {
			if sawAny {
				break
			}
			continue // tolerate leading blank lines between entries
		}
		sawAny = true

		if eq := bytes.IndexByte(trimmed, '='); eq >= 0 {
			key := string(trimmed[:eq])
			fields[key] = string(trimmed[eq+1:])
			keys = append(keys, key)
			continue
		}

		key := string(trimmed)
		var lenBuf [8]byte
		if _, err := io.ReadFull(r.r, lenBuf[:]); err != nil {
			return recordio.Message{}, recordio.ErrIgnore
		}
		n := binary.LittleEndian.Uint64(lenBuf[:])
		val := make([]byte, n)
		if _, err := io.ReadFull(r.r, val); err != nil {
			return recordio.Message{}, recordio.ErrIgnore
		}
		var nl [1]byte
		if _, err := io.ReadFull(r.r, nl[:]); err != nil || nl[0] != '\n' {
			return recordio.Message{}, recordio.ErrIgnore
		}
		fields[key] = string(val)
		keys = append(keys, key)
		if err == io.EOF {
			break
		}
	}

	if len(fields) == 0 {
		return recordio.Message{}, recordio.Done
	}

	t, ok := r.selectTime(fields)
	if !ok {
		return recordio.Message{}, recordio.ErrIgnore
	}

	sort.Strings(keys)
	var raw bytes.Buffer
	for _, k := range keys {
		raw.WriteString(k)
		raw.WriteByte('=')
		raw.WriteString(fields[k])
		raw.WriteByte('\n')
	}
	tsField := fields[FieldSourceRealtime]
	dtBeg := bytes.Index(raw.Bytes(), []byte(tsField))
	if dtBeg < 0 {
		tsField = fields[FieldRealtime]
		dtBeg = bytes.Index(raw.Bytes(), []byte(tsField))
	}
	dtEnd := dtBeg + len(tsField)
	if dtBeg < 0 {
		dtBeg, dtEnd = 0, 0
	}

	return recordio.Message{DateTimeL: t, DtBeg: dtBeg, DtEnd: dtEnd, Raw: raw.Bytes()}, recordio.Found
}

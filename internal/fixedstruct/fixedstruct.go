// Package fixedstruct implements C6: the FixedStructReader for binary log
// formats made of fixed-size C structs (utmp, utmpx, lastlog, acct and
// their variants), the way spec.md §4.6 describes: identify the struct
// layout from a sample, index every record by its embedded time value,
// then stream records back out in time order.
package fixedstruct

import (
	"encoding/binary"
	"errors"
	"sort"
	"time"

	"github.com/dalibo/logsift/internal/block"
)

// Kind names a recognized fixed-struct layout.
type Kind int

const (
	KindUtmp Kind = iota
	KindUtmpx
	KindLastlog
	KindAcct
)

func (k Kind) String() string {
	switch k {
	case KindUtmp:
		return "utmp"
	case KindUtmpx:
		return "utmpx"
	case KindLastlog:
		return "lastlog"
	case KindAcct:
		return "acct"
	default:
		return "unknown"
	}
}

// variant describes one candidate binary layout: fixed record size, the
// byte offset and width of its embedded time value, and a byte order.
// Real utmp/utmpx/lastlog/acct layouts vary by libc and architecture;
// these are representative, 64-bit little-endian shapes standing in for
// the full platform table (out of scope per spec.md, same as dtparse's
// pattern table).
type variant struct {
	kind       Kind
	size       int
	timeOffset int
	timeWidth  int // 4 (time32) or 8 (time64)
	order      binary.ByteOrder
}

var variants = []variant{
	{kind: KindUtmp, size: 384, timeOffset: 340, timeWidth: 8, order: binary.LittleEndian},
	{kind: KindUtmpx, size: 400, timeOffset: 372, timeWidth: 8, order: binary.LittleEndian},
	{kind: KindLastlog, size: 292, timeOffset: 0, timeWidth: 4, order: binary.LittleEndian},
	{kind: KindAcct, size: 64, timeOffset: 8, timeWidth: 4, order: binary.LittleEndian},
}

// ErrNoVariantMatched is returned by Identify when no candidate layout
// scores well enough on the sample to be adopted.
var ErrNoVariantMatched = errors.New("fixedstruct: no binary struct layout matched the file")

// minPlausibleYear/maxPlausibleYear bound the sanity check applied to a
// candidate time value during Phase A identification.
const (
	minPlausibleYear = 1990
	maxPlausibleYear = 2100
)

func decodeTime(raw []byte, v variant) (time.Time, bool) {
	if len(raw) < v.timeOffset+v.timeWidth {
		return time.Time{}, false
	}
	field := raw[v.timeOffset : v.timeOffset+v.timeWidth]
	var secs int64
	switch v.timeWidth {
	case 4:
		secs = int64(int32(v.order.Uint32(field)))
	case 8:
		secs = int64(v.order.Uint64(field))
	default:
		return time.Time{}, false
	}
	t := time.Unix(secs, 0).UTC()
	if t.Year() < minPlausibleYear || t.Year() > maxPlausibleYear {
		return time.Time{}, false
	}
	return t, true
}

// isNullRecord reports whether raw is entirely zero bytes — a deleted or
// never-written slot, skipped during indexing per spec.md §4.6.
func isNullRecord(raw []byte) bool {
	for _, b := range raw {
		if b != 0 {
			return false
		}
	}
	return true
}

// identifySampleCount bounds how many records Phase A samples from the
// front of the file.
const identifySampleCount = 16

// Identify is Phase A: score every candidate variant against up to
// identifySampleCount records sampled from the front of br, and return
// the best-scoring one.
func Identify(br block.Reader) (variant, error) {
	res := br.Result()
	filesz := res.FileSz

	best := variant{}
	bestScore := -1

	for _, v := range variants {
		if filesz%int64(v.size) != 0 || filesz < int64(v.size) {
			continue
		}
		n := filesz / int64(v.size)
		if n > identifySampleCount {
			n = identifySampleCount
		}
		score := 0
		buf := make([]byte, v.size)
		for i := int64(0); i < n; i++ {
			fo := block.FileOffset(i * int64(v.size))
			nread, status, err := br.ReadDataToBuffer(fo, fo+block.FileOffset(v.size), false, buf)
			if err != nil || status == block.Err || nread < v.size {
				continue
			}
			if isNullRecord(buf) {
				score++ // null slots are valid, just uninformative
				continue
			}
			if _, ok := decodeTime(buf, v); ok {
				score += 2
			}
		}
		if score > bestScore {
			bestScore = score
			best = v
		}
	}

	if bestScore <= 0 {
		return variant{}, ErrNoVariantMatched
	}
	return best, nil
}

// TimeIndexEntry maps one record's decoded time to its file offset.
type TimeIndexEntry struct {
	FoBeg block.FileOffset
	When  time.Time
}

// BuildTimeIndex is Phase B: decode every non-null record's time value
// and return them sorted by time, along with a count of how many records
// were out of on-disk order (informational, mirrors spec.md §4.6's
// out-of-order counter).
func BuildTimeIndex(br block.Reader, v variant) ([]TimeIndexEntry, int, error) {
	res := br.Result()
	n := res.FileSz / int64(v.size)

	var entries []TimeIndexEntry
	outOfOrder := 0
	var lastOnDisk time.Time
	haveLast := false

	buf := make([]byte, v.size)
	for i := int64(0); i < n; i++ {
		fo := block.FileOffset(i * int64(v.size))
		nread, status, err := br.ReadDataToBuffer(fo, fo+block.FileOffset(v.size), false, buf)
		if status == block.Err {
			return nil, 0, err
		}
		if nread < v.size {
			break
		}
		if isNullRecord(buf) {
			continue
		}
		t, ok := decodeTime(buf, v)
		if !ok {
			continue
		}
		if haveLast && t.Before(lastOnDisk) {
			outOfOrder++
		}
		lastOnDisk = t
		haveLast = true
		entries = append(entries, TimeIndexEntry{FoBeg: fo, When: t})
	}

	// entries is built in ascending fileoffset order; SliceStable keeps
	// that as the tie-break for equal times, per spec.md §4.6 Phase B.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].When.Before(entries[j].When) })
	return entries, outOfOrder, nil
}

// Record is one decoded fixed-struct entry.
type Record struct {
	Kind  Kind
	FoBeg block.FileOffset
	Time  time.Time
	Raw   []byte
}

// Reader streams Records in time order via a prebuilt TimeIndex (Phase C).
type Reader struct {
	br    block.Reader
	v     variant
	index []TimeIndexEntry
	pos   int
}

// NewReader runs Identify and BuildTimeIndex and returns a Reader
// positioned at the earliest record.
func NewReader(br block.Reader) (*Reader, int, error) {
	v, err := Identify(br)
	if err != nil {
		return nil, 0, err
	}
	idx, outOfOrder, err := BuildTimeIndex(br, v)
	if err != nil {
		return nil, 0, err
	}
	return &Reader{br: br, v: v, index: idx}, outOfOrder, nil
}

// Next returns the next Record in time order, or block.Done once the
// index is exhausted.
func (r *Reader) Next() (Record, block.Status, error) {
	if r.pos >= len(r.index) {
		return Record{}, block.Done, nil
	}
	e := r.index[r.pos]
	r.pos++

	buf := make([]byte, r.v.size)
	n, status, err := r.br.ReadDataToBuffer(e.FoBeg, e.FoBeg+block.FileOffset(r.v.size), false, buf)
	if status == block.Err {
		return Record{}, block.Err, err
	}
	if n < r.v.size {
		return Record{}, block.Err, errors.New("fixedstruct: short read for indexed record")
	}
	return Record{Kind: r.v.kind, FoBeg: e.FoBeg, Time: e.When, Raw: buf}, block.Found, nil
}

// Kind reports the identified struct layout.
func (r *Reader) Kind() Kind { return r.v.kind }

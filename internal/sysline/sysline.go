// Package sysline implements C4: grouping Lines into Syslines using a
// per-file datetime pattern learned once from the first block, the way
// spec.md §4.4 describes (and in the spirit of the teacher's
// parser/prefix.go prefix-learning pass over a sample of lines).
package sysline

import (
	"errors"
	"time"

	"github.com/dalibo/logsift/internal/block"
	"github.com/dalibo/logsift/internal/dtparse"
	"github.com/dalibo/logsift/internal/lineio"
)

// ErrNoSyslinesFound is returned by Learn when no DTPD in the registry
// matches enough sample lines to be adopted.
var ErrNoSyslinesFound = errors.New("sysline: no datetime pattern matched block zero")

// BlockZeroAnalysisMinMatches is BLOCKZERO_ANALYSIS_SYSLINE_COUNT_MIN_MAP:
// the minimum number of sample-line matches a DTPD needs to be adopted.
const BlockZeroAnalysisMinMatches = 1

// maxLearnSampleLines caps how many lines from the front of the file are
// considered during learning.
const maxLearnSampleLines = 64

// minLearnSampleBytes is the "first few blocks if block 0 is small"
// threshold from spec.md §4.4.
const minLearnSampleBytes = 4096

// Stats accumulates the fast-reject counters called out in spec.md §4.4.
type Stats struct {
	Ezcheck1Rejects int
	OutOfOrder      int
}

// Sysline is an ordered, non-empty sequence of Lines beginning at the
// line whose datetime substring parsed under the learned pattern.
type Sysline struct {
	FoBeg, FoEnd block.FileOffset
	DateTimeL    time.Time
	DtBeg, DtEnd int // substring range within Lines[0].Data
	Lines        []lineio.Line
}

// Reader groups Lines from a lineio.Reader into Syslines.
type Reader struct {
	lr     *lineio.Reader
	filesz block.FileOffset
	yearFb int
	tzFb   *time.Location

	patternIdx int // -1 until Learn succeeds
	firstClass map[byte]bool

	Stats Stats
}

// New wraps lr. yearFb/tzFb are the fallbacks used by patterns lacking a
// year or tz capture (spec.md §4.2's "fill policy").
func New(lr *lineio.Reader, filesz block.FileOffset, yearFb int, tzFb *time.Location) *Reader {
	return &Reader{lr: lr, filesz: filesz, yearFb: yearFb, tzFb: tzFb, patternIdx: -1}
}

func classByte(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return 'd'
	case (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z'):
		return 'a'
	default:
		return '?'
	}
}

// Learn samples lines from the front of the file and adopts the
// smallest-indexed DTPD meeting BlockZeroAnalysisMinMatches, per spec.md
// §4.4's learning protocol. It must be called once before Next.
func (r *Reader) Learn() error {
	var sample [][]byte
	var fo block.FileOffset
	total := block.FileOffset(0)

	for len(sample) < maxLearnSampleLines {
		line, status, err := r.lr.FindLine(fo)
		if err != nil {
			return err
		}
		if status == block.Done {
			break
		}
		sample = append(sample, line.Data)
		total += line.FoEnd - line.FoBeg
		fo = line.FoEnd
		if total >= minLearnSampleBytes && len(sample) >= 8 {
			break
		}
	}
	if len(sample) == 0 {
		return ErrNoSyslinesFound
	}

	bestIdx := -1
	for idx, dtpd := range dtparse.Registry {
		count := 0
		for _, line := range sample {
			if _, err := dtpd.TryParse(line, r.yearFb, r.tzFb); err == nil {
				count++
			}
		}
		if count >= BlockZeroAnalysisMinMatches {
			bestIdx = idx
			break // registry is ordered most-specific-first; take the first qualifier
		}
	}
	if bestIdx == -1 {
		return ErrNoSyslinesFound
	}

	r.patternIdx = bestIdx
	r.firstClass = map[byte]bool{}
	dtpd := dtparse.Registry[bestIdx]
	for _, line := range sample {
		if _, err := dtpd.TryParse(line, r.yearFb, r.tzFb); err == nil && len(line) > 0 {
			r.firstClass[classByte(line[0])] = true
		}
	}
	return nil
}

// PatternIndex returns the learned DTPD index, or -1 if Learn has not run
// or found nothing.
func (r *Reader) PatternIndex() int { return r.patternIdx }

// couldMatch is the ezcheck1 fast-reject heuristic: a line whose first
// byte's class (digit, letter, other) never began a matching sample line
// during Learn is treated as a continuation without running the regex.
func (r *Reader) couldMatch(line []byte) bool {
	if len(line) == 0 {
		return false
	}
	if len(r.firstClass) == 0 {
		return true
	}
	return r.firstClass[classByte(line[0])]
}

// Next returns the Sysline starting at foBeg, which must already be a
// line boundary known to match the learned pattern (the caller —
// syslogproc — establishes this for the first call; Next establishes it
// for every subsequent call by constructrion). Continuation lines that
// don't parse are absorbed; a parse failure where a new sysline was
// expected never happens here because the loop stops at the first line
// that re-matches instead of consuming it.
func (r *Reader) Next(foBeg block.FileOffset) (Sysline, block.Status, error) {
	if r.patternIdx < 0 {
		return Sysline{}, block.Err, errors.New("sysline: Learn not called")
	}
	dtpd := dtparse.Registry[r.patternIdx]

	first, status, err := r.lr.FindLine(foBeg)
	if status != block.Found {
		return Sysline{}, status, err
	}
	m, perr := dtpd.TryParse(first.Data, r.yearFb, r.tzFb)
	if perr != nil {
		return Sysline{}, block.Err, errors.New("sysline: line at boundary does not match learned pattern")
	}

	sys := Sysline{
		FoBeg:     first.FoBeg,
		FoEnd:     first.FoEnd,
		DateTimeL: m.Time,
		DtBeg:     m.Beg,
		DtEnd:     m.End,
		Lines:     []lineio.Line{first},
	}

	fo := first.FoEnd
	for {
		line, status, err := r.lr.FindLine(fo)
		if status == block.Err {
			return Sysline{}, block.Err, err
		}
		if status == block.Done {
			break
		}
		if !r.couldMatch(line.Data) {
			r.Stats.Ezcheck1Rejects++
			sys.Lines = append(sys.Lines, line)
			sys.FoEnd = line.FoEnd
			fo = line.FoEnd
			continue
		}
		if _, err := dtpd.TryParse(line.Data, r.yearFb, r.tzFb); err == nil {
			// Next sysline begins here; don't consume it.
			break
		}
		sys.Lines = append(sys.Lines, line)
		sys.FoEnd = line.FoEnd
		fo = line.FoEnd
	}

	// Release every Line folded into sys (not just the one at foBeg) so
	// their Blocks' reference counts actually reach zero once this sysline
	// is fully consumed; the lookahead line that starts the next sysline
	// was never appended to sys.Lines and stays cached for the next call.
	for _, l := range sys.Lines {
		r.lr.DropLine(l.FoBeg)
	}
	return sys, block.Found, nil
}

// IsLast reports whether sys is the final sysline in a file of size filesz.
func (r *Reader) IsLast(sys Sysline) bool {
	return sys.FoEnd == r.filesz
}

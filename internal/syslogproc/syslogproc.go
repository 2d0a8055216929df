// Package syslogproc implements C5: the per-file state machine that turns
// a block.Reader into a stream of sysline.Sysline values honoring the
// inclusive [dtAfter, dtBefore] window, the way spec.md §4.5 describes.
package syslogproc

import (
	"strings"
	"time"

	"github.com/dalibo/logsift/internal/block"
	"github.com/dalibo/logsift/internal/dtparse"
	"github.com/dalibo/logsift/internal/lineio"
	"github.com/dalibo/logsift/internal/sysline"
)

// Stage names the processing state a Reader is in, per spec.md §4.5's
// Stage0..Stage4 state machine.
type Stage int

const (
	Stage0ValidFileCheck Stage = iota
	Stage1BlockzeroAnalysis
	Stage2FindDt
	Stage3StreamSyslines
	Stage4Summary
)

func (s Stage) String() string {
	switch s {
	case Stage0ValidFileCheck:
		return "Stage0_ValidFileCheck"
	case Stage1BlockzeroAnalysis:
		return "Stage1_BlockzeroAnalysis"
	case Stage2FindDt:
		return "Stage2_FindDt"
	case Stage3StreamSyslines:
		return "Stage3_StreamSyslines"
	case Stage4Summary:
		return "Stage4_Summary"
	default:
		return "Stage?"
	}
}

// Summary is the terminal, Stage4 report for one file.
type Summary struct {
	PatternName    string
	SyslinesParsed int
	SyslinesFound  int // within the datetime window
	Ezcheck1Rejects int
	YearFillApplied bool
}

// Reader drives one file through Stage0..Stage4.
type Reader struct {
	br      block.Reader
	lr      *lineio.Reader
	sr      *sysline.Reader
	filesz  block.FileOffset

	dtAfter, dtBefore *time.Time

	stage   Stage
	summary Summary

	yearMap map[block.FileOffset]int // FoBeg -> corrected year; nil unless year-fill ran
	fo      block.FileOffset         // next sysline read position
}

// New runs Stage0 and Stage1 (a no-op validity check delegated to the
// filetype preprocessor upstream, plus pattern learning) and returns a
// Reader positioned to stream from the start of the file.
func New(br block.Reader, refYear int, tzFallback *time.Location, dtAfter, dtBefore *time.Time) (*Reader, error) {
	res := br.Result()
	lr, err := lineio.New(br)
	if err != nil {
		return nil, err
	}
	sr := sysline.New(lr, block.FileOffset(res.FileSz), refYear, tzFallback)

	r := &Reader{
		br: br, lr: lr, sr: sr, filesz: block.FileOffset(res.FileSz),
		dtAfter: dtAfter, dtBefore: dtBefore,
		stage: Stage1BlockzeroAnalysis,
	}

	if err := sr.Learn(); err != nil {
		r.stage = Stage4Summary
		return r, err
	}
	r.summary.PatternName = dtparse.Registry[sr.PatternIndex()].Name

	if !patternHasYear(sr.PatternIndex()) {
		if err := r.fillYears(refYear); err != nil {
			r.stage = Stage4Summary
			return r, err
		}
		r.summary.YearFillApplied = true
	}

	r.stage = Stage2FindDt
	return r, nil
}

func patternHasYear(idx int) bool {
	return strings.Contains(dtparse.Registry[idx].Source, "<year>")
}

// fillYears is the backward year-propagation heuristic from spec.md §4.5
// for patterns lacking a %Y capture: months must be non-decreasing in
// forward file order except at a genuine Dec->Jan year rollover, so a
// single backward walk from the file's last sysline recovers the year of
// every earlier one.
func (r *Reader) fillYears(refYear int) error {
	var fobegs []block.FileOffset
	var months []int

	fo := block.FileOffset(0)
	for {
		sys, status, err := r.sr.Next(fo)
		if status == block.Err {
			return err
		}
		if status == block.Done {
			break
		}
		fobegs = append(fobegs, sys.FoBeg)
		months = append(months, int(sys.DateTimeL.Month()))
		fo = sys.FoEnd
	}

	years := make([]int, len(months))
	year := refYear
	for i := len(months) - 1; i >= 0; i-- {
		if i < len(months)-1 && months[i] > months[i+1] {
			year--
		}
		years[i] = year
	}

	r.yearMap = make(map[block.FileOffset]int, len(fobegs))
	for i, fb := range fobegs {
		r.yearMap[fb] = years[i]
	}
	r.sr.Stats = sysline.Stats{} // pre-scan stats aren't representative; reset for the real pass
	return nil
}

func (r *Reader) applyYearFill(sys *sysline.Sysline) {
	if r.yearMap == nil {
		return
	}
	y, ok := r.yearMap[sys.FoBeg]
	if !ok || y == sys.DateTimeL.Year() {
		return
	}
	t := sys.DateTimeL
	sys.DateTimeL = time.Date(y, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// inWindow reports whether t falls within the inclusive [dtAfter, dtBefore]
// window, treating a nil bound as unconstrained on that side. Both bounds
// are inclusive per spec.md §6/§8: a datetime exactly at dt_after or
// dt_before passes.
func (r *Reader) inWindow(t time.Time) bool {
	if r.dtAfter != nil && t.Before(*r.dtAfter) {
		return false
	}
	if r.dtBefore != nil && t.After(*r.dtBefore) {
		return false
	}
	return true
}

// Next returns the next sysline.Sysline whose datetime falls within the
// configured window, advancing past and counting (but not returning)
// syslines outside it. It transitions Stage2->Stage3 on first call and
// Stage3->Stage4 once the file is exhausted.
func (r *Reader) Next() (sysline.Sysline, block.Status, error) {
	if r.stage == Stage2FindDt {
		r.stage = Stage3StreamSyslines
	}
	if r.stage != Stage3StreamSyslines {
		return sysline.Sysline{}, block.Done, nil
	}

	for {
		sys, status, err := r.sr.Next(r.fo)
		if status == block.Err {
			return sysline.Sysline{}, block.Err, err
		}
		if status == block.Done {
			r.stage = Stage4Summary
			r.summary.Ezcheck1Rejects = r.sr.Stats.Ezcheck1Rejects
			return sysline.Sysline{}, block.Done, nil
		}
		r.fo = sys.FoEnd
		r.applyYearFill(&sys)
		r.summary.SyslinesParsed++

		if r.dtBefore != nil && sys.DateTimeL.After(*r.dtBefore) {
			// Timestamps are non-decreasing and dt_before is inclusive;
			// a sysline strictly after it means nothing further can match.
			r.stage = Stage4Summary
			r.summary.Ezcheck1Rejects = r.sr.Stats.Ezcheck1Rejects
			return sysline.Sysline{}, block.Done, nil
		}
		if !r.inWindow(sys.DateTimeL) {
			continue
		}
		r.summary.SyslinesFound++
		return sys, block.Found, nil
	}
}

// Stage reports the current processing stage.
func (r *Reader) Stage() Stage { return r.stage }

// Summary returns the running (pre-Stage4) or final (post-Stage4) summary.
func (r *Reader) Summary() Summary { return r.summary }

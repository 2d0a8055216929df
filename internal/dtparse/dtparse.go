// Package dtparse implements C2: the DateTime Parse Registry, an ordered
// library of (regex, capture-map) patterns tried by trial against a file's
// first lines until one matches enough of them to be adopted (sysline.go
// does the adopting; this package only knows how to try one pattern).
//
// Capture group names are fixed, per spec.md §4.2: year, month, day, hour,
// minute, second, fractional, tz. A pattern need not capture all of them —
// missing year falls back to a caller-supplied year; missing tz falls back
// to a caller-supplied *time.Location.
package dtparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DTPD is one DateTime Parse Instr: a compiled-on-first-use regex plus
// enough bookkeeping to turn a match into a time.Time.
type DTPD struct {
	Name         string
	Source       string // regex source, compiled lazily
	SearchWindow int    // bytes from line start to search; 0 = whole line
	HasTZ        bool   // true if Source captures a tz group (ordering hint)

	once sync.Once
	re   *regexp.Regexp
}

func (d *DTPD) compiled() *regexp.Regexp {
	d.once.Do(func() {
		d.re = regexp.MustCompile(d.Source)
	})
	return d.re
}

// Match is the result of a successful TryParse.
type Match struct {
	Beg, End int // byte range of the matched datetime substring
	Time     time.Time
}

// monthNames maps %B/%b forms (English, case-insensitive) to "01".."12".
var monthNames = map[string]string{
	"jan": "01", "january": "01",
	"feb": "02", "february": "02",
	"mar": "03", "march": "03",
	"apr": "04", "april": "04",
	"may": "05",
	"jun": "06", "june": "06",
	"jul": "07", "july": "07",
	"aug": "08", "august": "08",
	"sep": "09", "sept": "09", "september": "09",
	"oct": "10", "october": "10",
	"nov": "11", "november": "11",
	"dec": "12", "december": "12",
}

// tzAbbrev maps unambiguous abbreviations to fixed UTC offsets in seconds.
// Abbreviations with more than one plausible meaning are deliberately
// omitted here and instead listed in tzAmbiguous so a match involving them
// fails closed rather than silently picking one (spec.md §4.2).
var tzAbbrev = map[string]int{
	"UTC": 0, "GMT": 0, "Z": 0,
	"EST": -5 * 3600, "EDT": -4 * 3600,
	"CST": -6 * 3600, "CDT": -5 * 3600,
	"MST": -7 * 3600, "MDT": -6 * 3600,
	"PST": -8 * 3600, "PDT": -7 * 3600,
	"CET": 1 * 3600, "CEST": 2 * 3600,
	"BST": 1 * 3600,
	"JST": 9 * 3600,
	"IST": 5*3600 + 1800,
}

// tzAmbiguous lists abbreviations with more than one real-world UTC offset
// (e.g. SST is both Samoa Standard Time, -11, and Singapore Standard Time,
// +8). Matching one of these must fail rather than silently pick either.
var tzAmbiguous = map[string]bool{
	"SST": true, // Samoa Standard Time (-11) vs Singapore Standard Time (+8)
}

// ErrAmbiguousTZ is returned when a matched timezone abbreviation has more
// than one plausible UTC offset.
var ErrAmbiguousTZ = fmt.Errorf("dtparse: ambiguous timezone abbreviation")

// ErrNoMatch is returned when the pattern's regex does not match.
var ErrNoMatch = fmt.Errorf("dtparse: pattern did not match")

// TryParse runs d's regex against data (optionally limited to the first
// SearchWindow bytes), and on a match normalizes captures into a time.Time.
// yearFallback is used when the pattern has no "year" group; tzFallback is
// used when it has no "tz" group (or the tz group is empty).
func (d *DTPD) TryParse(data []byte, yearFallback int, tzFallback *time.Location) (Match, error) {
	hay := data
	if d.SearchWindow > 0 && len(hay) > d.SearchWindow {
		hay = hay[:d.SearchWindow]
	}

	re := d.compiled()
	loc := re.FindSubmatchIndex(hay)
	if loc == nil {
		return Match{}, ErrNoMatch
	}
	names := re.SubexpNames()

	get := func(name string) (string, bool) {
		for i, n := range names {
			if n != name {
				continue
			}
			if 2*i+1 >= len(loc) || loc[2*i] < 0 {
				return "", false
			}
			return string(hay[loc[2*i]:loc[2*i+1]]), true
		}
		return "", false
	}

	// Unix-epoch patterns carry a raw timestamp instead of broken-down
	// fields; handle them before the general year/month/... path.
	if s, ok := get("epoch"); ok {
		secs, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Match{}, fmt.Errorf("dtparse: bad epoch %q: %w", s, err)
		}
		nsec := 0
		if f, ok := get("fractional"); ok && f != "" {
			frac := f
			if len(frac) > 9 {
				frac = frac[:9]
			}
			for len(frac) < 9 {
				frac += "0"
			}
			nsec, _ = strconv.Atoi(frac)
		}
		return Match{Beg: loc[0], End: loc[1], Time: time.Unix(secs, int64(nsec)).UTC()}, nil
	}
	if s, ok := get("epochms"); ok {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Match{}, fmt.Errorf("dtparse: bad epoch millis %q: %w", s, err)
		}
		return Match{Beg: loc[0], End: loc[1], Time: time.UnixMilli(ms).UTC()}, nil
	}

	year := yearFallback
	if s, ok := get("year"); ok && s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			return Match{}, fmt.Errorf("dtparse: bad year %q: %w", s, err)
		}
		if y < 100 {
			y += 2000
		}
		year = y
	}

	month := 1
	if s, ok := get("month"); ok && s != "" {
		if digit, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			month = digit
		} else if numeric, ok := monthNames[strings.ToLower(s)]; ok {
			month, _ = strconv.Atoi(numeric)
		} else {
			return Match{}, fmt.Errorf("dtparse: unrecognized month %q", s)
		}
	}

	day := 1
	if s, ok := get("day"); ok && s != "" {
		dd, err := strconv.Atoi(strings.TrimSpace(s)) // " 8" -> 8, same as "08"
		if err != nil {
			return Match{}, fmt.Errorf("dtparse: bad day %q: %w", s, err)
		}
		day = dd
	}

	hour, minute, second := 0, 0, 0
	if s, ok := get("hour"); ok && s != "" {
		hour, _ = strconv.Atoi(s)
	}
	if s, ok := get("minute"); ok && s != "" {
		minute, _ = strconv.Atoi(s)
	}
	if s, ok := get("second"); ok && s != "" {
		second, _ = strconv.Atoi(s)
	}

	nsec := 0
	if s, ok := get("fractional"); ok && s != "" {
		frac := s
		if len(frac) > 9 {
			frac = frac[:9]
		}
		for len(frac) < 9 {
			frac += "0"
		}
		nsec, _ = strconv.Atoi(frac)
	}

	loc2 := tzFallback
	if s, ok := get("tz"); ok && s != "" {
		resolved, err := resolveTZ(s)
		if err != nil {
			return Match{}, err
		}
		if resolved != nil {
			loc2 = resolved
		}
	}
	if loc2 == nil {
		loc2 = time.UTC
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, nsec, loc2)
	return Match{Beg: loc[0], End: loc[1], Time: t}, nil
}

// ResolveTZ normalizes a tz token: "±HH", "±HHMM", "±HH:MM", "Z", or a known
// unambiguous abbreviation, into a fixed-offset Location. Ambiguous
// abbreviations (e.g. "SST") return ErrAmbiguousTZ rather than guessing —
// shared by in-log tz parsing and the CLI's --tz-offset/--prepend-tz flags.
func ResolveTZ(raw string) (*time.Location, error) {
	return resolveTZ(raw)
}

// resolveTZ normalizes a captured tz token: "±HH", "±HHMM", "±HH:MM", "Z",
// or a known unambiguous abbreviation. Ambiguous abbreviations return
// ErrAmbiguousTZ so the caller skips the fallback rather than guessing.
func resolveTZ(raw string) (*time.Location, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	if tzAmbiguous[strings.ToUpper(s)] {
		return nil, ErrAmbiguousTZ
	}
	if off, ok := tzAbbrev[strings.ToUpper(s)]; ok {
		return time.FixedZone(s, off), nil
	}
	if secs, ok := ParseNumericOffset(s); ok {
		return time.FixedZone(s, secs), nil
	}
	return nil, fmt.Errorf("dtparse: unrecognized timezone %q", raw)
}

// ParseNumericOffset parses "+HH", "-HH", "+HHMM", "-HHMM", "+HH:MM", "Z"
// into a signed offset in seconds. Shared with the CLI's --tz-offset flag.
func ParseNumericOffset(s string) (int, bool) {
	if s == "Z" || s == "z" {
		return 0, true
	}
	if len(s) < 2 {
		return 0, false
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, false
	}
	digits := strings.ReplaceAll(s[1:], ":", "")
	var hh, mm int
	switch len(digits) {
	case 2:
		h, err := strconv.Atoi(digits)
		if err != nil {
			return 0, false
		}
		hh = h
	case 4:
		h, err := strconv.Atoi(digits[:2])
		if err != nil {
			return 0, false
		}
		m, err := strconv.Atoi(digits[2:])
		if err != nil {
			return 0, false
		}
		hh, mm = h, m
	default:
		return 0, false
	}
	return sign * (hh*3600 + mm*60), true
}

// Package cli implements helpers for the command-line surface: datetime
// argument parsing, block-size parsing, separator/prepend formatting, and
// color policy, per spec.md §6. The flags themselves are defined in
// cmd/logsift.
package cli

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrBothRelativeToOther is returned when both --dt-after and --dt-before
// use the "@" (relative-to-the-other-filter) form, which spec.md §6
// explicitly rejects as circular.
var ErrBothRelativeToOther = errors.New("cli: --dt-after and --dt-before cannot both be relative to each other")

var absoluteLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

var relOffsetRe = regexp.MustCompile(`(\d+)([wdhms])`)

// parseRelativeOffset parses the "[+-]NwNdNhNmNs" shape from spec.md §6
// (any subset/order of the five units) into a signed time.Duration.
func parseRelativeOffset(s string) (time.Duration, bool) {
	if len(s) == 0 {
		return 0, false
	}
	sign := time.Duration(1)
	body := s
	switch s[0] {
	case '+':
		body = s[1:]
	case '-':
		sign = -1
		body = s[1:]
	}
	if body == "" {
		return 0, false
	}
	matches := relOffsetRe.FindAllStringSubmatchIndex(body, -1)
	if matches == nil {
		return 0, false
	}
	// Reject if the matched spans don't cover the whole body (stray chars).
	covered := 0
	for _, m := range matches {
		covered += m[1] - m[0]
	}
	if covered != len(body) {
		return 0, false
	}

	var total time.Duration
	for _, m := range matches {
		n, err := strconv.Atoi(body[m[2]:m[3]])
		if err != nil {
			return 0, false
		}
		unit := body[m[4]:m[5]]
		var d time.Duration
		switch unit {
		case "w":
			d = time.Duration(n) * 7 * 24 * time.Hour
		case "d":
			d = time.Duration(n) * 24 * time.Hour
		case "h":
			d = time.Duration(n) * time.Hour
		case "m":
			d = time.Duration(n) * time.Minute
		case "s":
			d = time.Duration(n) * time.Second
		}
		total += d
	}
	return sign * total, true
}

// isBareEpoch reports whether s (after an optional leading sign) is all
// digits — spec.md §6's "Unix-epoch +<seconds>" form, distinguished from
// a relative offset by the absence of any w/d/h/m/s unit letter.
func isBareEpoch(s string) (int64, bool) {
	body := s
	sign := int64(1)
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		if s[0] == '-' {
			sign = -1
		}
		body = s[1:]
	}
	if body == "" {
		return 0, false
	}
	for _, r := range body {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		return 0, false
	}
	return sign * n, true
}

// DTArg is one --dt-after/--dt-before argument, partially resolved: Abs
// is set for absolute/epoch/relative-to-now forms; RelToOther is set for
// the "@" form and requires the other bound to already be resolved.
type DTArg struct {
	Abs        *time.Time
	RelToOther *time.Duration
}

// ParseDTArg parses one raw --dt-after/--dt-before value.
func ParseDTArg(raw string, now time.Time, tzFallback *time.Location) (DTArg, error) {
	if strings.HasPrefix(raw, "@") {
		rest := raw[1:]
		d, ok := parseRelativeOffset(rest)
		if !ok {
			return DTArg{}, fmt.Errorf("cli: invalid @-relative datetime %q", raw)
		}
		return DTArg{RelToOther: &d}, nil
	}

	if secs, ok := isBareEpoch(raw); ok && strings.ContainsAny(raw, "+-") {
		t := time.Unix(secs, 0).In(tzFallback)
		return DTArg{Abs: &t}, nil
	}

	if d, ok := parseRelativeOffset(raw); ok && (strings.HasPrefix(raw, "+") || strings.HasPrefix(raw, "-")) {
		t := now.Add(d)
		return DTArg{Abs: &t}, nil
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, raw, tzFallback); err == nil {
			return DTArg{Abs: &t}, nil
		}
	}

	return DTArg{}, fmt.Errorf("cli: unrecognized datetime %q", raw)
}

// ResolveWindow parses both bounds (either may be empty, meaning
// unconstrained) and resolves any "@"-relative side against the other.
func ResolveWindow(afterRaw, beforeRaw string, now time.Time, tzFallback *time.Location) (after, before *time.Time, err error) {
	var afterArg, beforeArg DTArg
	haveAfter, haveBefore := afterRaw != "", beforeRaw != ""

	if haveAfter {
		if afterArg, err = ParseDTArg(afterRaw, now, tzFallback); err != nil {
			return nil, nil, err
		}
	}
	if haveBefore {
		if beforeArg, err = ParseDTArg(beforeRaw, now, tzFallback); err != nil {
			return nil, nil, err
		}
	}

	if haveAfter && haveBefore && afterArg.RelToOther != nil && beforeArg.RelToOther != nil {
		return nil, nil, ErrBothRelativeToOther
	}

	if haveAfter && afterArg.Abs != nil {
		after = afterArg.Abs
	}
	if haveBefore && beforeArg.Abs != nil {
		before = beforeArg.Abs
	}

	if haveAfter && afterArg.RelToOther != nil {
		if before == nil {
			return nil, nil, fmt.Errorf("cli: --dt-after is relative to --dt-before, but --dt-before was not given an absolute value")
		}
		t := before.Add(*afterArg.RelToOther)
		after = &t
	}
	if haveBefore && beforeArg.RelToOther != nil {
		if after == nil {
			return nil, nil, fmt.Errorf("cli: --dt-before is relative to --dt-after, but --dt-after was not given an absolute value")
		}
		t := after.Add(*beforeArg.RelToOther)
		before = &t
	}

	return after, before, nil
}

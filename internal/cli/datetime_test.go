package cli

import (
	"testing"
	"time"
)

func TestParseDTArgAbsolute(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	arg, err := ParseDTArg("2024-03-05T10:00:00", now, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arg.Abs == nil || arg.Abs.Year() != 2024 || arg.Abs.Month() != 3 {
		t.Errorf("got %+v", arg)
	}
}

func TestParseDTArgBareEpoch(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	arg, err := ParseDTArg("+1700000000", now, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if arg.Abs == nil || arg.Abs.Unix() != 1700000000 {
		t.Errorf("got %+v", arg)
	}
}

func TestParseDTArgRelativeToNow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	arg, err := ParseDTArg("-1h30m", now, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := now.Add(-90 * time.Minute)
	if arg.Abs == nil || !arg.Abs.Equal(want) {
		t.Errorf("got %v, want %v", arg.Abs, want)
	}
}

func TestResolveWindowRelativeToOther(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	after, before, err := ResolveWindow("2024-01-01T10:00:00", "@+2h", now, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if before == nil || !before.Equal(after.Add(2*time.Hour)) {
		t.Errorf("got after=%v before=%v", after, before)
	}
}

func TestResolveWindowRejectsMutualRelative(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	_, _, err := ResolveWindow("@+1h", "@-1h", now, time.UTC)
	if err != ErrBothRelativeToOther {
		t.Errorf("got %v, want ErrBothRelativeToOther", err)
	}
}

func TestUnescapeSeparator(t *testing.T) {
	got := UnescapeSeparator(`\n\t\\end`)
	want := "\n\t\\end"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestParseBlockSzHex(t *testing.T) {
	n, err := ParseBlockSz("0x10000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 0x10000 {
		t.Errorf("got %d, want 65536", n)
	}
}

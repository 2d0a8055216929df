package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/dalibo/logsift/internal/block"
)

// ParseBlockSz parses a --blocksz value in decimal, 0xHEX, 0oOCT or 0bBIN,
// clamped to [block.MinBlockSz, block.MaxBlockSz].
func ParseBlockSz(s string) (int, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("cli: invalid --blocksz %q: %w", s, err)
	}
	if n < block.MinBlockSz {
		n = block.MinBlockSz
	}
	if n > block.MaxBlockSz {
		n = block.MaxBlockSz
	}
	return int(n), nil
}

var separatorEscapes = map[byte]byte{
	'0': 0x00, 'a': 0x07, 'b': 0x08, 'e': 0x1b, 'f': 0x0c,
	'n': 0x0a, 'r': 0x0d, 't': 0x09, 'v': 0x0b, '\\': 0x5c,
}

// UnescapeSeparator expands the backslash escapes spec.md §6 lists for
// --separator and --prepend-separator: \0 \a \b \e \f \n \r \\ \t \v.
func UnescapeSeparator(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			if v, ok := separatorEscapes[s[i+1]]; ok {
				b.WriteByte(v)
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// ColorMode is the resolved --color policy.
type ColorMode int

const (
	ColorAlways ColorMode = iota
	ColorNever
	ColorAuto
)

// ParseColorMode parses the --color flag value.
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	case "auto":
		return ColorAuto, nil
	default:
		return ColorAuto, fmt.Errorf("cli: invalid --color value %q", s)
	}
}

// ResolveColor decides whether to emit ANSI color given the mode and
// whether stdout is a terminal.
func ResolveColor(mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return term.IsTerminal(int(os.Stdout.Fd()))
	}
}

package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PrependConfig controls what's prefixed onto each emitted line, per
// spec.md §6's -z/-u/-l/-d/-n/-p/-w/--prepend-separator options.
type PrependConfig struct {
	TZ         *time.Location // non-nil if -z/-u/-l given
	DTFormat   string         // Go reference-time layout; "" = RFC3339
	Filename   bool
	Filepath   bool
	AlignWidth int // 0 = no alignment; else the file identity is space-padded to this width
	Separator  string
}

// goLayoutFromStrftime does a best-effort translation of the common
// strftime directives spec.md's --prepend-dt-format exposes into a Go
// reference-time layout; unrecognized directives pass through literally.
var strftimeToGo = strings.NewReplacer(
	"%Y", "2006", "%m", "01", "%d", "02",
	"%H", "15", "%M", "04", "%S", "05",
	"%f", "000000", "%z", "-0700", "%Z", "MST",
)

func goLayoutFromStrftime(fmtStr string) string {
	if fmtStr == "" {
		return time.RFC3339
	}
	return strftimeToGo.Replace(fmtStr)
}

// Prepend renders the configured prefix for one message from path.
func Prepend(cfg PrependConfig, path string, dt time.Time) string {
	var parts []string

	if cfg.TZ != nil {
		layout := goLayoutFromStrftime(cfg.DTFormat)
		parts = append(parts, dt.In(cfg.TZ).Format(layout))
	}
	if cfg.Filepath || cfg.Filename {
		name := path
		if !cfg.Filepath {
			name = filepath.Base(path)
		}
		if cfg.AlignWidth > 0 && len(name) < cfg.AlignWidth {
			name += strings.Repeat(" ", cfg.AlignWidth-len(name))
		}
		parts = append(parts, name)
	}

	if len(parts) == 0 {
		return ""
	}

	sep := cfg.Separator
	if sep == "" {
		sep = ":"
	}
	return strings.Join(parts, sep) + sep
}

// ansiPalette cycles foreground colors per PathId for --color on a dark
// terminal background.
var ansiPalette = []string{"\x1b[36m", "\x1b[32m", "\x1b[33m", "\x1b[35m", "\x1b[34m", "\x1b[31m"}

// ansiPaletteLight is the same cycle with the bold attribute (SGR 1) added,
// used for spec.md §6's --light-theme.
var ansiPaletteLight = []string{"\x1b[36;1m", "\x1b[32;1m", "\x1b[33;1m", "\x1b[35;1m", "\x1b[34;1m", "\x1b[31;1m"}

// Colorize wraps s in the palette color assigned to pathID, or returns s
// unchanged if color is disabled. light selects the --light-theme palette.
func Colorize(enabled bool, light bool, pathID int, s string) string {
	if !enabled {
		return s
	}
	palette := ansiPalette
	if light {
		palette = ansiPaletteLight
	}
	c := palette[pathID%len(palette)]
	return fmt.Sprintf("%s%s\x1b[0m", c, s)
}

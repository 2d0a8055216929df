// Package main implements logsift's command-line interface: a single
// root command that discovers paths, spawns one worker goroutine per
// file, and drains them through the merge/print loop, per spec.md §6.
package main

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/dalibo/logsift/internal/cancel"
	"github.com/dalibo/logsift/internal/cli"
	"github.com/dalibo/logsift/internal/dtparse"
	"github.com/dalibo/logsift/internal/filetype"
	"github.com/dalibo/logsift/internal/journal"
	"github.com/dalibo/logsift/internal/merge"
	"github.com/dalibo/logsift/internal/worker"
)

var (
	version string
	commit  string
	date    string
)

var (
	dtAfterFlag  string
	dtBeforeFlag string
	tzOffsetFlag string

	prependTZFlag    string
	prependUTCFlag   bool
	prependLocalFlag bool
	prependDTFmtFlag string
	prependFileFlag  bool
	prependPathFlag  bool
	prependAlignFlag bool
	prependSepFlag   string

	separatorFlag  string
	blockszFlag    string
	colorFlag      string
	lightThemeFlag bool

	journalOutputFlag string
	etlParserFlag     string

	summaryFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "logsift [OPTIONS] <PATHS>...",
	Short: "Search and merge multi-format logs in chronological order",
	Long: `logsift discovers log files across several formats — free-form
syslog text, fixed-size binary records (utmp/utmpx/acct/lastlog), Windows
EVTX XML, systemd journal exports, and Python-emitted ETL/ODL event
streams — filters them to a datetime window, and prints matching entries
to stdout in global chronological order.

Paths may be files, directories (recursed), or tar archives (expanded).
Pass "-" to read a newline-separated path list from standard input.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLogsift,
}

// Execute runs the root command.
func Execute(v, c, d string) {
	version, commit, date = v, c, d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&dtAfterFlag, "dt-after", "a", "", "only entries at or after this datetime")
	rootCmd.Flags().StringVarP(&dtBeforeFlag, "dt-before", "b", "", "only entries at or before this datetime")
	rootCmd.Flags().StringVarP(&tzOffsetFlag, "tz-offset", "t", "", "fallback timezone offset for timestamps lacking one")

	rootCmd.Flags().StringVarP(&prependTZFlag, "prepend-tz", "z", "", "prepend datetime in this timezone")
	rootCmd.Flags().BoolVarP(&prependUTCFlag, "prepend-utc", "u", false, "prepend datetime in UTC")
	rootCmd.Flags().BoolVarP(&prependLocalFlag, "prepend-local", "l", false, "prepend datetime in the local zone")
	rootCmd.Flags().StringVarP(&prependDTFmtFlag, "prepend-dt-format", "d", "", "strftime-style format for the prepended datetime")
	rootCmd.Flags().BoolVarP(&prependFileFlag, "prepend-filename", "n", false, "prepend the source file's base name")
	rootCmd.Flags().BoolVarP(&prependPathFlag, "prepend-filepath", "p", false, "prepend the source file's full path")
	rootCmd.Flags().BoolVarP(&prependAlignFlag, "prepend-file-align", "w", false, "pad prepended file identity to a common width")
	rootCmd.Flags().StringVar(&prependSepFlag, "prepend-separator", ":", "separator between prepended fields")

	rootCmd.Flags().StringVar(&separatorFlag, "separator", "", "extra separator printed after every emitted message")
	rootCmd.Flags().StringVar(&blockszFlag, "blocksz", "65536", "block size (decimal, 0xHEX, 0oOCT, 0bBIN)")
	rootCmd.Flags().StringVarP(&colorFlag, "color", "c", "auto", "color output: always, auto, never")
	rootCmd.Flags().BoolVar(&lightThemeFlag, "light-theme", false, "use a light-background color palette")

	rootCmd.Flags().StringVar(&journalOutputFlag, "journal-output", "short", "journal record rendering style")
	rootCmd.Flags().StringVar(&etlParserFlag, "etl-parser", "", "external ETL parser hint (outside the core)")

	rootCmd.Flags().BoolVar(&summaryFlag, "summary", false, "emit the per-file and global summary to stderr")
}

func runLogsift(cmd *cobra.Command, args []string) error {
	paths, err := expandPathArgs(args)
	if err != nil {
		return err
	}

	blksz, err := cli.ParseBlockSz(blockszFlag)
	if err != nil {
		return err
	}
	colorMode, err := cli.ParseColorMode(colorFlag)
	if err != nil {
		return err
	}
	color := cli.ResolveColor(colorMode)

	tzFallback := time.UTC
	if tzOffsetFlag != "" {
		loc, err := dtparse.ResolveTZ(tzOffsetFlag)
		if err != nil {
			return fmt.Errorf("invalid --tz-offset %q: %w", tzOffsetFlag, err)
		}
		tzFallback = loc
	}

	after, before, err := cli.ResolveWindow(dtAfterFlag, dtBeforeFlag, time.Now(), tzFallback)
	if err != nil {
		return err
	}

	prepend := cli.PrependConfig{
		DTFormat:  prependDTFmtFlag,
		Filename:  prependFileFlag,
		Filepath:  prependPathFlag,
		Separator: cli.UnescapeSeparator(prependSepFlag),
	}
	switch {
	case prependUTCFlag:
		prepend.TZ = time.UTC
	case prependLocalFlag:
		prepend.TZ = time.Local
	case prependTZFlag != "":
		if loc, err := dtparse.ResolveTZ(prependTZFlag); err == nil {
			prepend.TZ = loc
		} else {
			return fmt.Errorf("invalid --prepend-tz %q: %w", prependTZFlag, err)
		}
	}
	sep := cli.UnescapeSeparator(separatorFlag)

	journalPolicy := journal.PolicyPreferSourceRealtime

	ctl := cancel.NewController()
	stopSignals := ctl.Install(os.Interrupt)
	defer stopSignals()

	var results []filetype.Result
	for _, p := range paths {
		results = append(results, filetype.ProcessPath(p, ctl.TempFile)...)
	}

	// valid holds only the processable results, in CLI/walk order; its
	// index IS the worker PathId, so every PathId-keyed lookup below
	// (paths-for-prepend, results-for-error-text) must go through valid,
	// never the raw results/paths slices which include skipped entries.
	var valid []filetype.Result
	var hadError bool
	for _, r := range results {
		if r.Status != filetype.Valid {
			if summaryFlag && r.Status != filetype.ErrEmpty && r.Status != filetype.ErrTooSmall {
				fmt.Fprintf(os.Stderr, "logsift: skip %s: %v\n", r.Path, r.Status)
			}
			continue
		}
		valid = append(valid, r)
	}

	if prependAlignFlag {
		prepend.AlignWidth = 0
		for _, r := range valid {
			if len(r.Path) > prepend.AlignWidth {
				prepend.AlignWidth = len(r.Path)
			}
		}
	}

	m := merge.New(ctl.Flag,
		func(pathID int, msg worker.Message) {
			prefix := cli.Prepend(prepend, valid[pathID].Path, msg.DateTimeL)
			line := prefix + string(msg.Raw)
			fmt.Print(cli.Colorize(color, lightThemeFlag, pathID, line))
			if sep != "" {
				fmt.Print(sep)
			}
			if len(msg.Raw) == 0 || msg.Raw[len(msg.Raw)-1] != '\n' {
				fmt.Print("\n")
			}
		},
		func(pathID int, mtime time.Time, err error) {
			if err != nil {
				hadError = true
				if summaryFlag {
					fmt.Fprintf(os.Stderr, "logsift: %s: %v\n", valid[pathID].Path, err)
				}
			}
		},
		func(pathID int, s worker.Summary) {
			if s.Note != "" {
				hadError = true
			}
			if summaryFlag {
				fmt.Fprintf(os.Stderr, "logsift: %s: %d entries\n", s.Path, s.MessagesFound)
			}
		},
	)

	var wg sync.WaitGroup
	for pathID, r := range valid {
		cfg := worker.Config{
			Path: r.Path, PathID: pathID, FileType: r.FileType, BlockSz: blksz,
			DtAfter: after, DtBefore: before, TzFallback: tzFallback, RefYear: time.Now().Year(),
			JournalPolicy: journalPolicy,
			TarContainer:  r.TarContainer, TarMember: r.TarMember, IsTarMember: r.TarContainer != "",
		}
		ch := make(chan worker.ChanDatum, 5)
		stop := make(chan struct{})
		m.Register(pathID, ch, stop)

		wg.Add(1)
		go func(cfg worker.Config) {
			defer wg.Done()
			worker.Run(cfg, ch, stop)
		}(cfg)
	}

	m.Run()
	wg.Wait()
	ctl.TempFile.RemoveAll()

	if ctl.Flag.Cancelled() {
		return fmt.Errorf("logsift: cancelled")
	}
	if hadError {
		return fmt.Errorf("logsift: one or more files reported errors")
	}
	return nil
}

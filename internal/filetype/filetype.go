// Package filetype implements C8: classifying a command-line path into
// one or more concrete files to process, each tagged with its archival
// kind and content kind, the way spec.md §4.8 describes. Directories are
// recursed, tar members are expanded into synthetic "outer.tar|inner"
// paths, and a handful of well-known non-log extensions are skipped
// during automatic directory walks (but honored if named directly).
package filetype

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dalibo/logsift/internal/block"
	"github.com/dalibo/logsift/internal/cancel"
)

// Kind names the content format once archival wrapping is stripped away.
type Kind int

const (
	KindTextSyslog Kind = iota
	KindFixedStruct
	KindEvtx
	KindJournal
	KindEtl
	KindOdl
	KindUnparsable
)

func (k Kind) String() string {
	switch k {
	case KindTextSyslog:
		return "text"
	case KindFixedStruct:
		return "fixedstruct"
	case KindEvtx:
		return "evtx"
	case KindJournal:
		return "journal"
	case KindEtl:
		return "etl"
	case KindOdl:
		return "odl"
	default:
		return "unparsable"
	}
}

// FileType is (archival, kind), per spec.md §3's FileType type.
type FileType struct {
	Archival block.Archival
	Kind     Kind
}

// Status enumerates ProcessPathResult outcomes, per spec.md §4.8 and §7.
type Status int

const (
	Valid Status = iota
	ErrEmpty
	ErrTooSmall
	ErrNoPermissions
	ErrNotSupported
	ErrNotAFile
	ErrNotExist
	ErrLoadingLibrary
	ErrGeneric
)

// EntrySzMin is the minimum byte length for a file to be worth opening at
// all (ENTRY_SZ_MIN in spec.md §7's exit-code table).
const EntrySzMin = 16

// Result is one ProcessPathResult: either a file ready to process
// (Status == Valid) or a reason it was skipped.
type Result struct {
	Path     string
	FileType FileType
	Status   Status
	Len      int64
	Msg      string

	// TarContainer and TarMember are set when Path is a synthetic
	// "outer.tar|inner/path" expansion.
	TarContainer string
	TarMember    block.TarMember
}

// skipExtensions lists extensions ignored during automatic directory
// recursion. Passing one of these paths directly still processes it.
var skipExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".zip": true, ".exe": true, ".dll": true, ".so": true, ".a": true, ".o": true,
	".pdf": true, ".mp3": true, ".mp4": true, ".class": true, ".pyc": true,
	".png16": true,
}

func archivalFor(path string) block.Archival {
	switch {
	case strings.HasSuffix(path, ".tar"):
		return block.Tar
	case strings.HasSuffix(path, ".tar.gz"), strings.HasSuffix(path, ".tgz"):
		return block.Tar // handled as compressed tar by IndexTar
	case strings.HasSuffix(path, ".gz"):
		return block.Gz
	case strings.HasSuffix(path, ".xz"):
		return block.Xz
	case strings.HasSuffix(path, ".bz2"):
		return block.Bz2
	case strings.HasSuffix(path, ".lz4"):
		return block.Lz4
	default:
		return block.Normal
	}
}

// isCompressedTar reports whether path names a tar archive that is
// itself compressed (.tar.gz, .tar.xz, .tar.bz2, .tar.lz4), which
// requires decompress-to-temp-file before indexing (internal/block/tar.go).
func isCompressedTar(path string) (block.Archival, bool) {
	switch {
	case strings.HasSuffix(path, ".tar.gz"), strings.HasSuffix(path, ".tgz"):
		return block.Gz, true
	case strings.HasSuffix(path, ".tar.xz"):
		return block.Xz, true
	case strings.HasSuffix(path, ".tar.bz2"):
		return block.Bz2, true
	case strings.HasSuffix(path, ".tar.lz4"):
		return block.Lz4, true
	default:
		return block.Normal, false
	}
}

func isTarPath(path string) bool {
	if strings.HasSuffix(path, ".tar") {
		return true
	}
	_, ok := isCompressedTar(path)
	return ok
}

// sniffKind classifies the decompressed content of a file from a small
// leading sample.
func sniffKind(sample []byte) Kind {
	trimmed := bytes.TrimLeft(sample, " \t\r\n")
	switch {
	case bytes.HasPrefix(trimmed, []byte("<?xml")), bytes.HasPrefix(trimmed, []byte("<Event")), bytes.HasPrefix(trimmed, []byte("<Events")):
		return KindEvtx
	case bytes.Contains(sample, []byte("__REALTIME_TIMESTAMP=")), bytes.Contains(sample, []byte("__CURSOR=")):
		return KindJournal
	case bytes.HasPrefix(trimmed, []byte("{")):
		return KindEtl
	case looksBinaryStruct(sample):
		return KindFixedStruct
	case looksLikeText(sample):
		return KindTextSyslog
	default:
		return KindUnparsable
	}
}

func looksLikeText(sample []byte) bool {
	if len(sample) == 0 {
		return false
	}
	nonPrintable := 0
	for _, b := range sample {
		if b == 0 {
			return false
		}
		if b < 0x09 || (b > 0x0d && b < 0x20) {
			nonPrintable++
		}
	}
	return nonPrintable*10 < len(sample)
}

func looksBinaryStruct(sample []byte) bool {
	nulls := bytes.Count(sample, []byte{0})
	return nulls*3 > len(sample) // many embedded NULs: packed C struct, not text
}

// ProcessPath classifies path, recursing into directories and expanding
// tar archives, per spec.md §4.8. reg registers any temp files created
// while indexing compressed tars so they're cleaned up on normal drop or
// by the signal handler.
func ProcessPath(path string, reg *cancel.Registry) []Result {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Result{{Path: path, Status: ErrNotExist, Msg: err.Error()}}
		}
		if os.IsPermission(err) {
			return []Result{{Path: path, Status: ErrNoPermissions, Msg: err.Error()}}
		}
		return []Result{{Path: path, Status: ErrGeneric, Msg: err.Error()}}
	}

	if fi.IsDir() {
		return processDir(path, reg)
	}
	if !fi.Mode().IsRegular() {
		return []Result{{Path: path, Status: ErrNotAFile}}
	}
	return classifyFile(path, fi.Size(), reg, true)
}

func processDir(dir string, reg *cancel.Registry) []Result {
	var results []Result
	filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			results = append(results, Result{Path: p, Status: ErrGeneric, Msg: err.Error()})
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if skipExtensions[strings.ToLower(filepath.Ext(p))] {
			return nil
		}
		fi, err := os.Stat(p)
		if err != nil {
			results = append(results, Result{Path: p, Status: ErrGeneric, Msg: err.Error()})
			return nil
		}
		if !fi.Mode().IsRegular() {
			// os.Stat follows symlinks, so a link to a regular file is
			// classified like that file; anything else non-regular is skipped.
			return nil
		}
		results = append(results, classifyFile(p, fi.Size(), reg, false)...)
		return nil
	})
	return results
}

func classifyFile(path string, size int64, reg *cancel.Registry, direct bool) []Result {
	if size == 0 {
		return []Result{{Path: path, Status: ErrEmpty, Len: 0}}
	}
	if size < EntrySzMin {
		return []Result{{Path: path, Status: ErrTooSmall, Len: size}}
	}

	if isTarPath(path) {
		return expandTar(path, reg)
	}

	a := archivalFor(path)
	sample, err := sniffSample(path, a)
	if err != nil {
		return []Result{{Path: path, Status: ErrGeneric, Msg: err.Error()}}
	}
	kind := sniffKind(sample)
	if kind == KindUnparsable {
		return []Result{{Path: path, Status: ErrNotSupported, FileType: FileType{Archival: a, Kind: kind}}}
	}
	return []Result{{Path: path, Status: Valid, FileType: FileType{Archival: a, Kind: kind}, Len: size}}
}

const sniffWindow = 4096

func sniffSample(path string, a block.Archival) ([]byte, error) {
	br, err := block.Open(path, a, sniffWindow)
	if err != nil {
		return nil, err
	}
	defer br.Close()
	buf := make([]byte, sniffWindow)
	n, _, err := br.ReadDataToBuffer(0, block.FileOffset(sniffWindow), false, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func expandTar(path string, reg *cancel.Registry) []Result {
	a := block.Normal
	if ca, ok := isCompressedTar(path); ok {
		a = ca
	} else {
		a = block.Tar
	}

	members, effectivePath, err := block.IndexTar(path, a, reg)
	if err != nil {
		return []Result{{Path: path, Status: ErrGeneric, Msg: err.Error()}}
	}

	var results []Result
	for _, m := range members {
		if m.Size == 0 {
			continue
		}
		synthetic := path + "|" + m.Name
		if m.Size < EntrySzMin {
			results = append(results, Result{Path: synthetic, Status: ErrTooSmall, Len: m.Size})
			continue
		}

		br, err := block.OpenTarMember(effectivePath, m, sniffWindow)
		if err != nil {
			results = append(results, Result{Path: synthetic, Status: ErrGeneric, Msg: err.Error()})
			continue
		}
		buf := make([]byte, sniffWindow)
		n, _, err := br.ReadDataToBuffer(0, block.FileOffset(sniffWindow), false, buf)
		br.Close()
		if err != nil {
			results = append(results, Result{Path: synthetic, Status: ErrGeneric, Msg: err.Error()})
			continue
		}

		kind := sniffKind(buf[:n])
		if kind == KindUnparsable {
			results = append(results, Result{Path: synthetic, Status: ErrNotSupported})
			continue
		}
		results = append(results, Result{
			Path: synthetic, Status: Valid,
			FileType: FileType{Archival: block.Normal, Kind: kind}, Len: m.Size,
			TarContainer: effectivePath, TarMember: m,
		})
	}
	return results
}

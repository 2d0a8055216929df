package block

import (
	"archive/tar"
	"io"
	"os"
	"time"

	"github.com/dalibo/logsift/internal/cancel"
)

// TarMember describes one regular-file entry found while indexing a tar
// (or compressed-tar) archive: its name, its byte range within the
// seekable container path, and its mtime. Built once on open per spec.md
// §4.1 ("the tar index is parsed once on open").
type TarMember struct {
	Name    string
	Base    int64
	Size    int64
	ModTime time.Time
}

// countingReader tracks total bytes read through it so the tar index can
// record each member's byte offset without the underlying reader
// supporting Seek/Tell.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// IndexTar parses a tar archive's headers and returns its regular-file
// members plus the path readers should open for block access: path itself
// when the tar is uncompressed (already seekable), or a freshly-written
// temp file when the container needed streaming decompression first. The
// temp file, if any, is registered with reg for cleanup on drop/signal.
func IndexTar(path string, a Archival, reg *cancel.Registry) ([]TarMember, string, error) {
	if a == Tar || a == Normal {
		members, err := indexTarAt(path, 0)
		return members, path, err
	}

	c, ok := codecFor(a)
	if !ok {
		return nil, "", ErrClosed
	}

	src, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	dec, err := c.opener(src)
	if err != nil {
		return nil, "", err
	}
	if closer, ok := dec.(io.Closer); ok {
		defer closer.Close()
	}

	tmp, err := os.CreateTemp("", "logsift-tar-*.tmp")
	if err != nil {
		return nil, "", err
	}
	reg.Add(tmp.Name())

	if _, err := io.Copy(tmp, dec); err != nil {
		tmp.Close()
		reg.Remove(tmp.Name())
		return nil, "", err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		reg.Remove(tmp.Name())
		return nil, "", err
	}
	tmp.Close()

	members, err := indexTarAt(tmp.Name(), 0)
	return members, tmp.Name(), err
}

func indexTarAt(path string, _ int64) ([]TarMember, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := &countingReader{r: f}
	tr := tar.NewReader(cr)

	var members []TarMember
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return members, err
		}
		if hdr.Typeflag != tar.TypeReg && hdr.Typeflag != tar.TypeRegA {
			continue
		}
		if hdr.Size == 0 {
			continue
		}
		members = append(members, TarMember{
			Name:    hdr.Name,
			Base:    cr.n,
			Size:    hdr.Size,
			ModTime: hdr.ModTime,
		})
	}
	return members, nil
}

// OpenTarMember opens a block.Reader scoped to one member's byte range
// within a seekable container path (the original file, or the temp file
// IndexTar produced for a compressed container).
func OpenTarMember(containerPath string, m TarMember, blksz int) (Reader, error) {
	f, err := os.Open(containerPath)
	if err != nil {
		return nil, err
	}
	return OpenPlainRange(f, m.Base, m.Size, m.ModTime, blksz)
}

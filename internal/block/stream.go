package block

import (
	"compress/bzip2"
	"errors"
	"io"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/pgzip"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// codec mirrors the teacher's parser/compression.go compressionCodec: a
// name plus an opener that wraps an io.Reader in the format's decoder.
// Block reading here generalizes that file-level streaming read into
// block-offset-addressed access.
type codec struct {
	name   string
	opener func(io.Reader) (io.Reader, error)
}

var (
	gzCodec  = codec{"gz", func(r io.Reader) (io.Reader, error) { return pgzip.NewReader(r) }}
	xzCodec  = codec{"xz", func(r io.Reader) (io.Reader, error) { return xz.NewReader(r) }}
	bz2Codec = codec{"bz2", func(r io.Reader) (io.Reader, error) { return bzip2.NewReader(r), nil }}
	lz4Codec = codec{"lz4", func(r io.Reader) (io.Reader, error) { return lz4.NewReader(r), nil }}
)

func codecFor(a Archival) (codec, bool) {
	switch a {
	case Gz:
		return gzCodec, true
	case Xz:
		return xzCodec, true
	case Bz2:
		return bz2Codec, true
	case Lz4:
		return lz4Codec, true
	default:
		return codec{}, false
	}
}

// streamWindow bounds how many already-produced blocks a stream reader
// keeps available for reread before declaring ErrOutOfOrder. It is an LRU
// in name only — eviction order always matches production order because
// reads are forward-only, but reusing lru.Cache keeps the cache
// implementation (and its dependency) shared with the plain reader.
const streamWindow = 32

// streamReader serves Blocks from a one-pass, forward-only decompressor.
// Blocks must be requested in ascending order; a request for a block
// before the retained window is a reread_error (spec.md §4.1).
type streamReader struct {
	file *os.File
	dec  io.Reader
	name string

	blksz       int
	nextToMake  BlockOffset
	done        bool
	fileSzGuess int64 // archived size; decompressed size is unknown up front
	modt        time.Time

	cache       *lru.Cache[BlockOffset, *Block]
	rereadErrs  int
	corrupt     error
}

// OpenStream opens path under the given stream archival codec.
func OpenStream(path string, a Archival, blksz int) (Reader, error) {
	c, ok := codecFor(a)
	if !ok {
		return nil, ErrClosed
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	dec, err := c.opener(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if blksz < MinBlockSz {
		blksz = MinBlockSz
	}
	if blksz > MaxBlockSz {
		blksz = MaxBlockSz
	}
	cache, err := lru.New[BlockOffset, *Block](streamWindow)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &streamReader{
		file: f, dec: dec, name: c.name, blksz: blksz,
		fileSzGuess: fi.Size(), modt: fi.ModTime(), cache: cache,
	}, nil
}

func (s *streamReader) Result() OpenResult {
	return OpenResult{FileSz: s.fileSzGuess, FileSzActual: -1, ModTime: s.modt, BlocksTotal: -1}
}

func (s *streamReader) BlockSz() int { return s.blksz }

// RereadErrors reports how many out-of-window rereads were attempted —
// surfaced in the per-file summary.
func (s *streamReader) RereadErrors() int { return s.rereadErrs }

func (s *streamReader) ReadBlock(bo BlockOffset) (*Block, Status, error) {
	if blk, ok := s.cache.Get(bo); ok {
		return blk, Found, nil
	}
	if bo < s.nextToMake {
		// Already produced and evicted from the retained window.
		s.rereadErrs++
		return nil, Err, ErrOutOfOrder
	}
	if s.corrupt != nil {
		return nil, Err, s.corrupt
	}
	if s.done {
		return nil, Done, nil
	}

	// Decode forward, sequentially, until bo is produced.
	for s.nextToMake <= bo {
		buf := make([]byte, s.blksz)
		n, err := io.ReadFull(s.dec, buf)
		if n > 0 {
			blk := &Block{Offset: s.nextToMake, Data: buf[:n]}
			s.cache.Add(s.nextToMake, blk)
			s.nextToMake++
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				s.done = true
				if blk.Offset == bo {
					return blk, Found, nil
				}
				return nil, Done, nil
			}
			if err != nil {
				s.corrupt = errors.Join(ErrCorrupt, err)
				if blk.Offset == bo {
					return blk, Found, nil
				}
				return nil, Err, s.corrupt
			}
			if blk.Offset == bo {
				return blk, Found, nil
			}
			continue
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			s.done = true
			return nil, Done, nil
		}
		s.corrupt = errors.Join(ErrCorrupt, err)
		return nil, Err, s.corrupt
	}
	return nil, Done, nil
}

func (s *streamReader) ReadDataToBuffer(foBeg, foEnd FileOffset, oneBlock bool, buf []byte) (int, Status, error) {
	return readSpan(s, foBeg, foEnd, oneBlock, buf)
}

// DropBlock refuses once bo is before the current decode frontier's
// retained window, matching spec.md's "best-effort; stream formats may
// refuse" language.
func (s *streamReader) DropBlock(bo BlockOffset) bool {
	return s.cache.Remove(bo)
}

func (s *streamReader) Close() error {
	if c, ok := s.dec.(io.Closer); ok {
		c.Close()
	}
	return s.file.Close()
}

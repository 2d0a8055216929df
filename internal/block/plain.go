package block

import (
	"io"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// plainReader serves Blocks by random-access ReadAt against an *os.File (or
// a byte range within one, for tar members). Random-order reads are cheap
// here, unlike the stream-format readers, so a bounded LRU is purely a
// memory-pressure valve rather than a correctness requirement.
type plainReader struct {
	f        *os.File
	ownsFile bool

	base   int64 // byte offset of this logical file's start within f
	sz     int64 // logical file size
	modt   time.Time
	blksz  int
	blocks int64

	cache *lru.Cache[BlockOffset, *Block]
}

// cachedBlocks bounds the plain reader's LRU; blocks are cheap to
// re-fetch via ReadAt so this just caps steady-state memory.
const cachedBlocks = 64

// OpenPlain opens path as a plain (uncompressed) block source.
func OpenPlain(path string, blksz int) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return newPlainReader(f, true, 0, fi.Size(), fi.ModTime(), blksz)
}

// OpenPlainRange opens a byte range [base, base+sz) of f as a plain block
// source — used for tar members and for decompressed tar-extraction temp
// files. f is owned by the returned Reader and closed with it.
func OpenPlainRange(f *os.File, base, sz int64, modt time.Time, blksz int) (Reader, error) {
	return newPlainReader(f, true, base, sz, modt, blksz)
}

func newPlainReader(f *os.File, owns bool, base, sz int64, modt time.Time, blksz int) (Reader, error) {
	if blksz < 1 {
		blksz = MinBlockSz
	}
	if blksz > MaxBlockSz {
		blksz = MaxBlockSz
	}
	c, err := lru.New[BlockOffset, *Block](cachedBlocks)
	if err != nil {
		if owns {
			f.Close()
		}
		return nil, err
	}
	blocks := (sz + int64(blksz) - 1) / int64(blksz)
	return &plainReader{
		f: f, ownsFile: owns, base: base, sz: sz, modt: modt,
		blksz: blksz, blocks: blocks, cache: c,
	}, nil
}

func (p *plainReader) Result() OpenResult {
	return OpenResult{FileSz: p.sz, FileSzActual: p.sz, ModTime: p.modt, BlocksTotal: p.blocks}
}

func (p *plainReader) BlockSz() int { return p.blksz }

func (p *plainReader) ReadBlock(bo BlockOffset) (*Block, Status, error) {
	if bo < 0 || int64(bo) >= p.blocks {
		return nil, Done, nil
	}
	if blk, ok := p.cache.Get(bo); ok {
		return blk, Found, nil
	}

	start := int64(bo) * int64(p.blksz)
	end := start + int64(p.blksz)
	if end > p.sz {
		end = p.sz
	}
	buf := make([]byte, end-start)
	n, err := p.f.ReadAt(buf, p.base+start)
	if err != nil && err != io.EOF {
		return nil, Err, err
	}
	blk := &Block{Offset: bo, Data: buf[:n]}
	p.cache.Add(bo, blk)
	return blk, Found, nil
}

func (p *plainReader) ReadDataToBuffer(foBeg, foEnd FileOffset, oneBlock bool, buf []byte) (int, Status, error) {
	return readSpan(p, foBeg, foEnd, oneBlock, buf)
}

func (p *plainReader) DropBlock(bo BlockOffset) bool {
	return p.cache.Remove(bo)
}

func (p *plainReader) Close() error {
	if p.ownsFile {
		return p.f.Close()
	}
	return nil
}

// readSpan is the shared implementation of ReadDataToBuffer for any Reader,
// built only out of ReadBlock, so stream and plain readers share one code
// path for the multi-block copy logic.
func readSpan(r Reader, foBeg, foEnd FileOffset, oneBlock bool, buf []byte) (int, Status, error) {
	blksz := int64(r.BlockSz())
	written := 0
	fo := foBeg
	firstBo := BlockOffset(int64(foBeg) / blksz)

	for fo < foEnd {
		bo := BlockOffset(int64(fo) / blksz)
		if oneBlock && bo != firstBo {
			return written, Done, nil
		}

		blk, status, err := r.ReadBlock(bo)
		if status == Done {
			if written > 0 {
				return written, Found, nil
			}
			return 0, Done, nil
		}
		if status == Err {
			return written, Err, err
		}

		blockStart := int64(bo) * blksz
		offInBlock := int64(fo) - blockStart
		if offInBlock >= int64(len(blk.Data)) {
			// Short final block; nothing more to copy.
			return written, Done, nil
		}

		avail := int64(len(blk.Data)) - offInBlock
		need := int64(foEnd) - int64(fo)
		if need < avail {
			avail = need
		}
		room := int64(len(buf)) - int64(written)
		if avail > room {
			avail = room
		}
		if avail <= 0 {
			return written, Found, nil
		}

		copy(buf[written:], blk.Data[offInBlock:offInBlock+avail])
		written += int(avail)
		fo += FileOffset(avail)

		if written >= len(buf) {
			return written, Found, nil
		}
	}
	return written, Found, nil
}

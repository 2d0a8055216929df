// Package lineio implements C3: on-demand discovery of newline-delimited
// Lines atop a block.Reader, with a per-file LRU cache keyed by starting
// FileOffset so repeated lookups (e.g. during sysline learning) are cheap.
package lineio

import (
	"bytes"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dalibo/logsift/internal/block"
)

// Line is a half-open byte range [FoBeg, FoEnd) ending just after '\n' or
// at EOF, plus its bytes (including the trailing '\n', if any).
type Line struct {
	FoBeg, FoEnd block.FileOffset
	Data         []byte
}

// cacheSize bounds the line LRU; sysline.Reader calls DropLine as it
// advances so steady-state occupancy stays well under this.
const cacheSize = 256

// Reader finds Lines atop a block.Reader.
type Reader struct {
	br    block.Reader
	cache *lru.Cache[block.FileOffset, Line]

	// blockRefs tracks, per cached Line, the Blocks it was assembled from —
	// each held with one Block.Ref() while the Line is cached, released by
	// DropLine. This is the "shared read-only with readers above via
	// reference counting" mechanism spec.md §3 describes for C1: a Block
	// is only offered back to the block.Reader for eviction (DropBlock)
	// once every Line built from it has been dropped.
	blockRefs map[block.FileOffset][]*block.Block
}

// New wraps br with line-finding.
func New(br block.Reader) (*Reader, error) {
	c, err := lru.New[block.FileOffset, Line](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Reader{br: br, cache: c, blockRefs: make(map[block.FileOffset][]*block.Block)}, nil
}

// FindLine returns the Line starting at foBeg (foBeg must be a line
// boundary — either 0 or a prior Line's FoEnd), scanning forward through
// blocks as needed for the terminating '\n' or EOF.
func (r *Reader) FindLine(foBeg block.FileOffset) (Line, block.Status, error) {
	if line, ok := r.cache.Get(foBeg); ok {
		return line, block.Found, nil
	}

	blksz := int64(r.br.BlockSz())
	var data []byte
	fo := foBeg

	var touched []*block.Block
	seen := make(map[block.BlockOffset]bool)
	touch := func(blk *block.Block) {
		if !seen[blk.Offset] {
			seen[blk.Offset] = true
			touched = append(touched, blk)
		}
	}
	finish := func(fo block.FileOffset, data []byte) Line {
		for _, blk := range touched {
			blk.Ref()
		}
		line := Line{FoBeg: foBeg, FoEnd: fo, Data: data}
		r.cache.Add(foBeg, line)
		r.blockRefs[foBeg] = touched
		return line
	}

	for {
		bo := block.BlockOffset(int64(fo) / blksz)
		blk, status, err := r.br.ReadBlock(bo)
		if status == block.Err {
			return Line{}, block.Err, err
		}
		if status == block.Done {
			if len(data) == 0 {
				return Line{}, block.Done, nil
			}
			return finish(fo, data), block.Found, nil
		}

		blockStart := int64(bo) * blksz
		offInBlock := int64(fo) - blockStart
		if offInBlock >= int64(len(blk.Data)) {
			if len(data) == 0 {
				return Line{}, block.Done, nil
			}
			return finish(fo, data), block.Found, nil
		}
		touch(blk)

		rest := blk.Data[offInBlock:]
		if idx := bytes.IndexByte(rest, '\n'); idx >= 0 {
			data = append(data, rest[:idx+1]...)
			fo += block.FileOffset(idx + 1)
			return finish(fo, data), block.Found, nil
		}

		data = append(data, rest...)
		fo += block.FileOffset(len(rest))
	}
}

// DropLine evicts a cached Line once the layer above no longer needs it,
// and releases its hold on every Block it was built from — offering each
// back to the block.Reader for eviction once its last Line-level referent
// is gone.
func (r *Reader) DropLine(foBeg block.FileOffset) bool {
	removed := r.cache.Remove(foBeg)
	if blocks, ok := r.blockRefs[foBeg]; ok {
		delete(r.blockRefs, foBeg)
		for _, blk := range blocks {
			if blk.Unref() {
				r.br.DropBlock(blk.Offset)
			}
		}
	}
	return removed
}

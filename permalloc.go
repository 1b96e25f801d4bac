// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

// findLastBlock walks the physical block chain to find the block
// immediately preceding the sentinel. Permalloc is the only caller; every
// other operation reaches a block through a free list or a caller-held
// offset, never by a full chain walk.
func (p *Pool) findLastBlock() uint32 {
	off := p.firstBlockOff()
	for p.physNext(off) != p.sentinelOff {
		off = p.physNext(off)
	}
	return off
}

// Permalloc carves size bytes off the tail of the pool's last free block,
// immediately below the fixed sentinel. The allocation can never be freed,
// split out of, or coalesced into, per spec.md §4.9. If the block
// immediately preceding the sentinel is used or too small to satisfy size,
// Permalloc falls back to Malloc(size), per spec.md §4.8 step 2 and §6.1's
// "Falls back to malloc internally" contract; it only reports failure
// (nil) if that fallback also fails.
//
// Unlike the C source, which reuses the sentinel's own header bytes by
// relocating the sentinel alloc bytes closer to the pool's start,
// estalloc-go leaves the sentinel's offset fixed and gives the carved
// block its own header, at the cost of blockHeaderSize bytes of the
// carve per call. This keeps Pool.sentinelOff a write-once field instead
// of a value every Permalloc call must mutate, for a negligible, one-time
// per-call overhead against a tail region that is never reclaimed anyway.
func (p *Pool) Permalloc(size int) []byte {
	if size < 0 {
		panic("estalloc: invalid permalloc size")
	}

	alloc := p.allocSizeFor(size)
	prev := p.findLastBlock()
	if p.isUsed(prev) || p.blockSize(prev) < alloc {
		return p.Malloc(size)
	}

	if p.cfg.Debug && p.permOffsets == nil {
		p.permOffsets = make(map[uint32]bool)
	}

	remaining := p.blockSize(prev) - alloc
	if remaining < p.minBlockSize {
		// Too little would be left behind to stand as its own free block;
		// fold it into the permalloc'd block instead of stranding it.
		p.removeFreeBlock(prev)
		p.setUsed(prev)
		p.setPrevUsed(p.sentinelOff)
		p.usedBytes += p.blockSize(prev)
		if p.cfg.Debug {
			p.permOffsets[prev] = true
		}
		p.profileHook()
		return p.sliceAt(prev+p.blockHeaderSize, size, int(p.blockSize(prev)-p.blockHeaderSize))
	}

	newOff := prev + remaining
	p.removeFreeBlock(prev)
	p.setBlockSize(prev, remaining)
	p.addFreeBlock(prev)

	p.setU32(newOff, alloc|flagUsed)
	p.setPrevUsed(p.sentinelOff)
	p.usedBytes += alloc
	if p.cfg.Debug {
		p.permOffsets[newOff] = true
	}
	p.profileHook()

	return p.sliceAt(newOff+p.blockHeaderSize, size, int(alloc-p.blockHeaderSize))
}

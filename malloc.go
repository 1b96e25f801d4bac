// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

// allocSizeFor turns a requested payload size into the total block size a
// search must satisfy: header-included, Alignment-rounded, and raised to
// the pool's minimum block size.
func (p *Pool) allocSizeFor(size int) uint32 {
	alloc := roundup32(uint32(size)+p.blockHeaderSize, uint32(p.cfg.Alignment))
	if alloc < p.minBlockSize {
		alloc = p.minBlockSize
	}
	return alloc
}

// findFreeBlock runs the five-step good-fit search from spec.md §4.4:
// same-class fast path, next-class fast path, SLI bitmap probe, FLI bitmap
// probe, first-fit fallback one class down. Returns the chosen block's
// offset, still linked in its free list, or (0, false) on failure.
func (p *Pool) findFreeBlock(alloc uint32) (uint32, bool) {
	index := p.calcIndex(alloc)
	lastIndex := p.cfg.sizeFreeBlocks() - 1

	if off := p.freeListHead(index); off != 0 && p.blockSize(off) >= alloc {
		return off, true
	}

	if index < lastIndex {
		if off := p.freeListHead(index + 1); off != 0 {
			return off, true
		}
	}

	fli, sli := p.decomposeIndex(index)

	if masked := p.sliBitmap(fli) & maskHigherSLI(sli); masked != 0 {
		sli2 := nlz8(masked)
		return p.freeListHead(fli<<uint(p.cfg.SLIBits) + sli2), true
	}

	if masked := p.fliBitmap() & maskHigherFLI(fli); masked != 0 {
		fli2 := nlz16(masked)
		sli2 := nlz8(p.sliBitmap(fli2))
		return p.freeListHead(fli2<<uint(p.cfg.SLIBits) + sli2), true
	}

	if index > 0 {
		for off := p.freeListHead(index - 1); off != 0; off = p.nextFree(off) {
			if p.blockSize(off) >= alloc {
				return off, true
			}
		}
	}

	return 0, false
}

// Malloc allocates a block of at least size bytes and returns it as a byte
// slice over the pool's own memory. The payload is not initialized.
// Malloc(0) succeeds, per spec.md §8's boundary behavior. Returns nil if no
// class can satisfy the request after the full search.
func (p *Pool) Malloc(size int) []byte {
	if size < 0 {
		panic("estalloc: invalid malloc size")
	}

	alloc := p.allocSizeFor(size)
	off, ok := p.findFreeBlock(alloc)
	if !ok {
		return nil
	}

	p.removeFreeBlock(off)
	if rem, split := p.split(off, alloc); split {
		p.setPrevUsed(rem)
		p.addFreeBlock(rem)
	} else {
		p.setPrevUsed(p.physNext(off))
	}
	p.setUsed(off)
	p.usedBytes += p.blockSize(off)
	p.profileHook()

	return p.sliceAt(off+p.blockHeaderSize, size, int(p.blockSize(off)-p.blockHeaderSize))
}

// Calloc is Malloc(n*size) with the payload zeroed. n*size is checked for
// overflow (spec.md §9's open question, resolved here by returning nil
// rather than reproducing the C source's unchecked multiplication).
func (p *Pool) Calloc(n, size int) []byte {
	if n < 0 || size < 0 {
		panic("estalloc: invalid calloc size")
	}
	if n != 0 && size != 0 {
		const maxInt = int(^uint(0) >> 1)
		if size > maxInt/n {
			return nil
		}
	}

	b := p.Malloc(n * size)
	if b == nil {
		return nil
	}
	for i := range b {
		b[i] = 0
	}
	return b
}

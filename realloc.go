// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

// Realloc resizes ptr's allocation to at least size bytes. ptr == nil
// behaves as Malloc(size). On success the first min(old usable size, size)
// bytes are preserved; the returned slice may or may not alias ptr. On
// allocation failure Realloc returns nil and ptr's original allocation is
// left untouched, per spec.md §6.1 and §4.6.
//
// Unlike the C source, which always copies the whole old block's capacity
// on the allocate-and-copy path, Realloc here copies only
// min(old usable size, size) bytes — the relaxation spec.md §9 explicitly
// sanctions as not changing observable correctness.
//
// usedBytes is debited by the block's size as it stood before any
// grow-via-merge absorbs the following free block, not after: origSize is
// captured once, up front, and reused at both the debit and (implicitly,
// via the later blockSize(b) credit) the re-credit, so the net accounting
// always matches what was actually carved out of the free lists, keeping
// Profile's Min/Max watermarks in step with TakeStatistics.
func (p *Pool) Realloc(ptr []byte, size int) []byte {
	if ptr == nil {
		return p.Malloc(size)
	}
	if size < 0 {
		panic("estalloc: invalid realloc size")
	}

	b := p.blockForPayload(ptr)
	if p.cfg.Debug {
		if msg := p.validateFreeTarget(b); msg != "" {
			p.lastError = "estalloc: Realloc: " + msg
			return nil
		}
		p.lastError = ""
	}

	alloc := p.allocSizeFor(size)
	origSize := p.blockSize(b)

	if alloc > origSize {
		next := p.physNext(b)
		if !p.isUsed(next) && origSize+p.blockSize(next) >= alloc {
			p.removeFreeBlock(next)
			p.merge(b, next)
		} else {
			newPtr := p.Malloc(size)
			if newPtr == nil {
				return nil
			}
			old := int(p.blockSize(b) - p.blockHeaderSize)
			n := old
			if size < n {
				n = size
			}
			copy(newPtr[:n], ptr[:n])
			p.Free(ptr)
			return newPtr
		}
	}

	p.usedBytes -= origSize
	if rem, split := p.split(b, alloc); split {
		p.setPrevUsed(rem)
		next := p.physNext(rem)
		if !p.isUsed(next) {
			p.removeFreeBlock(next)
			p.merge(rem, next)
		} else {
			p.clearPrevUsed(next)
		}
		p.addFreeBlock(rem)
	} else {
		p.setPrevUsed(p.physNext(b))
	}
	p.usedBytes += p.blockSize(b)
	p.profileHook()

	return p.sliceAt(b+p.blockHeaderSize, size, int(p.blockSize(b)-p.blockHeaderSize))
}

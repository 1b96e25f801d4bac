// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

import (
	"reflect"
	"unsafe"
)

// Flag bits packed into the low two bits of a block's tagged size field, per
// the MEMORY BLOCK LINK layout in estalloc.c: bit 0 is USED, bit 1 is
// PREV_USED. BLOCK_SIZE is always a multiple of the pool alignment (>= 4),
// so these bits never collide with the real size.
const (
	flagUsed     uint32 = 0x1
	flagPrevUsed uint32 = 0x2
	flagMask     uint32 = 0x3
)

// freeBlockNextOff and freeBlockPrevOff are the byte offsets, relative to a
// free block's start, of its same-class list pointers. The boundary tag
// (top_adrs in estalloc.c) lives in the block's own last 4 bytes and is
// computed from blockSize, not a fixed offset.
const (
	freeBlockNextOff uint32 = 4
	freeBlockPrevOff uint32 = 8

	// freeBlockMinFields is size+next+prev+boundary-tag, the layout floor a
	// free block must have room for regardless of alignment or IgnoreLSBs.
	freeBlockMinFields uint32 = 16
)

func (p *Pool) u32(off uint32) uint32 {
	return *(*uint32)(unsafe.Pointer(&p.buf[off]))
}

func (p *Pool) setU32(off, v uint32) {
	*(*uint32)(unsafe.Pointer(&p.buf[off])) = v
}

func (p *Pool) u16(off uint32) uint16 {
	return *(*uint16)(unsafe.Pointer(&p.buf[off]))
}

func (p *Pool) setU16(off uint32, v uint16) {
	*(*uint16)(unsafe.Pointer(&p.buf[off])) = v
}

func (p *Pool) u8(off uint32) uint8 { return p.buf[off] }

func (p *Pool) setU8(off uint32, v uint8) { p.buf[off] = v }

// blockSize returns BLOCK_SIZE(p): the tagged size field with its flag bits
// masked off.
func (p *Pool) blockSize(off uint32) uint32 { return p.u32(off) &^ flagMask }

// setBlockSize rewrites a block's size portion while preserving its own
// flag bits, mirroring estalloc.c's "b.size = cut | (b.size & ALIGNMENT_MASK)".
func (p *Pool) setBlockSize(off, size uint32) {
	flags := p.u32(off) & flagMask
	p.setU32(off, size|flags)
}

func (p *Pool) isUsed(off uint32) bool     { return p.u32(off)&flagUsed != 0 }
func (p *Pool) isPrevUsed(off uint32) bool { return p.u32(off)&flagPrevUsed != 0 }

func (p *Pool) setUsed(off uint32)       { p.setU32(off, p.u32(off)|flagUsed) }
func (p *Pool) clearUsed(off uint32)     { p.setU32(off, p.u32(off)&^flagUsed) }
func (p *Pool) setPrevUsed(off uint32)   { p.setU32(off, p.u32(off)|flagPrevUsed) }
func (p *Pool) clearPrevUsed(off uint32) { p.setU32(off, p.u32(off)&^flagPrevUsed) }

// physNext is PHYS_NEXT(p): the block physically following off.
func (p *Pool) physNext(off uint32) uint32 { return off + p.blockSize(off) }

func (p *Pool) nextFree(off uint32) uint32    { return p.u32(off + freeBlockNextOff) }
func (p *Pool) setNextFree(off, v uint32)     { p.setU32(off+freeBlockNextOff, v) }
func (p *Pool) prevFree(off uint32) uint32    { return p.u32(off + freeBlockPrevOff) }
func (p *Pool) setPrevFree(off, v uint32)     { p.setU32(off+freeBlockPrevOff, v) }

// setBoundaryTag writes off's self-reference into its own last pointer-sized
// word, per "a free block's last pointer-sized word equals its own address"
// (spec invariant 5, estalloc.c's top_adrs).
func (p *Pool) setBoundaryTag(off uint32) {
	p.setU32(off+p.blockSize(off)-4, off)
}

// boundaryTagBefore reads the word immediately preceding off — the boundary
// tag of whatever free block physically precedes off — letting free() locate
// its predecessor in O(1) without a backward block-size field.
func (p *Pool) boundaryTagBefore(off uint32) uint32 { return p.u32(off - 4) }

// sliceAt builds a []byte over the pool buffer the same way cznic/memory's
// Malloc/UnsafeMalloc construct their result: a reflect.SliceHeader pointed
// directly at pool bytes, not a Go-heap copy.
func (p *Pool) sliceAt(off uint32, length, capacity int) []byte {
	var b []byte
	sh := (*reflect.SliceHeader)(unsafe.Pointer(&b))
	sh.Data = uintptr(unsafe.Pointer(&p.buf[0])) + uintptr(off)
	sh.Len = length
	sh.Cap = capacity
	return b
}

// blockForPayload is the inverse of sliceAt's pointer arithmetic: given a
// slice this pool previously returned, recover the offset of its block
// header. Reads ptr's Data field directly rather than indexing ptr[0], since
// a zero-length allocation (Malloc(0)) must still resolve correctly.
func (p *Pool) blockForPayload(ptr []byte) uint32 {
	sh := (*reflect.SliceHeader)(unsafe.Pointer(&ptr))
	base := uintptr(unsafe.Pointer(&p.buf[0]))
	return uint32(sh.Data-base) - p.blockHeaderSize
}

func roundup32(n, m uint32) uint32 { return (n + m - 1) &^ (m - 1) }

// UsableSize reports how many bytes ptr's block actually holds, which may be
// larger than the size originally requested since allocSizeFor rounds up
// and a too-small remainder is folded into the block rather than split off.
func (p *Pool) UsableSize(ptr []byte) int {
	if ptr == nil {
		return 0
	}
	b := p.blockForPayload(ptr)
	return int(p.blockSize(b) - p.blockHeaderSize)
}

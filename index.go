// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

import "github.com/cznic/mathutil"

// nlz16 and nlz8 are the branch-tree leading-zero helpers estalloc.c calls
// NLZ_FLI/NLZ_SLI, grounded on github.com/cznic/mathutil.BitLen — the same
// function cznic/memory itself calls in Malloc/UnsafeMalloc
// ("mathutil.BitLen(roundup(size, mallocAllign) - 1)") to turn a size into a
// size-class log2. BitLen(0) is 0, so nlz16(0) == 16 and nlz8(0) == 8,
// matching the "returning 16 (resp. 8) on zero" contract.
func nlz16(x uint16) int { return 16 - mathutil.BitLen(int(x)) }
func nlz8(x uint8) int   { return 8 - mathutil.BitLen(int(x)) }

const (
	msbBit16 uint16 = 0x8000
	msbBit8  uint8  = 0x80
)

/*
calcIndex computes the linear (fli,sli) class index for size, following the
FLI/SLI range table in estalloc.c (shown for 4-byte alignment, IgnoreLSBs = 4;
with IgnoreLSBs = 5 every boundary doubles). Sizes at or above
1 << (FLIBits+SLIBits+IgnoreLSBs) all map to the last class:

	FLI range      SLI0  1     2     3     4     5     6     7
	 0  0000-007f unused 0010- 0020- 0030- 0040- 0050- 0060- 0070-007f
	 1  0080-00ff  0080- 0090- 00a0- 00b0- 00c0- 00d0- 00e0- 00f0-00ff
	 2  0100-01ff  0100- 0120- 0140- 0160- 0180- 01a0- 01c0- 01e0-01ff
	...

calc_index is monotone non-decreasing in size, so any free block on list c
satisfies a request of c's nominal minimum size.
*/
func (p *Pool) calcIndex(size uint32) int {
	cfg := p.cfg
	overflow := uint32(1) << uint(cfg.FLIBits+cfg.SLIBits+cfg.IgnoreLSBs)

	var fli int
	if size >= overflow {
		return cfg.sizeFreeBlocks() - 1
	} else {
		fli = 16 - nlz16(uint16(size>>uint(cfg.SLIBits+cfg.IgnoreLSBs)))
		if fli > cfg.FLIBits {
			fli = cfg.FLIBits
		}
	}

	var shift int
	if fli == 0 {
		shift = cfg.IgnoreLSBs
	} else {
		shift = cfg.IgnoreLSBs - 1 + fli
	}
	sli := int(size>>uint(shift)) & ((1 << uint(cfg.SLIBits)) - 1)

	return fli<<uint(cfg.SLIBits) + sli
}

func (p *Pool) decomposeIndex(index int) (fli, sli int) {
	return index >> uint(p.cfg.SLIBits), index & ((1 << uint(p.cfg.SLIBits)) - 1)
}

func (p *Pool) freeListHead(index int) uint32 {
	return p.u32(p.freeBlocksOff + uint32(index)*4)
}

func (p *Pool) setFreeListHead(index int, off uint32) {
	p.setU32(p.freeBlocksOff+uint32(index)*4, off)
}

func (p *Pool) fliBitmap() uint16 { return p.u16(p.fliBitmapOff) }

func (p *Pool) setFLIBit(fli int) {
	p.setU16(p.fliBitmapOff, p.fliBitmap()|(msbBit16>>uint(fli)))
}

func (p *Pool) clearFLIBit(fli int) {
	p.setU16(p.fliBitmapOff, p.fliBitmap()&^(msbBit16>>uint(fli)))
}

func (p *Pool) sliBitmap(fli int) uint8 { return p.u8(p.sliBitmapOff + uint32(fli)) }

func (p *Pool) setSLIBit(fli, sli int) {
	p.setU8(p.sliBitmapOff+uint32(fli), p.sliBitmap(fli)|(msbBit8>>uint(sli)))
}

func (p *Pool) clearSLIBit(fli, sli int) {
	p.setU8(p.sliBitmapOff+uint32(fli), p.sliBitmap(fli)&^(msbBit8>>uint(sli)))
}

// maskHigherSLI isolates the SLI bits strictly above sli's own bit (i.e.
// larger SLI values) in an MSB-first bitmap, per the design note's
// "(MSB_BIT >> fli) − 1" mask convention.
func maskHigherSLI(sli int) uint8 { return (msbBit8 >> uint(sli)) - 1 }

func maskHigherFLI(fli int) uint16 { return (msbBit16 >> uint(fli)) - 1 }

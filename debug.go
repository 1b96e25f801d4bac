// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

import (
	"fmt"
	"io"
	"os"
)

// trace mirrors cznic/memory's own "const trace = false" switch: flip it to
// true locally to get a running commentary of every block walk on stderr.
// It is never turned on in committed code.
const trace = false

func (p *Pool) trace(format string, args ...interface{}) {
	if trace {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Stats is a point-in-time summary of a pool, as returned by TakeStatistics.
type Stats struct {
	Total int // Total pool size in bytes, header and sentinel included.
	Used  int // Bytes in USED blocks, block headers and the sentinel included.
	Free  int // Bytes sitting in free lists.
	Frag  int // Number of used/free transitions walking the block chain through the sentinel, minus one; a fresh or fully freed pool reports 0.
}

// TakeStatistics walks the physical block chain once and reports Stats,
// following estalloc.c's estalloc_statistics.
func (p *Pool) TakeStatistics() Stats {
	var s Stats
	s.Total = int(p.size)

	prevUsed := true // the walk starts at firstBlockOff, whose PREV_USED bit is always set
	transitions := 0
	for off := p.firstBlockOff(); ; off = p.physNext(off) {
		used := p.isUsed(off)
		if off != p.firstBlockOff() && used != prevUsed {
			transitions++
		}
		prevUsed = used

		if off == p.sentinelOff {
			s.Used += int(p.blockSize(off))
			break
		}
		if used {
			s.Used += int(p.blockSize(off))
		} else {
			s.Free += int(p.blockSize(off))
		}
	}
	s.Frag = transitions - 1

	p.trace("estalloc: stats total=%d used=%d free=%d frag=%d\n", s.Total, s.Used, s.Free, s.Frag)
	return s
}

// Profile tracks the high/low watermarks of used bytes across a profiling
// window opened with StartProfiling, per estalloc.c's profiling counters.
type Profile struct {
	Profiling bool
	Initial   uint32 // Used bytes at StartProfiling.
	Min       uint32 // Lowest used-byte count observed since StartProfiling.
	Max       uint32 // Highest used-byte count observed since StartProfiling.
}

// StartProfiling opens a profiling window: every subsequent
// Malloc/Calloc/Realloc/Free/Permalloc updates Min/Max.
func (p *Pool) StartProfiling() {
	p.prof = Profile{Profiling: true, Initial: p.usedBytes, Min: p.usedBytes, Max: p.usedBytes}
}

// StopProfiling closes the profiling window and returns its final Profile.
func (p *Pool) StopProfiling() Profile {
	prof := p.prof
	p.prof.Profiling = false
	return prof
}

// profileHook is called from every allocator entry point that changes
// usedBytes; it is a no-op unless a profiling window is open.
func (p *Pool) profileHook() {
	if !p.prof.Profiling {
		return
	}
	if p.usedBytes < p.prof.Min {
		p.prof.Min = p.usedBytes
	}
	if p.usedBytes > p.prof.Max {
		p.prof.Max = p.usedBytes
	}
}

// Sanity check failure bits, returned by SanityCheck as a bitmask, per
// test.c's print_sanity_error decode table: 0x01 alignment, 0x02 invalid
// size, 0x04 invalid next-block address, 0x08 a used->free PREV_USED
// inconsistency, 0x10 a free->used one.
const (
	CheckBadAlignment   uint32 = 0x01
	CheckBadSize        uint32 = 0x02
	CheckBadNextAddress uint32 = 0x04
	CheckPrevUsedToFree uint32 = 0x08 // PREV_USED says used, physical predecessor is free
	CheckPrevFreeToUsed uint32 = 0x10 // PREV_USED says free, physical predecessor is used
)

// SanityCheck walks the pool's physical block chain, returning a bitmask of
// whatever it finds wrong — spec.md §6.1's exact five-bit contract, ported
// from test.c's print_sanity_error decode table. A clean pool returns 0. It
// never panics or mutates the pool; it is meant to run after every
// allocator call in a stress test, per estalloc's test.c harness.
func (p *Pool) SanityCheck() uint32 {
	var bad uint32

	prevUsed := true
	for off := p.firstBlockOff(); ; {
		size := p.blockSize(off)
		if size == 0 || size%uint32(p.cfg.Alignment) != 0 {
			bad |= CheckBadAlignment
		}
		// The sentinel is exempt from MIN_BLOCK_SIZE: it carries no
		// payload and is sized as sizeof(used-header) alone (spec.md §3's
		// Sentinel section), smaller than any real block is allowed to be.
		if off != p.sentinelOff && size < p.minBlockSize {
			bad |= CheckBadAlignment
		}
		if size > p.size-off {
			bad |= CheckBadSize
			break
		}

		next := off + size
		if next > p.size || (off != p.sentinelOff && next > p.sentinelOff) {
			bad |= CheckBadNextAddress
			break
		}

		used := p.isUsed(off)
		if off != p.firstBlockOff() {
			claimsUsed := p.isPrevUsed(off)
			switch {
			case claimsUsed && !prevUsed:
				bad |= CheckPrevUsedToFree
			case !claimsUsed && prevUsed:
				bad |= CheckPrevFreeToUsed
			}
		}
		if !used {
			if p.u32(off+size-4) != off {
				bad |= CheckBadSize
			}
		}

		if off == p.sentinelOff {
			break
		}
		prevUsed = used
		off = next
	}

	if bad != 0 {
		p.trace("estalloc: sanity check failed: %#x\n", bad)
	}
	return bad
}

// FreeListConsistencyOK walks every free-list class and the two-level
// bitmap, confirming spec.md §3 invariant 6: every free block is on
// exactly the list calcIndex selects for its size, the FLI/SLI bits mirror
// list non-emptiness exactly, and every free block reachable from the
// physical chain is also reachable from its free list (and vice versa).
// This is a diagnostics-path addition beyond the C source's sanity_check
// (whose five-bit contract SanityCheck reproduces exactly); it exists
// because spec.md §8 requires "Index exactness" as a testable property in
// its own right.
func (p *Pool) FreeListConsistencyOK() bool {
	seenFree := make(map[uint32]bool)
	for off := p.firstBlockOff(); ; off = p.physNext(off) {
		if off == p.sentinelOff {
			break
		}
		if !p.isUsed(off) {
			seenFree[off] = true
		}
	}

	fli := p.fliBitmap()
	for f := 0; f <= p.cfg.FLIBits; f++ {
		sli := p.sliBitmap(f)
		fliSet := fli&(msbBit16>>uint(f)) != 0
		if (sli != 0) != fliSet {
			return false
		}
		for s := 0; s < (1 << uint(p.cfg.SLIBits)); s++ {
			sliSet := sli&(msbBit8>>uint(s)) != 0
			index := f<<uint(p.cfg.SLIBits) + s
			head := p.freeListHead(index)
			if (head != 0) != sliSet {
				return false
			}
			for off := head; off != 0; off = p.nextFree(off) {
				if p.isUsed(off) {
					return false
				}
				if p.calcIndex(p.blockSize(off)) != index {
					return false
				}
				delete(seenFree, off)
			}
		}
	}
	return len(seenFree) == 0
}

// validateFreeTarget is the DEBUG-only pointer check spec.md §7 calls for:
// "debug builds detect the most common cases by walking the chain and
// expose a human-readable error_message." It walks the physical chain to
// confirm off really addresses a live block header, then rules out the
// double-free and permalloc-address cases Free/Realloc must never act on.
// Returns "" when off looks like a legitimate target.
func (p *Pool) validateFreeTarget(off uint32) string {
	if off < p.firstBlockOff() || off >= p.sentinelOff {
		return "pointer is outside the pool's block chain"
	}
	found := false
	for cur := p.firstBlockOff(); cur < p.sentinelOff; cur = p.physNext(cur) {
		if cur == off {
			found = true
			break
		}
		if cur > off {
			break
		}
	}
	if !found {
		return "pointer does not address a block header (interior or corrupt pointer)"
	}
	if p.permOffsets != nil && p.permOffsets[off] {
		return "pointer was returned by Permalloc and can never be freed or resized"
	}
	if !p.isUsed(off) {
		return "double free: block is already on the free list"
	}
	return ""
}

// SanityCheckError wraps SanityCheck as an error for callers that prefer
// Go's usual error-handling idiom over a raw bitmask.
func (p *Pool) SanityCheckError() error {
	if bad := p.SanityCheck(); bad != 0 {
		return fmt.Errorf("estalloc: sanity check failed: %#x", bad)
	}
	return nil
}

// DumpPoolHeader writes a human-readable rendering of the pool header to w,
// gated the same way estalloc.c's PRINT_DEBUG dumps are: call it yourself
// when you want it, it is never invoked implicitly.
func (p *Pool) DumpPoolHeader(w io.Writer) {
	fmt.Fprintf(w, "estalloc pool: size=%d header=%d blockHeader=%d minBlock=%d sentinel=%#x used=%d\n",
		p.size, p.headerSize, p.blockHeaderSize, p.minBlockSize, p.sentinelOff, p.usedBytes)
}

// DumpBlocks writes one line per physical block to w: offset, size, and
// USED/FREE state.
func (p *Pool) DumpBlocks(w io.Writer) {
	for off := p.firstBlockOff(); ; off = p.physNext(off) {
		state := "FREE"
		if p.isUsed(off) {
			state = "USED"
		}
		fmt.Fprintf(w, "  %#08x size=%-8d %s\n", off, p.blockSize(off), state)
		if off == p.sentinelOff {
			break
		}
	}
}

// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package estalloc implements a two-level segregated-fit (TLSF) memory
// allocator over a single fixed-size byte pool supplied by the caller. It
// performs no system calls, holds no package-level state, and never grows
// the pool: every Pool is wholly owned by the caller between calls, exactly
// as a single-threaded embedded allocator must be.
//
// The design follows picoruby/estalloc (a C TLSF allocator for embedded
// Ruby), ported to Go's slice-and-unsafe-pointer idiom the way
// github.com/cznic/memory overlays its page/node structs on raw byte
// buffers.
package estalloc

import "unsafe"

// Config holds the compile-time knobs estalloc.h exposes as preprocessor
// defines. Since Go has no equivalent to C conditional compilation for a
// library's public field widths, these are resolved once at Init instead.
type Config struct {
	// Alignment is the pool-wide alignment in bytes; must be 4 or 8.
	Alignment int

	// FLIBits is the first-level index bit width (default 9).
	FLIBits int

	// SLIBits is the second-level index bit width (default 3).
	SLIBits int

	// IgnoreLSBs is the number of low size bits folded into one size class.
	// Defaults to 4 for Alignment==4, 5 for Alignment==8.
	IgnoreLSBs int

	// MinBlockSize raises the minimum legal block size above the default
	// (1 << IgnoreLSBs, raised to fit a free block's own fields). Zero, or
	// any value not above that default, leaves the default in place.
	MinBlockSize int

	// Debug enables the zero-on-Cleanup behavior and LastError reporting.
	Debug bool
}

// DefaultConfig returns estalloc.h's documented defaults.
func DefaultConfig() Config {
	return Config{Alignment: 8, FLIBits: 9, SLIBits: 3, IgnoreLSBs: 5}
}

func (c Config) sizeFreeBlocks() int { return (c.FLIBits + 1) << uint(c.SLIBits) }

// Pool is a TLSF memory pool overlaid on a caller-supplied byte buffer. Its
// header (size, bitmaps, free-list heads) lives inside that buffer per
// spec's on-buffer layout, not as separate Go-side state — the buffer alone
// is the persisted representation of the pool.
type Pool struct {
	buf []byte
	cfg Config

	size uint32

	fliBitmapOff  uint32
	sliBitmapOff  uint32
	sliBitmapLen  uint32
	freeBlocksOff uint32
	freeBlocksLen uint32

	headerSize      uint32
	blockHeaderSize uint32
	minBlockSize    uint32
	sentinelOff     uint32

	usedBytes uint32

	stat      Stats
	prof      Profile
	lastError string

	// permOffsets records every block offset handed out by Permalloc, but
	// only when Config.Debug is set: Free/Realloc's pointer validation is
	// the sole reader, and nothing else distinguishes a permalloc'd block
	// from an ordinary USED one in the on-buffer layout itself.
	permOffsets map[uint32]bool

	// owned is non-nil when this Pool's buffer was obtained from NewPool
	// rather than supplied by the caller to Init; Cleanup unmaps it.
	owned []byte
}

// Init builds a fresh pool over buf: one maximal free block followed by a
// sentinel. buf's base address must be Alignment-aligned and len(buf) must
// be larger than the header, one minimum block and the sentinel together;
// violations are programmer errors and panic, per spec.md's "fatal
// assertion" contract for init-time contract violations.
func Init(buf []byte, cfg Config) *Pool {
	if len(buf) == 0 {
		panic("estalloc: empty pool buffer")
	}
	if cfg.Alignment != 4 && cfg.Alignment != 8 {
		panic("estalloc: Alignment must be 4 or 8")
	}
	if uintptr(unsafe.Pointer(&buf[0]))%uintptr(cfg.Alignment) != 0 {
		panic("estalloc: pool base must be Alignment-aligned")
	}
	if cfg.FLIBits == 0 {
		cfg.FLIBits = 9
	}
	if cfg.SLIBits == 0 {
		cfg.SLIBits = 3
	}
	if cfg.IgnoreLSBs == 0 {
		if cfg.Alignment == 4 {
			cfg.IgnoreLSBs = 4
		} else {
			cfg.IgnoreLSBs = 5
		}
	}

	p := &Pool{buf: buf, cfg: cfg}

	// Pool header layout: size(4) | fliBitmap(2) | sliBitmap(FLIBits+2) |
	// pad | freeBlocks([]uint32, SIZE_FREE_BLOCKS+1), per estalloc.c's
	// MEMORY_POOL struct, minus the C-only alignment padding fields (Go's
	// own struct/slice layout makes those unnecessary).
	p.fliBitmapOff = 4
	p.sliBitmapOff = p.fliBitmapOff + 2
	p.sliBitmapLen = uint32(cfg.FLIBits + 2)
	p.freeBlocksOff = roundup32(p.sliBitmapOff+p.sliBitmapLen, 4)
	p.freeBlocksLen = uint32(cfg.sizeFreeBlocks() + 1)
	headerEnd := p.freeBlocksOff + p.freeBlocksLen*4
	p.headerSize = roundup32(headerEnd, uint32(cfg.Alignment))

	// sizeof(used-header): the tagged size field, padded up to Alignment so
	// the payload that follows it is itself Alignment-aligned.
	p.blockHeaderSize = uint32(cfg.Alignment)

	minBlockSize := uint32(1) << uint(cfg.IgnoreLSBs)
	if minBlockSize < freeBlockMinFields {
		minBlockSize = freeBlockMinFields
	}
	if cfg.MinBlockSize > 0 && uint32(cfg.MinBlockSize) > minBlockSize {
		minBlockSize = uint32(cfg.MinBlockSize)
	}
	p.minBlockSize = roundup32(minBlockSize, uint32(cfg.Alignment))

	poolSize := uint32(len(buf))
	poolSize -= poolSize % uint32(cfg.Alignment)
	if poolSize <= p.headerSize+p.minBlockSize+p.blockHeaderSize {
		panic("estalloc: pool too small for header, one block and sentinel")
	}

	p.size = poolSize
	p.setU32(0, poolSize)

	for i := p.fliBitmapOff; i < p.headerSize; i++ {
		p.buf[i] = 0
	}

	p.sentinelOff = poolSize - p.blockHeaderSize
	p.setU32(p.sentinelOff, p.blockHeaderSize|flagUsed|flagPrevUsed)
	p.usedBytes = p.blockHeaderSize // the sentinel counts as used, as in TakeStatistics

	firstOff := p.headerSize
	firstSize := p.sentinelOff - firstOff
	p.setU32(firstOff, firstSize)
	p.setPrevUsed(firstOff)
	p.clearPrevUsed(p.sentinelOff)
	p.addFreeBlock(firstOff)

	return p
}

// Cleanup releases p's bookkeeping state. For a Pool built with Init, the
// caller still owns and frees buf; in Debug mode Cleanup zero-fills it
// first so no stale payload data or metadata survives in the returned
// buffer. For a Pool built with NewPool, Cleanup also unmaps the
// underlying buffer and reports any munmap error.
func (p *Pool) Cleanup() error {
	if p.cfg.Debug {
		for i := range p.buf {
			p.buf[i] = 0
		}
	}
	owned := p.owned
	*p = Pool{}
	if owned != nil {
		return munmapBuffer(owned)
	}
	return nil
}

// LastError reports the most recent free/realloc-path diagnostic message;
// only populated when Config.Debug is set. Overwritten on every call.
func (p *Pool) LastError() string { return p.lastError }

func (p *Pool) firstBlockOff() uint32 { return p.headerSize }

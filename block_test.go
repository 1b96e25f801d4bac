// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

import "testing"

func TestBlockFlags(t *testing.T) {
	p := newTestPool(t, 4096)
	off := p.firstBlockOff()

	if p.isUsed(off) {
		t.Fatal("expected clear USED")
	}
	p.setUsed(off)
	if !p.isUsed(off) {
		t.Fatal("setUsed did not set the bit")
	}
	p.clearUsed(off)
	if p.isUsed(off) {
		t.Fatal("clearUsed did not clear the bit")
	}

	size := p.blockSize(off)
	p.setPrevUsed(off)
	if p.blockSize(off) != size {
		t.Fatal("setPrevUsed must not disturb the size field")
	}
	if !p.isPrevUsed(off) {
		t.Fatal("setPrevUsed did not set the bit")
	}
	p.clearPrevUsed(off)
	if p.isPrevUsed(off) {
		t.Fatal("clearPrevUsed did not clear the bit")
	}
}

func TestSetBlockSizePreservesFlags(t *testing.T) {
	p := newTestPool(t, 4096)
	off := p.firstBlockOff()
	p.setUsed(off)
	p.setPrevUsed(off)

	p.setBlockSize(off, 64)
	if p.blockSize(off) != 64 {
		t.Fatalf("blockSize = %d, want 64", p.blockSize(off))
	}
	if !p.isUsed(off) || !p.isPrevUsed(off) {
		t.Fatal("setBlockSize must preserve flag bits")
	}
}

func TestBlockForPayloadRoundTrip(t *testing.T) {
	p := newTestPool(t, 4096)
	b := p.Malloc(40)
	if b == nil {
		t.Fatal("Malloc failed")
	}
	off := p.blockForPayload(b)
	if !p.isUsed(off) {
		t.Fatal("recovered block is not marked USED")
	}
	if int(p.blockSize(off)-p.blockHeaderSize) < 40 {
		t.Fatal("recovered block too small for the requested payload")
	}
}

func TestBlockForPayloadZeroLength(t *testing.T) {
	p := newTestPool(t, 4096)
	b := p.Malloc(0)
	if b == nil {
		t.Fatal("Malloc(0) must succeed")
	}
	off := p.blockForPayload(b)
	if !p.isUsed(off) {
		t.Fatal("zero-length allocation must still resolve to a USED block")
	}
}

func TestUsableSize(t *testing.T) {
	p := newTestPool(t, 4096)
	b := p.Malloc(5)
	if got := p.UsableSize(b); got < 5 {
		t.Fatalf("UsableSize = %d, want >= 5", got)
	}
	if got := p.UsableSize(nil); got != 0 {
		t.Fatalf("UsableSize(nil) = %d, want 0", got)
	}
}

// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

import "testing"

func TestFreeNilIsNoop(t *testing.T) {
	p := newTestPool(t, 4096)
	stats := p.TakeStatistics()
	p.Free(nil)
	if got := p.TakeStatistics(); got != stats {
		t.Fatalf("Free(nil) changed pool state: %+v -> %+v", stats, got)
	}
}

func TestFreeCoalescesBothNeighbors(t *testing.T) {
	p := newTestPool(t, 4096)
	a := p.Malloc(32)
	b := p.Malloc(32)
	c := p.Malloc(32)
	if a == nil || b == nil || c == nil {
		t.Fatal("setup Malloc failed")
	}

	p.Free(a)
	p.Free(c)
	statsBefore := p.TakeStatistics()

	p.Free(b)
	if bad := p.SanityCheck(); bad != 0 {
		t.Fatalf("sanity check failed after coalescing free: %#x", bad)
	}
	statsAfter := p.TakeStatistics()
	if statsAfter.Frag >= statsBefore.Frag {
		t.Fatalf("freeing the middle block should reduce fragmentation: before=%d after=%d",
			statsBefore.Frag, statsAfter.Frag)
	}
}

func TestFreeDoubleFreeDetectedInDebug(t *testing.T) {
	buf := make([]byte, 4096)
	cfg := DefaultConfig()
	cfg.Debug = true
	p := Init(buf, cfg)

	a := p.Malloc(32)
	if a == nil {
		t.Fatal("Malloc failed")
	}
	p.Free(a)
	if p.LastError() != "" {
		t.Fatalf("first Free set LastError unexpectedly: %q", p.LastError())
	}

	p.Free(a)
	if p.LastError() == "" {
		t.Fatal("double Free must set LastError in Debug mode")
	}
}

func TestFreeEverythingReturnsToOneRun(t *testing.T) {
	p := newTestPool(t, 1 << 14)
	var live [][]byte
	for i := 0; i < 64; i++ {
		b := p.Malloc(24)
		if b == nil {
			t.Fatal("Malloc failed mid-loop")
		}
		live = append(live, b)
	}
	for _, b := range live {
		p.Free(b)
	}
	stats := p.TakeStatistics()
	if stats.Used != int(p.blockHeaderSize) {
		t.Fatalf("used after freeing everything = %d, want just the sentinel (%d)", stats.Used, p.blockHeaderSize)
	}
	if stats.Frag != 0 {
		t.Fatalf("Frag = %d, want 0 after full coalesce", stats.Frag)
	}
	if bad := p.SanityCheck(); bad != 0 {
		t.Fatalf("sanity check failed: %#x", bad)
	}
}

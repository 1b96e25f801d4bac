// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

import "testing"

func TestPermallocBasic(t *testing.T) {
	p := newTestPool(t, 4096)
	a := p.Permalloc(64)
	if a == nil {
		t.Fatal("Permalloc failed")
	}
	if len(a) != 64 {
		t.Fatalf("len = %d, want 64", len(a))
	}
	for i := range a {
		a[i] = byte(i)
	}
	if bad := p.SanityCheck(); bad != 0 {
		t.Fatalf("sanity check failed: %#x", bad)
	}
}

func TestPermallocNeverReenteredByMalloc(t *testing.T) {
	p := newTestPool(t, 4096)
	perm := p.Permalloc(32)
	if perm == nil {
		t.Fatal("Permalloc failed")
	}
	permOff := p.blockForPayload(perm)

	for i := 0; i < 50; i++ {
		b := p.Malloc(16)
		if b == nil {
			break
		}
		if p.blockForPayload(b) == permOff {
			t.Fatal("Malloc handed out the permalloc'd block")
		}
	}
}

func TestPermallocShrinksTailSpace(t *testing.T) {
	p := newTestPool(t, 4096)
	before := p.TakeStatistics()
	if p.Permalloc(64) == nil {
		t.Fatal("Permalloc failed")
	}
	after := p.TakeStatistics()
	if after.Free >= before.Free {
		t.Fatalf("free bytes did not shrink: before=%d after=%d", before.Free, after.Free)
	}
	if after.Total != before.Total {
		t.Fatalf("Total changed: before=%d after=%d", before.Total, after.Total)
	}
}

func TestPermallocAddressRejectedByDebugFree(t *testing.T) {
	buf := make([]byte, 4096)
	cfg := DefaultConfig()
	cfg.Debug = true
	p := Init(buf, cfg)

	perm := p.Permalloc(32)
	if perm == nil {
		t.Fatal("Permalloc failed")
	}

	p.Free(perm)
	if p.LastError() == "" {
		t.Fatal("Free on a Permalloc'd pointer must set LastError in Debug mode")
	}
	if bad := p.SanityCheck(); bad != 0 {
		t.Fatalf("rejected Free must leave the pool untouched: sanity check %#x", bad)
	}
}

func TestPermallocFallsBackToMallocWhenTailUsed(t *testing.T) {
	p := newTestPool(t, 4096)

	a := p.Malloc(16)
	if a == nil {
		t.Fatal("setup Malloc(16) failed")
	}
	rest := p.TakeStatistics().Free - int(p.blockHeaderSize)
	b := p.Malloc(rest)
	if b == nil {
		t.Fatal("setup Malloc(rest) failed")
	}
	// b now abuts the sentinel directly: the block preceding the sentinel
	// is USED, so a naive Permalloc would see no tail space and fail.
	p.Free(a)

	perm := p.Permalloc(16)
	if perm == nil {
		t.Fatal("Permalloc must fall back to Malloc when the tail block is used, not fail outright")
	}
	if len(perm) != 16 {
		t.Fatalf("len = %d, want 16", len(perm))
	}
	if bad := p.SanityCheck(); bad != 0 {
		t.Fatalf("sanity check failed: %#x", bad)
	}
}

func TestPermallocFailsWhenTailExhausted(t *testing.T) {
	p := newTestPool(t, 1024)
	for i := 0; i < 1000; i++ {
		if p.Permalloc(16) == nil {
			return
		}
	}
	t.Fatal("expected Permalloc to eventually fail on a tiny pool")
}

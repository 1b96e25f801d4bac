// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

import "testing"

func TestReallocNilActsAsMalloc(t *testing.T) {
	p := newTestPool(t, 4096)
	b := p.Realloc(nil, 16)
	if b == nil || len(b) != 16 {
		t.Fatalf("Realloc(nil, 16) = %v", b)
	}
}

func TestReallocGrowInPlaceAbsorbsSuccessor(t *testing.T) {
	p := newTestPool(t, 4096)
	a := p.Malloc(16)
	succ := p.Malloc(64)
	p.Free(succ)

	off := p.blockForPayload(a)
	grown := p.Realloc(a, 48)
	if grown == nil {
		t.Fatal("Realloc failed")
	}
	if p.blockForPayload(grown) != off {
		t.Fatal("growing into a free successor must not move the block")
	}
	if bad := p.SanityCheck(); bad != 0 {
		t.Fatalf("sanity check failed: %#x", bad)
	}
}

func TestReallocGrowViaMergeKeepsUsedBytesInSync(t *testing.T) {
	p := newTestPool(t, 4096)
	a := p.Malloc(16)
	succ := p.Malloc(64)
	p.Free(succ)

	p.StartProfiling()
	grown := p.Realloc(a, 48)
	if grown == nil {
		t.Fatal("Realloc failed")
	}
	prof := p.StopProfiling()

	stats := p.TakeStatistics()
	if prof.Max != uint32(stats.Used) {
		t.Fatalf("Profile.Max = %d, want %d (TakeStatistics().Used) right after a grow-via-merge Realloc", prof.Max, stats.Used)
	}
	if bad := p.SanityCheck(); bad != 0 {
		t.Fatalf("sanity check failed: %#x", bad)
	}
}

func TestReallocPreservesContent(t *testing.T) {
	p := newTestPool(t, 4096)
	a := p.Malloc(20)
	for i := range a {
		a[i] = byte(i + 1)
	}
	grown := p.Realloc(a, 200)
	if grown == nil {
		t.Fatal("Realloc failed")
	}
	for i := 0; i < 20; i++ {
		if grown[i] != byte(i+1) {
			t.Fatalf("byte %d = %#x, want %#x", i, grown[i], byte(i+1))
		}
	}
	if bad := p.SanityCheck(); bad != 0 {
		t.Fatalf("sanity check failed: %#x", bad)
	}
}

func TestReallocShrink(t *testing.T) {
	p := newTestPool(t, 4096)
	a := p.Malloc(200)
	for i := range a {
		a[i] = byte(i)
	}
	shrunk := p.Realloc(a, 8)
	if shrunk == nil {
		t.Fatal("Realloc failed")
	}
	if len(shrunk) != 8 {
		t.Fatalf("len = %d, want 8", len(shrunk))
	}
	for i := 0; i < 8; i++ {
		if shrunk[i] != byte(i) {
			t.Fatalf("byte %d = %#x, want %#x", i, shrunk[i], byte(i))
		}
	}
	if bad := p.SanityCheck(); bad != 0 {
		t.Fatalf("sanity check failed: %#x", bad)
	}
}

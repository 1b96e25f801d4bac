// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

// Free returns ptr's block to the pool, coalescing with any physically
// adjacent free neighbor(s). A nil ptr is a no-op, per spec.md §6.1. ptr
// must have been returned by a prior Malloc/Calloc/Realloc on this pool and
// not already freed or obtained from Permalloc.
func (p *Pool) Free(ptr []byte) {
	if ptr == nil {
		return
	}

	b := p.blockForPayload(ptr)
	if p.cfg.Debug {
		if msg := p.validateFreeTarget(b); msg != "" {
			p.lastError = "estalloc: Free: " + msg
			return
		}
		p.lastError = ""
	}
	p.usedBytes -= p.blockSize(b)

	next := p.physNext(b)
	if !p.isUsed(next) {
		p.removeFreeBlock(next)
		p.merge(b, next)
	} else {
		p.clearPrevUsed(next)
	}

	if !p.isPrevUsed(b) {
		prev := p.boundaryTagBefore(b)
		p.removeFreeBlock(prev)
		p.merge(prev, b)
		b = prev
	}

	p.addFreeBlock(b)
	p.profileHook()
}

// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

// split carves cut bytes off the front of the block at off, returning the
// offset of the remainder and true — unless the remainder would be too
// small to form a legal block, in which case it returns (0, false) and off
// is left untouched. The caller is responsible for the remainder's
// PREV_USED bit, for indexing it, and for the USED/PREV_USED state of the
// blocks that follow it, per estalloc.c's split().
func (p *Pool) split(off, cut uint32) (uint32, bool) {
	size := p.blockSize(off)
	if size-cut <= p.minBlockSize {
		return 0, false
	}

	rem := off + cut
	p.setU32(rem, size-cut) // remainder's own flags start cleared
	p.setBlockSize(off, cut)
	return rem, true
}

// merge absorbs the physically adjacent free block right into left,
// preserving left's own flags. right's bytes are overwritten.
func (p *Pool) merge(left, right uint32) {
	p.setBlockSize(left, p.blockSize(left)+p.blockSize(right))
}

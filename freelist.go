// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

// addFreeBlock links off at the head of its size class's list and marks it
// free, per estalloc.c's add_free_block: clear USED, stamp the boundary
// tag, set the class's FLI/SLI bits, then splice onto the head.
func (p *Pool) addFreeBlock(off uint32) {
	p.clearUsed(off)
	p.setBoundaryTag(off)

	index := p.calcIndex(p.blockSize(off))
	fli, sli := p.decomposeIndex(index)
	p.setFLIBit(fli)
	p.setSLIBit(fli, sli)

	head := p.freeListHead(index)
	p.setPrevFree(off, 0)
	p.setNextFree(off, head)
	if head != 0 {
		p.setPrevFree(head, off)
	}
	p.setFreeListHead(index, off)
}

// removeFreeBlock unlinks off from its size class's list, clearing the
// class's SLI/FLI bits if the list becomes empty, per estalloc.c's
// remove_free_block.
func (p *Pool) removeFreeBlock(off uint32) {
	index := p.calcIndex(p.blockSize(off))
	prev := p.prevFree(off)
	next := p.nextFree(off)

	if prev == 0 {
		p.setFreeListHead(index, next)
		if next == 0 {
			fli, sli := p.decomposeIndex(index)
			p.clearSLIBit(fli, sli)
			if p.sliBitmap(fli) == 0 {
				p.clearFLIBit(fli)
			}
		}
	} else {
		p.setNextFree(prev, next)
	}
	if next != 0 {
		p.setPrevFree(next, prev)
	}
}

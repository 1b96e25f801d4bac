// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package estalloc

import "os"

var (
	osPageSize = os.Getpagesize()
	osPageMask = osPageSize - 1
)

// NewPool mmaps a fresh, zeroed buffer of size bytes and Inits a Pool over
// it, for callers with no buffer of their own to supply. Cleanup on the
// returned Pool unmaps the buffer; Init itself never does this, since a
// Pool built over a caller-supplied buf never owns it.
func NewPool(size int, cfg Config) (*Pool, error) {
	buf, err := mmapBuffer(size)
	if err != nil {
		return nil, err
	}

	p := Init(buf, cfg)
	p.owned = buf
	return p, nil
}

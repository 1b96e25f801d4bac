// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.

package estalloc

import (
	"errors"
	"os"
	"reflect"
	"syscall"
	"unsafe"
)

// handleMap recovers the file-mapping handle a Windows mmapBuffer address
// was obtained from, so munmapBuffer can close it.
var handleMap = map[uintptr]syscall.Handle{}

func mmapBuffer(size int) ([]byte, error) {
	flProtect := uint32(syscall.PAGE_READWRITE)
	dwDesiredAccess := uint32(syscall.FILE_MAP_WRITE)

	maxSizeHigh := uint32(int64(size) >> 32)
	maxSizeLow := uint32(int64(size) & 0xFFFFFFFF)
	h, errno := syscall.CreateFileMapping(syscall.Handle(^uintptr(0)), nil, flProtect, maxSizeHigh, maxSizeLow, nil)
	if h == 0 {
		return nil, os.NewSyscallError("CreateFileMapping", errno)
	}

	addr, errno := syscall.MapViewOfFile(h, dwDesiredAccess, 0, 0, uintptr(size))
	if addr == 0 {
		return nil, os.NewSyscallError("MapViewOfFile", errno)
	}

	if addr&uintptr(osPageMask) != 0 {
		panic("estalloc: internal error: misaligned mmap")
	}

	handleMap[addr] = h
	var b []byte
	sh := (*reflect.SliceHeader)(unsafe.Pointer(&b))
	sh.Data = addr
	sh.Len = size
	sh.Cap = size
	return b, nil
}

func munmapBuffer(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	addr := unsafe.Pointer(&buf[0])
	if err := syscall.UnmapViewOfFile(uintptr(addr)); err != nil {
		return err
	}

	handle, ok := handleMap[uintptr(addr)]
	if !ok {
		return errors.New("estalloc: unknown base address")
	}
	delete(handleMap, uintptr(addr))

	return os.NewSyscallError("CloseHandle", syscall.CloseHandle(handle))
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package abi defines the binary contract between generated code and the
// instance: the layout of DataPointers and of the slices it points to.
//
// Generated code receives a pointer to DataPointers and reaches tables,
// memories and globals by adding the offsets below.  The offsets must not be
// renumbered independently of the code generation targets.
package abi

import (
	"unsafe"
)

// Byte offsets within DataPointers.
const (
	OffsetTables   = 0
	OffsetMemories = 8
	OffsetGlobals  = 16

	DataPointersSize = 24
)

// Byte offsets within Slice.
const (
	SliceBase = 0
	SliceLen  = 8

	SliceSize = 16
)

// GlobalSize is the size of a global variable slot.
const GlobalSize = 8

// Slice is a raw view of a buffer.  Len is in bytes for memories and in
// elements for tables.
type Slice struct {
	Base unsafe.Pointer
	Len  uintptr
}

// DataPointers is a derived view of the current buffer addresses.  It is not
// a source of truth: it is recomputed whenever a buffer may have moved.
type DataPointers struct {
	Tables   unsafe.Pointer // Array of Slice.
	Memories unsafe.Pointer // Array of Slice.
	Globals  unsafe.Pointer // Array of 8-byte slots.
}

// Make DataPointers from views.  The returned value keeps the view arrays
// alive.
func Make(tables, memories []Slice, globals []byte) *DataPointers {
	dp := new(DataPointers)
	if len(tables) > 0 {
		dp.Tables = unsafe.Pointer(&tables[0])
	}
	if len(memories) > 0 {
		dp.Memories = unsafe.Pointer(&memories[0])
	}
	if len(globals) > 0 {
		dp.Globals = unsafe.Pointer(&globals[0])
	}
	return dp
}

// Table view at index.  The index must be valid.
func (dp *DataPointers) Table(i int) Slice {
	return *(*Slice)(unsafe.Add(dp.Tables, i*SliceSize))
}

// Memory view at index.  The index must be valid.
func (dp *DataPointers) Memory(i int) Slice {
	return *(*Slice)(unsafe.Add(dp.Memories, i*SliceSize))
}

// Global slot at index.  The index must be valid.
func (dp *DataPointers) Global(i int) *uint64 {
	return (*uint64)(unsafe.Add(dp.Globals, i*GlobalSize))
}

// Bytes of a memory view.
func (s Slice) Bytes() []byte {
	if s.Base == nil {
		return nil
	}
	return unsafe.Slice((*byte)(s.Base), s.Len)
}

// Addrs of a table view.
func (s Slice) Addrs() []uintptr {
	if s.Base == nil {
		return nil
	}
	return unsafe.Slice((*uintptr)(s.Base), s.Len)
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package table implements function tables.  A slot holds a function address
// or zero.
package table

import (
	"unsafe"

	"github.com/akegalj/wasmer/abi"
	"github.com/akegalj/wasmer/errors"
)

type Table struct {
	slots []uintptr
}

// New table with zeroed slots.
func New(size uint32) *Table {
	return &Table{make([]uintptr, size)}
}

// Init copies addresses to consecutive slots starting at offset.  Tables
// don't grow: a run which doesn't fit is a fault and nothing is written.
func (t *Table) Init(offset uint32, addrs []uintptr) error {
	if uint64(offset)+uint64(len(addrs)) > uint64(len(t.slots)) {
		return errors.Faultf(errors.FaultTableInit, int(offset), "%d elements at offset %d exceed table size %d", len(addrs), offset, len(t.slots))
	}
	copy(t.slots[offset:], addrs)
	return nil
}

// Get returns zero for out-of-range indexes.
func (t *Table) Get(i uint32) uintptr {
	if i < uint32(len(t.slots)) {
		return t.slots[i]
	}
	return 0
}

func (t *Table) Len() int { return len(t.slots) }

// Base address of the slot array, or nil if the table is empty.
func (t *Table) Base() unsafe.Pointer {
	if len(t.slots) == 0 {
		return nil
	}
	return unsafe.Pointer(&t.slots[0])
}

// View of the table for DataPointers.  Length is in elements.
func (t *Table) View() abi.Slice {
	return abi.Slice{Base: t.Base(), Len: uintptr(len(t.slots))}
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memory implements WebAssembly linear memory.
//
// The buffer is a private memory mapping whose length is always the current
// page count times PageSize.  Growing allocates a new mapping, so the base
// address changes; holders of the address must refresh it after Grow.
package memory

import (
	"unsafe"

	"github.com/akegalj/wasmer/abi"
	"github.com/akegalj/wasmer/errors"
	"github.com/akegalj/wasmer/internal/mman"
	"github.com/akegalj/wasmer/wasm"
	pkgerrors "github.com/pkg/errors"
)

const (
	PageSize = wasm.PageSize
	MaxPages = wasm.MaxPages
)

// GrowFailed is returned by Grow instead of the previous page count.
const GrowFailed = -1

type Memory struct {
	mem        []byte
	current    uint32
	maximum    uint32
	hasMaximum bool
}

// New memory with initial size in pages.  A missing maximum means MaxPages.
func New(initial, maximum uint32, hasMaximum bool) (*Memory, error) {
	if initial > MaxPages {
		return nil, errors.Faultf(errors.FaultModule, 0, "initial memory size is too large: %d pages", initial)
	}
	if hasMaximum && maximum < initial {
		return nil, errors.Faultf(errors.FaultModule, 0, "maximum memory size %d is smaller than initial size %d", maximum, initial)
	}

	m := &Memory{
		maximum:    maximum,
		hasMaximum: hasMaximum,
	}

	if initial > 0 {
		mem, err := mman.Map(int(initial) * PageSize)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "linear memory allocation failed")
		}
		m.mem = mem
		m.current = initial
	}

	return m, nil
}

// Limit in pages.
func (m *Memory) Limit() uint32 {
	if m.hasMaximum && m.maximum < MaxPages {
		return m.maximum
	}
	return MaxPages
}

// Maximum as declared by the module.
func (m *Memory) Maximum() (pages uint32, ok bool) {
	return m.maximum, m.hasMaximum
}

// Grow by additional pages.  The previous size is returned, or GrowFailed if
// the limit would be exceeded or allocation fails.  The contents are
// preserved and the new pages are zeroed.
func (m *Memory) Grow(additional uint32) int32 {
	prev := m.current
	if additional == 0 {
		return int32(prev)
	}

	newPages := uint64(prev) + uint64(additional)
	if newPages > uint64(m.Limit()) {
		return GrowFailed
	}

	mem, err := mman.Map(int(newPages) * PageSize)
	if err != nil {
		return GrowFailed
	}
	copy(mem, m.mem)

	old := m.mem
	m.mem = mem
	m.current = uint32(newPages)

	mman.Unmap(old)

	return int32(prev)
}

// CurrentSize in pages.
func (m *Memory) CurrentSize() uint32 {
	return m.current
}

// Bytes of the current buffer.  The slice is invalidated by Grow and Close.
func (m *Memory) Bytes() []byte {
	return m.mem
}

// Base address of the current buffer, or nil if the memory is empty.
func (m *Memory) Base() unsafe.Pointer {
	if len(m.mem) == 0 {
		return nil
	}
	return unsafe.Pointer(&m.mem[0])
}

// Bound in bytes: the size which the memory can never exceed.
func (m *Memory) Bound() uint64 {
	return uint64(m.Limit()) * PageSize
}

// View of the buffer for DataPointers.
func (m *Memory) View() abi.Slice {
	return abi.Slice{Base: m.Base(), Len: uintptr(len(m.mem))}
}

// Close unmaps the buffer.  The memory is empty afterwards.
func (m *Memory) Close() error {
	mem := m.mem
	m.mem = nil
	m.current = 0
	return mman.Unmap(mem)
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package arena holds the generated code of an instance in a single memory
// mapping.
//
// The mapping is writable while code is being copied into it and while
// relocations are applied.  Sealing makes it read-only (and executable for
// native targets); no function may run before that.
package arena

import (
	"encoding/binary"
	"unsafe"

	"github.com/akegalj/wasmer/internal/mman"
	"github.com/pkg/errors"
)

// Alignment of function entry points.
const Alignment = 16

// CodeBuffer locates the code of one function within an arena.
type CodeBuffer struct {
	Offset int
	Len    int
}

type state uint8

const (
	stateWritable state = iota
	statePatching
	stateSealed
	stateClosed
)

var ErrSealed = errors.New("code arena is sealed")

type Arena struct {
	mem    []byte
	used   int
	native bool
	state  state
}

// Size needed for functions of the given lengths.
func Size(codeLens []int) (size int) {
	for _, n := range codeLens {
		size = align(size) + n
	}
	return
}

// New arena which can hold size bytes of code.  Native arenas are made
// executable; others are only ever readable.
func New(size int, native bool) (*Arena, error) {
	a := &Arena{native: native}
	if size > 0 {
		mem, err := mman.Map(mman.RoundSize(size))
		if err != nil {
			return nil, errors.Wrap(err, "code arena allocation failed")
		}
		a.mem = mem
	}
	return a, nil
}

// Alloc copies function code into the arena.
func (a *Arena) Alloc(code []byte) (CodeBuffer, error) {
	if a.state != stateWritable {
		return CodeBuffer{}, ErrSealed
	}

	offset := align(a.used)
	if offset+len(code) > len(a.mem) {
		return CodeBuffer{}, errors.Errorf("code arena exhausted: %d bytes needed at offset %d, capacity %d", len(code), offset, len(a.mem))
	}

	copy(a.mem[offset:], code)
	a.used = offset + len(code)
	return CodeBuffer{offset, len(code)}, nil
}

// BeginPatching must be called after all functions have been allocated.
func (a *Arena) BeginPatching() error {
	if a.state != stateWritable {
		return ErrSealed
	}

	prot := mman.ReadWrite
	if a.native {
		prot = mman.ReadWriteExec
	}
	if err := mman.Protect(a.mem, prot); err != nil {
		return err
	}

	a.state = statePatching
	return nil
}

// Seal the arena.  Further patching fails.
func (a *Arena) Seal() error {
	if a.state >= stateSealed {
		return ErrSealed
	}

	prot := mman.Read
	if a.native {
		prot = mman.ReadExec
	}
	if err := mman.Protect(a.mem, prot); err != nil {
		return err
	}

	a.state = stateSealed
	return nil
}

func (a *Arena) Sealed() bool { return a.state == stateSealed }
func (a *Arena) Native() bool { return a.native }

// Base address, or zero if the arena is empty.
func (a *Arena) Base() uintptr {
	if len(a.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&a.mem[0]))
}

// Addr of a code buffer.
func (a *Arena) Addr(cb CodeBuffer) uintptr {
	return a.Base() + uintptr(cb.Offset)
}

// Code of a function.  The slice must not be modified.
func (a *Arena) Code(cb CodeBuffer) []byte {
	return a.mem[cb.Offset : cb.Offset+cb.Len : cb.Offset+cb.Len]
}

// Bytes of the used part of the arena.
func (a *Arena) Bytes() []byte {
	return a.mem[:a.used:a.used]
}

// Contains reports whether n bytes at addr are within the used part of the
// arena.
func (a *Arena) Contains(addr uintptr, n int) bool {
	base := a.Base()
	return base != 0 && addr >= base && addr-base <= uintptr(a.used) && uintptr(a.used)-(addr-base) >= uintptr(n)
}

func (a *Arena) patch(addr uintptr, n int) ([]byte, error) {
	if a.state != statePatching {
		if a.state == stateWritable {
			return nil, errors.New("code arena is not ready for patching")
		}
		return nil, ErrSealed
	}
	if !a.Contains(addr, n) {
		return nil, errors.Errorf("patch address %#x is outside of code arena", addr)
	}
	offset := int(addr - a.Base())
	return a.mem[offset : offset+n], nil
}

func (a *Arena) PutUint64(addr uintptr, value uint64) error {
	b, err := a.patch(addr, 8)
	if err == nil {
		binary.LittleEndian.PutUint64(b, value)
	}
	return err
}

func (a *Arena) PutUint32(addr uintptr, value uint32) error {
	b, err := a.patch(addr, 4)
	if err == nil {
		binary.LittleEndian.PutUint32(b, value)
	}
	return err
}

// Close unmaps the arena.  Code addresses become invalid.
func (a *Arena) Close() error {
	if a.state == stateClosed {
		return nil
	}
	a.state = stateClosed
	mem := a.mem
	a.mem = nil
	a.used = 0
	return mman.Unmap(mem)
}

func align(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

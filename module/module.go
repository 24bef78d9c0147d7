// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package module describes a validated WebAssembly module, as produced by a
// front-end.  A Module is read-only during instantiation.
//
// # Function index space
//
// Imported functions come first, followed by the locally defined functions.
// FuncIndex addresses the whole space; LocalFuncIndex addresses Functions.
// This ordering is the only rule used to map a function index to code, and
// the conversions below are the only place where it is spelled out.
package module

import (
	"sort"

	"github.com/akegalj/wasmer/errors"
	"github.com/akegalj/wasmer/ir"
	"github.com/akegalj/wasmer/wasm"
)

// FuncIndex is an index into the module-wide function index space.
type FuncIndex uint32

// LocalFuncIndex is an index into Module.Functions.
type LocalFuncIndex uint32

type Import struct {
	Module string
	Field  string
	Sig    ir.Signature
}

type Table struct {
	Size uint32
}

// ElementSegment initializes a run of table slots with function addresses.
// Base refers to a global which would be added to Offset; it is not
// supported.
type ElementSegment struct {
	TableIndex uint32
	Offset     uint32
	Base       *uint32
	Elements   []FuncIndex
}

type Memory struct {
	InitialPages uint32
	MaximumPages uint32
	HasMaximum   bool
}

// DataSegment initializes a run of linear memory bytes.  Base is not
// supported.
type DataSegment struct {
	MemoryIndex uint32
	Offset      uint32
	Base        *uint32
	Bytes       []byte
}

type InitKind uint8

const (
	InitI32Const InitKind = iota
	InitF32Const
	InitI64Const
	InitF64Const
	InitGlobalRef // Index refers to another global.
	InitImport    // Value is provided by the embedder.
)

// GlobalInit is a constant initializer expression.  Bits holds the constant
// value: sign-extended integer or IEEE 754 bit pattern.
type GlobalInit struct {
	Kind  InitKind
	Bits  uint64
	Index uint32
}

type Global struct {
	Type    wasm.Type
	Mutable bool
	Init    GlobalInit
}

type ExportKind uint8

const (
	ExportFunction ExportKind = iota
	ExportTable
	ExportMemory
	ExportGlobal
)

type Export struct {
	Kind  ExportKind
	Index uint32
}

type Module struct {
	ImportFuncs []Import
	Functions   []ir.Function
	Tables      []Table
	Elements    []ElementSegment
	Memories    []Memory
	Data        []DataSegment
	Globals     []Global

	StartIndex   FuncIndex
	StartDefined bool

	Exports map[string]Export
}

// NumImportFuncs is the boundary between imported and local functions in the
// function index space.
func (m *Module) NumImportFuncs() int {
	return len(m.ImportFuncs)
}

func (m *Module) NumFuncs() int {
	return len(m.ImportFuncs) + len(m.Functions)
}

// LocalIndex converts a module-wide function index to a local function
// index.  ok is false for imported and out-of-range functions.
func (m *Module) LocalIndex(i FuncIndex) (local LocalFuncIndex, ok bool) {
	n := uint32(len(m.ImportFuncs))
	if uint32(i) < n || uint32(i)-n >= uint32(len(m.Functions)) {
		return 0, false
	}
	return LocalFuncIndex(uint32(i) - n), true
}

// FuncIndexOf converts a local function index to a module-wide index.
func (m *Module) FuncIndexOf(local LocalFuncIndex) FuncIndex {
	return FuncIndex(uint32(len(m.ImportFuncs)) + uint32(local))
}

// IsImport reports whether the index refers to an imported function.
func (m *Module) IsImport(i FuncIndex) bool {
	return uint32(i) < uint32(len(m.ImportFuncs))
}

// FuncSig looks up the signature of an imported or local function.
func (m *Module) FuncSig(i FuncIndex) (sig ir.Signature, ok bool) {
	if m.IsImport(i) {
		return m.ImportFuncs[i].Sig, true
	}
	if local, ok := m.LocalIndex(i); ok {
		return m.Functions[local].Sig, true
	}
	return
}

// ExportedFunc looks up a function export by name.
func (m *Module) ExportedFunc(name string) (i FuncIndex, ok bool) {
	e, found := m.Exports[name]
	if !found || e.Kind != ExportFunction {
		return 0, false
	}
	return FuncIndex(e.Index), true
}

// ExportNames in sorted order.
func (m *Module) ExportNames() []string {
	names := make([]string, 0, len(m.Exports))
	for name := range m.Exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate the structural invariants which instantiation relies on.  It
// doesn't validate function bodies; that is done by code generation.
func (m *Module) Validate() error {
	if len(m.Memories) > 1 {
		return errors.Faultf(errors.FaultUnsupported, 1, "multiple memories are not supported")
	}

	for i, mem := range m.Memories {
		if mem.InitialPages > wasm.MaxPages {
			return errors.Faultf(errors.FaultModule, i, "initial memory size is too large: %d pages", mem.InitialPages)
		}
		if mem.HasMaximum && mem.MaximumPages < mem.InitialPages {
			return errors.Faultf(errors.FaultModule, i, "maximum memory size %d is smaller than initial size %d", mem.MaximumPages, mem.InitialPages)
		}
	}

	for i, seg := range m.Elements {
		if seg.TableIndex >= uint32(len(m.Tables)) {
			return errors.Faultf(errors.FaultTableInit, i, "element segment refers to unknown table %d", seg.TableIndex)
		}
	}

	for i, seg := range m.Data {
		if seg.MemoryIndex != 0 {
			return errors.Faultf(errors.FaultMemoryIndex, i, "data segment refers to memory %d", seg.MemoryIndex)
		}
	}

	if m.StartDefined && uint32(m.StartIndex) >= uint32(m.NumFuncs()) {
		return errors.Faultf(errors.FaultModule, int(m.StartIndex), "start function index is out of range")
	}

	for _, name := range m.ExportNames() {
		e := m.Exports[name]

		var n int
		switch e.Kind {
		case ExportFunction:
			n = m.NumFuncs()
		case ExportTable:
			n = len(m.Tables)
		case ExportMemory:
			n = len(m.Memories)
			if n == 0 {
				n = 1 // Implicit empty memory.
			}
		case ExportGlobal:
			n = len(m.Globals)
		default:
			return errors.Faultf(errors.FaultModule, -1, "export %q has unknown kind %d", name, e.Kind)
		}

		if e.Index >= uint32(n) {
			return errors.Faultf(errors.FaultModule, int(e.Index), "export %q index is out of range", name)
		}
	}

	return nil
}

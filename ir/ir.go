// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ir is the intermediate representation of function bodies, as
// produced by the front-end and consumed by code generation targets.
//
// The representation is a typed stack machine.  Values are 64-bit slots;
// 32-bit integers occupy the low half, floating-point values are stored as
// their IEEE 754 bit patterns.
package ir

import (
	"fmt"
	"strings"

	"github.com/akegalj/wasmer/wasm"
)

// Signature of a function.  There is at most one result.
type Signature struct {
	Params  []wasm.Type
	Results []wasm.Type
}

func (sig Signature) Result() wasm.Type {
	if len(sig.Results) == 0 {
		return wasm.Void
	}
	return sig.Results[0]
}

func (sig Signature) Equal(other Signature) bool {
	if len(sig.Params) != len(other.Params) || len(sig.Results) != len(other.Results) {
		return false
	}
	for i, t := range sig.Params {
		if other.Params[i] != t {
			return false
		}
	}
	for i, t := range sig.Results {
		if other.Results[i] != t {
			return false
		}
	}
	return true
}

func (sig Signature) String() string {
	var b strings.Builder

	b.WriteString("(")
	for i, t := range sig.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.String())
	}
	b.WriteString(")")

	if len(sig.Results) > 0 {
		b.WriteString(" ")
		b.WriteString(sig.Result().String())
	}

	return b.String()
}

// Instr is a single instruction.  The meaning of Index and Imm depends on Op.
type Instr struct {
	Op    Op
	Index uint32     // Local, global, function, table or memory index.
	Imm   uint64     // Constant bits or static memory offset.
	Sig   *Signature // CallIndirect only.
}

func (insn Instr) String() string {
	switch insn.Op {
	case I32Const, I64Const, F32Const, F64Const:
		return fmt.Sprintf("%s 0x%x", insn.Op, insn.Imm)

	case LocalGet, LocalSet, LocalTee, GlobalGet, GlobalSet, Call, MemorySize, MemoryGrow:
		return fmt.Sprintf("%s %d", insn.Op, insn.Index)

	case CallIndirect:
		return fmt.Sprintf("%s %d %v", insn.Op, insn.Index, insn.Sig)

	case I32Load, I64Load, I32Store, I64Store:
		return fmt.Sprintf("%s offset=%d", insn.Op, insn.Imm)

	default:
		return insn.Op.String()
	}
}

// Function body.  Parameters are the first locals.
type Function struct {
	Name   string
	Sig    Signature
	Locals []wasm.Type
	Body   []Instr
}

// LocalType returns the type of a parameter or local variable.
func (f *Function) LocalType(index uint32) (t wasm.Type, ok bool) {
	if n := uint32(len(f.Sig.Params)); index < n {
		return f.Sig.Params[index], true
	} else if index-n < uint32(len(f.Locals)) {
		return f.Locals[index-n], true
	}
	return wasm.Void, false
}

// NumLocals including parameters.
func (f *Function) NumLocals() int {
	return len(f.Sig.Params) + len(f.Locals)
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ir

import (
	"fmt"
)

type Op uint8

const (
	Unreachable = Op(iota)
	Nop
	Drop
	Return

	I32Const
	I64Const
	F32Const
	F64Const

	LocalGet
	LocalSet
	LocalTee
	GlobalGet
	GlobalSet

	I32Add
	I32Sub
	I32Mul
	I64Add
	I64Sub
	I64Mul

	F32Ceil
	F32Floor
	F32Trunc
	F32Nearest
	F64Ceil
	F64Floor
	F64Trunc
	F64Nearest

	Call
	CallIndirect

	I32Load
	I64Load
	I32Store
	I64Store
	MemorySize
	MemoryGrow

	NumOps
)

var opNames = [NumOps]string{
	Unreachable:  "unreachable",
	Nop:          "nop",
	Drop:         "drop",
	Return:       "return",
	I32Const:     "i32.const",
	I64Const:     "i64.const",
	F32Const:     "f32.const",
	F64Const:     "f64.const",
	LocalGet:     "local.get",
	LocalSet:     "local.set",
	LocalTee:     "local.tee",
	GlobalGet:    "global.get",
	GlobalSet:    "global.set",
	I32Add:       "i32.add",
	I32Sub:       "i32.sub",
	I32Mul:       "i32.mul",
	I64Add:       "i64.add",
	I64Sub:       "i64.sub",
	I64Mul:       "i64.mul",
	F32Ceil:      "f32.ceil",
	F32Floor:     "f32.floor",
	F32Trunc:     "f32.trunc",
	F32Nearest:   "f32.nearest",
	F64Ceil:      "f64.ceil",
	F64Floor:     "f64.floor",
	F64Trunc:     "f64.trunc",
	F64Nearest:   "f64.nearest",
	Call:         "call",
	CallIndirect: "call_indirect",
	I32Load:      "i32.load",
	I64Load:      "i64.load",
	I32Store:     "i32.store",
	I64Store:     "i64.store",
	MemorySize:   "memory.size",
	MemoryGrow:   "memory.grow",
}

func (op Op) String() string {
	if op < NumOps {
		return opNames[op]
	}
	return fmt.Sprintf("<unknown op 0x%02x>", uint8(op))
}

// Rounding reports whether the op is one of the eight float rounding
// operations.
func (op Op) Rounding() bool {
	return op >= F32Ceil && op <= F64Nearest
}

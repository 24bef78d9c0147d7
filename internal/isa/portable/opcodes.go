// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package portable

import (
	"encoding/binary"
	"fmt"
)

// Opcode of the portable instruction encoding.  Operands are little-endian.
type Opcode byte

const (
	OpInvalid Opcode = iota

	OpFrame        // params:u8 results:u8 locals:u16
	OpUnreachable  //
	OpDrop         //
	OpReturn       //
	OpConst32      // value:u32
	OpConst64      // value:u64
	OpLocalGet     // index:u32
	OpLocalSet     // index:u32
	OpLocalTee     // index:u32
	OpGlobalGet    // index:u32
	OpGlobalSet    // index:u32
	OpI32Add       //
	OpI32Sub       //
	OpI32Mul       //
	OpI64Add       //
	OpI64Sub       //
	OpI64Mul       //
	OpCall         // argc:u8 results:u8 disp:i32 (relative to the end of disp)
	OpCallAbs      // argc:u8 results:u8 addr:u64
	OpCallIndirect // table:u32 argc:u8 results:u8
	OpI32Load      // offset:u32
	OpI64Load      // offset:u32
	OpI32Store     // offset:u32
	OpI64Store     // offset:u32

	numOpcodes
)

// FrameSize is the length of the OpFrame instruction which starts every
// function.
const FrameSize = 5

// Operand field offsets of call instructions, relative to the opcode.
const (
	CallDispOffset   = 3
	CallAbsOffset    = 3
	CallIndirectSize = 7
)

type format uint8

const (
	fmtNone format = iota
	fmtFrame
	fmtU32
	fmtU64
	fmtCall
	fmtCallAbs
	fmtCallIndirect
)

var formatSizes = [...]int{
	fmtNone:         1,
	fmtFrame:        FrameSize,
	fmtU32:          5,
	fmtU64:          9,
	fmtCall:         7,
	fmtCallAbs:      11,
	fmtCallIndirect: CallIndirectSize,
}

var opcodeInfo = [numOpcodes]struct {
	name   string
	format format
}{
	OpInvalid:      {"invalid", fmtNone},
	OpFrame:        {"frame", fmtFrame},
	OpUnreachable:  {"unreachable", fmtNone},
	OpDrop:         {"drop", fmtNone},
	OpReturn:       {"return", fmtNone},
	OpConst32:      {"const32", fmtU32},
	OpConst64:      {"const64", fmtU64},
	OpLocalGet:     {"local.get", fmtU32},
	OpLocalSet:     {"local.set", fmtU32},
	OpLocalTee:     {"local.tee", fmtU32},
	OpGlobalGet:    {"global.get", fmtU32},
	OpGlobalSet:    {"global.set", fmtU32},
	OpI32Add:       {"i32.add", fmtNone},
	OpI32Sub:       {"i32.sub", fmtNone},
	OpI32Mul:       {"i32.mul", fmtNone},
	OpI64Add:       {"i64.add", fmtNone},
	OpI64Sub:       {"i64.sub", fmtNone},
	OpI64Mul:       {"i64.mul", fmtNone},
	OpCall:         {"call", fmtCall},
	OpCallAbs:      {"call.abs", fmtCallAbs},
	OpCallIndirect: {"call.indirect", fmtCallIndirect},
	OpI32Load:      {"i32.load", fmtU32},
	OpI64Load:      {"i64.load", fmtU32},
	OpI32Store:     {"i32.store", fmtU32},
	OpI64Store:     {"i64.store", fmtU32},
}

func (op Opcode) String() string {
	if op < numOpcodes {
		return opcodeInfo[op].name
	}
	return fmt.Sprintf("opcode 0x%02x", byte(op))
}

// Insn is a decoded instruction.
type Insn struct {
	Op      Opcode
	Len     int
	Argc    int    // Call and frame parameter count.
	Results int    // Call and frame result count.
	Index   uint32 // Local, global or table index, memory offset, or frame local count.
	Imm     uint64 // Constant, absolute address, or sign-extended displacement.
}

type DecodeError struct {
	PC  int
	Msg string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("portable code at %#x: %s", e.PC, e.Msg)
}

// Decode the instruction at pc.
func Decode(code []byte, pc int) (insn Insn, err error) {
	if pc < 0 || pc >= len(code) {
		err = &DecodeError{pc, "program counter out of bounds"}
		return
	}

	insn.Op = Opcode(code[pc])
	if insn.Op == OpInvalid || insn.Op >= numOpcodes {
		err = &DecodeError{pc, insn.Op.String() + " is invalid"}
		return
	}

	f := opcodeInfo[insn.Op].format
	insn.Len = formatSizes[f]
	if pc+insn.Len > len(code) {
		err = &DecodeError{pc, "truncated " + insn.Op.String() + " instruction"}
		return
	}
	b := code[pc+1 : pc+insn.Len]

	switch f {
	case fmtFrame:
		insn.Argc = int(b[0])
		insn.Results = int(b[1])
		insn.Index = uint32(binary.LittleEndian.Uint16(b[2:]))

	case fmtU32:
		insn.Index = binary.LittleEndian.Uint32(b)
		insn.Imm = uint64(insn.Index)

	case fmtU64:
		insn.Imm = binary.LittleEndian.Uint64(b)

	case fmtCall:
		insn.Argc = int(b[0])
		insn.Results = int(b[1])
		insn.Imm = uint64(int64(int32(binary.LittleEndian.Uint32(b[2:]))))

	case fmtCallAbs:
		insn.Argc = int(b[0])
		insn.Results = int(b[1])
		insn.Imm = binary.LittleEndian.Uint64(b[2:])

	case fmtCallIndirect:
		insn.Index = binary.LittleEndian.Uint32(b)
		insn.Argc = int(b[4])
		insn.Results = int(b[5])
	}

	return
}

// Frame decodes the function header.
func Frame(code []byte) (params, results, locals int, err error) {
	insn, err := Decode(code, 0)
	if err != nil {
		return
	}
	if insn.Op != OpFrame {
		err = &DecodeError{0, "function does not start with frame header"}
		return
	}
	return insn.Argc, insn.Results, int(insn.Index), nil
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package isa

import (
	"fmt"

	"github.com/akegalj/wasmer/errors"
	"github.com/akegalj/wasmer/ir"
	"github.com/akegalj/wasmer/module"
	"github.com/akegalj/wasmer/wasm"
)

// anyType matches every type in unreachable code.
const anyType = wasm.Void

type verifier struct {
	m         *module.Module
	fn        *ir.Function
	stack     []wasm.Type
	dead      bool
	maxHeight int
}

// Verify type-checks a function body.  Targets call it before emitting code,
// so that they can assume a well-formed operand stack.  The returned height
// is the maximum operand stack depth.
func Verify(m *module.Module, index module.FuncIndex, fn *ir.Function) (maxHeight int, err error) {
	if len(fn.Sig.Results) > 1 {
		return 0, compileErrorf(index, -1, "multiple results are not supported")
	}

	v := verifier{m: m, fn: fn}

	for i, insn := range fn.Body {
		if msg := v.insn(insn); msg != "" {
			return 0, compileErrorf(index, i, "%s: %s", insn, msg)
		}
	}

	if !v.dead {
		if msg := v.popResults(); msg != "" {
			return 0, compileErrorf(index, len(fn.Body), "end: %s", msg)
		}
		if len(v.stack) != 0 {
			return 0, compileErrorf(index, len(fn.Body), "end: %d excess values on operand stack", len(v.stack))
		}
	}

	return v.maxHeight, nil
}

func compileErrorf(index module.FuncIndex, pos int, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if pos >= 0 {
		msg = fmt.Sprintf("instruction %d: %s", pos, msg)
	}
	return &errors.CompileError{Func: int(index), Msg: msg}
}

func (v *verifier) push(t wasm.Type) {
	v.stack = append(v.stack, t)
	if len(v.stack) > v.maxHeight {
		v.maxHeight = len(v.stack)
	}
}

func (v *verifier) pop(expect wasm.Type) string {
	if len(v.stack) == 0 {
		if v.dead {
			return ""
		}
		return "operand stack underflow"
	}

	t := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]

	if expect != anyType && t != anyType && t != expect {
		return fmt.Sprintf("expected %s operand, found %s", expect, t)
	}
	return ""
}

func (v *verifier) popAll(types ...wasm.Type) string {
	for i := len(types) - 1; i >= 0; i-- {
		if msg := v.pop(types[i]); msg != "" {
			return msg
		}
	}
	return ""
}

func (v *verifier) popResults() string {
	return v.popAll(v.fn.Sig.Results...)
}

func (v *verifier) call(sig ir.Signature) string {
	if len(sig.Results) > 1 {
		return "callee has multiple results"
	}
	if msg := v.popAll(sig.Params...); msg != "" {
		return msg
	}
	for _, t := range sig.Results {
		v.push(t)
	}
	return ""
}

func (v *verifier) numMemories() int {
	if len(v.m.Memories) == 0 {
		return 1 // Implicit empty memory.
	}
	return len(v.m.Memories)
}

func (v *verifier) insn(insn ir.Instr) string {
	switch op := insn.Op; op {
	case ir.Nop:

	case ir.Unreachable:
		v.stack = v.stack[:0]
		v.dead = true

	case ir.Drop:
		return v.pop(anyType)

	case ir.Return:
		if msg := v.popResults(); msg != "" {
			return msg
		}
		v.stack = v.stack[:0]
		v.dead = true

	case ir.I32Const:
		v.push(wasm.I32)

	case ir.I64Const:
		v.push(wasm.I64)

	case ir.F32Const:
		v.push(wasm.F32)

	case ir.F64Const:
		v.push(wasm.F64)

	case ir.LocalGet, ir.LocalSet, ir.LocalTee:
		t, ok := v.fn.LocalType(insn.Index)
		if !ok {
			return "local index out of range"
		}
		if op != ir.LocalGet {
			if msg := v.pop(t); msg != "" {
				return msg
			}
		}
		if op != ir.LocalSet {
			v.push(t)
		}

	case ir.GlobalGet:
		if insn.Index >= uint32(len(v.m.Globals)) {
			return "global index out of range"
		}
		v.push(v.m.Globals[insn.Index].Type)

	case ir.GlobalSet:
		if insn.Index >= uint32(len(v.m.Globals)) {
			return "global index out of range"
		}
		g := v.m.Globals[insn.Index]
		if !g.Mutable {
			return "global is immutable"
		}
		return v.pop(g.Type)

	case ir.I32Add, ir.I32Sub, ir.I32Mul:
		if msg := v.popAll(wasm.I32, wasm.I32); msg != "" {
			return msg
		}
		v.push(wasm.I32)

	case ir.I64Add, ir.I64Sub, ir.I64Mul:
		if msg := v.popAll(wasm.I64, wasm.I64); msg != "" {
			return msg
		}
		v.push(wasm.I64)

	case ir.F32Ceil, ir.F32Floor, ir.F32Trunc, ir.F32Nearest:
		if msg := v.pop(wasm.F32); msg != "" {
			return msg
		}
		v.push(wasm.F32)

	case ir.F64Ceil, ir.F64Floor, ir.F64Trunc, ir.F64Nearest:
		if msg := v.pop(wasm.F64); msg != "" {
			return msg
		}
		v.push(wasm.F64)

	case ir.Call:
		sig, ok := v.m.FuncSig(module.FuncIndex(insn.Index))
		if !ok {
			return "function index out of range"
		}
		return v.call(sig)

	case ir.CallIndirect:
		if insn.Index >= uint32(len(v.m.Tables)) {
			return "table index out of range"
		}
		if insn.Sig == nil {
			return "missing signature"
		}
		if msg := v.pop(wasm.I32); msg != "" {
			return msg
		}
		return v.call(*insn.Sig)

	case ir.I32Load, ir.I64Load:
		if insn.Imm > 0xffffffff {
			return "memory offset out of range"
		}
		if msg := v.pop(wasm.I32); msg != "" {
			return msg
		}
		if op == ir.I32Load {
			v.push(wasm.I32)
		} else {
			v.push(wasm.I64)
		}

	case ir.I32Store, ir.I64Store:
		if insn.Imm > 0xffffffff {
			return "memory offset out of range"
		}
		t := wasm.I32
		if op == ir.I64Store {
			t = wasm.I64
		}
		return v.popAll(wasm.I32, t)

	case ir.MemorySize:
		if insn.Index >= uint32(v.numMemories()) {
			return "memory index out of range"
		}
		v.push(wasm.I32)

	case ir.MemoryGrow:
		if insn.Index >= uint32(v.numMemories()) {
			return "memory index out of range"
		}
		if msg := v.pop(wasm.I32); msg != "" {
			return msg
		}
		v.push(wasm.I32)

	default:
		return "unknown instruction"
	}

	return ""
}

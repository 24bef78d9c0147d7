// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package amd64 generates x86-64 machine code.
//
// Calling convention: rdi points to the instance's DataPointers, parameters
// are passed in rsi, rdx, rcx, r8 and r9, and the result is returned in rax.
// Runtime intrinsics take the DataPointers pointer as their first argument.
// Float libcalls take and return their operand in xmm0.
//
// The frame of a function is [rbp-8] = DataPointers, followed by parameters
// and locals in 8-byte slots, followed by the operand stack.
package amd64

import (
	"fmt"

	"github.com/akegalj/wasmer/abi"
	"github.com/akegalj/wasmer/buffer"
	"github.com/akegalj/wasmer/errors"
	"github.com/akegalj/wasmer/internal/code"
	"github.com/akegalj/wasmer/internal/errorpanic"
	"github.com/akegalj/wasmer/internal/isa"
	"github.com/akegalj/wasmer/ir"
	"github.com/akegalj/wasmer/link"
	"github.com/akegalj/wasmer/module"
	"import.name/pan"
)

const Name = "amd64"

// MaxParams passed in registers.
const MaxParams = len(paramRegs)

type Target struct{}

func init() {
	isa.Register(Target{})
}

func (Target) Name() string { return Name }
func (Target) Native() bool { return true }

var libCalls = map[ir.Op]link.LibCall{
	ir.F32Ceil:    link.CeilF32,
	ir.F32Floor:   link.FloorF32,
	ir.F32Trunc:   link.TruncF32,
	ir.F32Nearest: link.NearestF32,
	ir.F64Ceil:    link.CeilF64,
	ir.F64Floor:   link.FloorF64,
	ir.F64Trunc:   link.TruncF64,
	ir.F64Nearest: link.NearestF64,
}

type gen struct {
	env       *isa.Env
	index     module.FuncIndex
	fn        *ir.Function
	text      code.Buf
	relocs    []link.Relocation
	numLocals int
	height    int // Operand stack depth.
}

func (Target) Compile(env *isa.Env, index module.FuncIndex, fn *ir.Function) (out isa.Output, err error) {
	if _, err = isa.Verify(env.Module, index, fn); err != nil {
		return
	}

	defer func() {
		if x := recover(); x != nil {
			out = isa.Output{}
			err = errorpanic.Handle(int(index), x)
		}
	}()

	g := &gen{
		env:       env,
		index:     index,
		fn:        fn,
		text:      code.Buf{Buffer: buffer.NewLimited(nil, env.FunctionSizeLimit())},
		numLocals: fn.NumLocals(),
	}

	if len(fn.Sig.Params) > MaxParams {
		g.unsupported("more than %d parameters", MaxParams)
	}

	prologue(&g.text)

	for i := range fn.Sig.Params {
		pushReg(&g.text, paramRegs[i])
	}
	if len(fn.Locals) > 0 {
		zeroRAX(&g.text)
		for range fn.Locals {
			pushReg(&g.text, rax)
		}
	}

	for _, insn := range fn.Body {
		if !g.insn(insn) {
			break // Rest is unreachable.
		}
	}
	if g.height >= 0 {
		g.ret()
	}

	out = isa.Output{
		Code:   g.text.Bytes(),
		Relocs: g.relocs,
	}
	return
}

func (g *gen) unsupported(format string, args ...interface{}) {
	pan.Panic(&errors.CompileError{
		Func: int(g.index),
		Msg:  fmt.Sprintf(format, args...) + " is not supported by amd64 target",
	})
}

func localDisp(index uint32) int32 {
	return -16 - 8*int32(index)
}

func (g *gen) push() {
	pushReg(&g.text, rax)
	g.height++
}

func (g *gen) pop(r reg) {
	popReg(&g.text, r)
	g.height--
}

// insn returns false if the instruction ended the function.
func (g *gen) insn(insn ir.Instr) bool {
	switch op := insn.Op; op {
	case ir.Nop:

	case ir.Unreachable:
		ud2(&g.text)
		g.height = -1
		return false

	case ir.Return:
		g.ret()
		g.height = -1
		return false

	case ir.Drop:
		dropStack(&g.text)
		g.height--

	case ir.I32Const, ir.F32Const:
		movImm32(&g.text, rax, uint32(insn.Imm))
		g.push()

	case ir.I64Const, ir.F64Const:
		movImm64(&g.text, rax, insn.Imm)
		g.push()

	case ir.LocalGet:
		loadLocal(&g.text, localDisp(insn.Index))
		g.push()

	case ir.LocalSet:
		g.pop(rax)
		storeLocal(&g.text, localDisp(insn.Index))

	case ir.LocalTee:
		peekStack(&g.text)
		storeLocal(&g.text, localDisp(insn.Index))

	case ir.GlobalGet:
		loadGlobals(&g.text, abi.OffsetGlobals)
		loadGlobal(&g.text, int32(insn.Index)*abi.GlobalSize)
		g.push()

	case ir.GlobalSet:
		loadGlobals(&g.text, abi.OffsetGlobals)
		g.pop(rcx)
		storeGlobal(&g.text, int32(insn.Index)*abi.GlobalSize)

	case ir.I32Add, ir.I32Sub, ir.I32Mul, ir.I64Add, ir.I64Sub, ir.I64Mul:
		g.pop(rcx)
		g.pop(rax)
		switch op {
		case ir.I32Add, ir.I64Add:
			ADD.emit(&g.text, op == ir.I64Add)
		case ir.I32Sub, ir.I64Sub:
			SUB.emit(&g.text, op == ir.I64Sub)
		default:
			IMUL.emit(&g.text, op == ir.I64Mul)
		}
		g.push()

	case ir.F32Ceil, ir.F32Floor, ir.F32Trunc, ir.F32Nearest, ir.F64Ceil, ir.F64Floor, ir.F64Trunc, ir.F64Nearest:
		g.pop(rax)
		movqToXMM0(&g.text)
		g.callAligned(func() { g.callAbs(link.LibCallTarget(libCalls[op])) })
		movqFromXMM0(&g.text)
		g.push()

	case ir.Call:
		g.call(module.FuncIndex(insn.Index))

	case ir.MemorySize:
		movImm32(&g.text, rsi, insn.Index)
		loadVMContext(&g.text)
		g.callAligned(func() { g.callAbs(link.CurrentMemory) })
		g.push()

	case ir.MemoryGrow:
		g.pop(rsi)
		movImm32(&g.text, rdx, insn.Index)
		loadVMContext(&g.text)
		g.callAligned(func() { g.callAbs(link.GrowMemory) })
		g.push()

	case ir.CallIndirect:
		g.unsupported("call_indirect")

	case ir.I32Load, ir.I64Load, ir.I32Store, ir.I64Store:
		g.unsupported("linear memory access")

	default:
		g.unsupported("%s", op)
	}

	return true
}

func (g *gen) ret() {
	if len(g.fn.Sig.Results) > 0 {
		g.pop(rax)
	}
	epilogue(&g.text)
}

func (g *gen) call(callee module.FuncIndex) {
	sig, _ := g.env.Module.FuncSig(callee)
	if len(sig.Params) > MaxParams {
		g.unsupported("call with more than %d arguments", MaxParams)
	}

	for i := len(sig.Params) - 1; i >= 0; i-- {
		g.pop(paramRegs[i])
	}
	loadVMContext(&g.text)

	g.callAligned(func() {
		if g.env.Module.IsImport(callee) {
			g.callAbs(link.FuncTarget(callee))
		} else {
			g.reloc(link.X86PCRel4, callRel32(&g.text), -4, link.FuncTarget(callee))
		}
	})

	if len(sig.Results) > 0 {
		g.push()
	}
}

// callAligned keeps the stack pointer 16-byte aligned at the call
// instruction.  The return address and saved rbp make the frame base
// aligned, so the slot count decides.
func (g *gen) callAligned(emitCall func()) {
	odd := (1+g.numLocals+g.height)&1 != 0
	if odd {
		adjustStack(&g.text, true)
	}
	emitCall()
	if odd {
		adjustStack(&g.text, false)
	}
}

func (g *gen) callAbs(target link.Target) {
	g.reloc(link.Abs8, callAbs(&g.text), 0, target)
}

func (g *gen) reloc(kind link.Kind, offset int32, addend int64, target link.Target) {
	g.relocs = append(g.relocs, link.Relocation{
		Func:   g.index,
		Offset: uint32(offset),
		Addend: addend,
		Target: target,
		Kind:   kind,
	})
}

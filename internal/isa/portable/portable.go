// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package portable generates code for the interpreter in internal/vm.
//
// The encoding is linked like machine code: local calls carry a 4-byte
// PC-relative displacement and all other calls an 8-byte absolute address,
// both filled in by relocations.
package portable

import (
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

const Name = "portable"

// Target is the portable code generation target.
type Target struct{}

func init() {
	isa.Register(Target{})
}

func (Target) Name() string { return Name }
func (Target) Native() bool { return false }

var roundingCalls = map[ir.Op]link.LibCall{
	ir.F32Ceil:    link.CeilF32,
	ir.F32Floor:   link.FloorF32,
	ir.F32Trunc:   link.TruncF32,
	ir.F32Nearest: link.NearestF32,
	ir.F64Ceil:    link.CeilF64,
	ir.F64Floor:   link.FloorF64,
	ir.F64Trunc:   link.TruncF64,
	ir.F64Nearest: link.NearestF64,
}

var simpleOps = map[ir.Op]Opcode{
	ir.Unreachable: OpUnreachable,
	ir.Drop:        OpDrop,
	ir.Return:      OpReturn,
	ir.I32Add:      OpI32Add,
	ir.I32Sub:      OpI32Sub,
	ir.I32Mul:      OpI32Mul,
	ir.I64Add:      OpI64Add,
	ir.I64Sub:      OpI64Sub,
	ir.I64Mul:      OpI64Mul,
}

var indexOps = map[ir.Op]Opcode{
	ir.LocalGet:  OpLocalGet,
	ir.LocalSet:  OpLocalSet,
	ir.LocalTee:  OpLocalTee,
	ir.GlobalGet: OpGlobalGet,
	ir.GlobalSet: OpGlobalSet,
}

var memoryOps = map[ir.Op]Opcode{
	ir.I32Load:  OpI32Load,
	ir.I64Load:  OpI64Load,
	ir.I32Store: OpI32Store,
	ir.I64Store: OpI64Store,
}

type gen struct {
	env    *isa.Env
	index  module.FuncIndex
	text   code.Buf
	relocs []link.Relocation
}

func (Target) Compile(env *isa.Env, index module.FuncIndex, fn *ir.Function) (out isa.Output, err error) {
	if _, err = isa.Verify(env.Module, index, fn); err != nil {
		return
	}

	if n := len(fn.Sig.Params); n > 255 {
		err = &errors.CompileError{Func: int(index), Msg: "too many parameters"}
		return
	}
	if n := len(fn.Locals); n > 0xffff {
		err = &errors.CompileError{Func: int(index), Msg: "too many local variables"}
		return
	}

	defer func() {
		if x := recover(); x != nil {
			out = isa.Output{}
			err = errorpanic.Handle(int(index), x)
		}
	}()

	g := &gen{
		env:   env,
		index: index,
		text:  code.Buf{Buffer: buffer.NewLimited(nil, env.FunctionSizeLimit())},
	}

	g.text.PutByte(byte(OpFrame))
	g.text.PutByte(byte(len(fn.Sig.Params)))
	g.text.PutByte(byte(len(fn.Sig.Results)))
	g.text.PutUint16(uint16(len(fn.Locals)))

	for _, insn := range fn.Body {
		g.insn(insn)
	}
	g.text.PutByte(byte(OpReturn))

	out = isa.Output{
		Code:   g.text.Bytes(),
		Relocs: g.relocs,
	}
	return
}

func (g *gen) insn(insn ir.Instr) {
	if op, found := simpleOps[insn.Op]; found {
		g.text.PutByte(byte(op))
		return
	}

	if op, found := indexOps[insn.Op]; found {
		g.text.PutByte(byte(op))
		g.text.PutUint32(insn.Index)
		return
	}

	if op, found := memoryOps[insn.Op]; found {
		g.text.PutByte(byte(op))
		g.text.PutUint32(uint32(insn.Imm))
		return
	}

	if lc, found := roundingCalls[insn.Op]; found {
		g.callAbs(1, 1, link.LibCallTarget(lc))
		return
	}

	switch insn.Op {
	case ir.Nop:

	case ir.I32Const, ir.F32Const:
		g.text.PutByte(byte(OpConst32))
		g.text.PutUint32(uint32(insn.Imm))

	case ir.I64Const, ir.F64Const:
		g.text.PutByte(byte(OpConst64))
		g.text.PutUint64(insn.Imm)

	case ir.Call:
		g.call(module.FuncIndex(insn.Index))

	case ir.CallIndirect:
		g.text.PutByte(byte(OpCallIndirect))
		g.text.PutUint32(insn.Index)
		g.text.PutByte(byte(len(insn.Sig.Params)))
		g.text.PutByte(byte(len(insn.Sig.Results)))

	case ir.MemorySize:
		g.text.PutByte(byte(OpConst32))
		g.text.PutUint32(insn.Index)
		g.callAbs(1, 1, link.CurrentMemory)

	case ir.MemoryGrow:
		g.text.PutByte(byte(OpConst32))
		g.text.PutUint32(insn.Index)
		g.callAbs(2, 1, link.GrowMemory)

	default:
		pan.Panic(&errors.CompileError{Func: int(g.index), Msg: insn.Op.String() + " is not supported by portable target"})
	}
}

func (g *gen) call(callee module.FuncIndex) {
	sig, _ := g.env.Module.FuncSig(callee)

	if g.env.Module.IsImport(callee) {
		g.callAbs(len(sig.Params), len(sig.Results), link.FuncTarget(callee))
		return
	}

	g.text.PutByte(byte(OpCall))
	g.text.PutByte(byte(len(sig.Params)))
	g.text.PutByte(byte(len(sig.Results)))
	g.reloc(link.X86PCRel4, -4, link.FuncTarget(callee))
	g.text.PutUint32(0)
}

func (g *gen) callAbs(argc, results int, target link.Target) {
	g.text.PutByte(byte(OpCallAbs))
	g.text.PutByte(byte(argc))
	g.text.PutByte(byte(results))
	g.reloc(link.Abs8, 0, target)
	g.text.PutUint64(0)
}

func (g *gen) reloc(kind link.Kind, addend int64, target link.Target) {
	g.relocs = append(g.relocs, link.Relocation{
		Func:   g.index,
		Offset: uint32(g.text.Addr),
		Addend: addend,
		Target: target,
		Kind:   kind,
	})
}

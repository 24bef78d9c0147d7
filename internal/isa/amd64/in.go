// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package amd64

import (
	"github.com/akegalj/wasmer/internal/code"
)

type reg byte

const (
	rax = reg(0)
	rcx = reg(1)
	rdx = reg(2)
	rsp = reg(4)
	rbp = reg(5)
	rsi = reg(6)
	rdi = reg(7)
	r8  = reg(8)
	r9  = reg(9)
)

// Parameter registers; rdi holds the instance's DataPointers.
var paramRegs = [...]reg{rsi, rdx, rcx, r8, r9}

const (
	rexW = 0x48
	rexB = 0x41
)

// O-type instructions encode the register in the opcode byte.
type O byte

const (
	PUSHo = O(0x50)
	POPo  = O(0x58)
	MOVi  = O(0xb8) // mov r32, imm32
)

func (op O) reg(text *code.Buf, r reg) {
	if r >= 8 {
		text.PutByte(rexB)
	}
	text.PutByte(byte(op) + byte(r&7))
}

func pushReg(text *code.Buf, r reg) { PUSHo.reg(text, r) }
func popReg(text *code.Buf, r reg)  { POPo.reg(text, r) }

// movImm32 zero-extends the value to 64 bits.
func movImm32(text *code.Buf, r reg, value uint32) {
	MOVi.reg(text, r)
	text.PutUint32(value)
}

// movImm64 returns the offset of the immediate.
func movImm64(text *code.Buf, r reg, value uint64) (immAddr int32) {
	text.PutByte(rexW | byte(r>>3))
	text.PutByte(byte(MOVi) + byte(r&7))
	immAddr = text.Addr
	text.PutUint64(value)
	return
}

// Stack frame.
func prologue(text *code.Buf) {
	pushReg(text, rbp)
	text.PutBytes(rexW, 0x89, 0xe5) // mov rbp, rsp
	pushReg(text, rdi)
}

func epilogue(text *code.Buf) {
	text.PutBytes(0xc9, 0xc3) // leave; ret
}

// Local variable slot at [rbp+disp].
func loadLocal(text *code.Buf, disp int32) {
	text.PutBytes(rexW, 0x8b, 0x85) // mov rax, [rbp+disp32]
	text.PutUint32(uint32(disp))
}

func storeLocal(text *code.Buf, disp int32) {
	text.PutBytes(rexW, 0x89, 0x85) // mov [rbp+disp32], rax
	text.PutUint32(uint32(disp))
}

func peekStack(text *code.Buf) {
	text.PutBytes(rexW, 0x8b, 0x04, 0x24) // mov rax, [rsp]
}

// loadVMContext into rdi.
func loadVMContext(text *code.Buf) {
	text.PutBytes(rexW, 0x8b, 0x7d, 0xf8) // mov rdi, [rbp-8]
}

// loadGlobals array address into rax.
func loadGlobals(text *code.Buf, globalsOffset byte) {
	text.PutBytes(rexW, 0x8b, 0x45, 0xf8)          // mov rax, [rbp-8]
	text.PutBytes(rexW, 0x8b, 0x40, globalsOffset) // mov rax, [rax+disp8]
}

func loadGlobal(text *code.Buf, disp int32) {
	text.PutBytes(rexW, 0x8b, 0x80) // mov rax, [rax+disp32]
	text.PutUint32(uint32(disp))
}

func storeGlobal(text *code.Buf, disp int32) {
	text.PutBytes(rexW, 0x89, 0x88) // mov [rax+disp32], rcx
	text.PutUint32(uint32(disp))
}

func zeroRAX(text *code.Buf) {
	text.PutBytes(0x31, 0xc0) // xor eax, eax
}

// Binary operation: rax = rax op rcx.
type binaryOp []byte

var (
	ADD  = binaryOp{0x01, 0xc8}       // add eax, ecx
	SUB  = binaryOp{0x29, 0xc8}       // sub eax, ecx
	IMUL = binaryOp{0x0f, 0xaf, 0xc1} // imul eax, ecx
)

func (op binaryOp) emit(text *code.Buf, wide bool) {
	if wide {
		text.PutByte(rexW)
	}
	text.PutBytes(op...)
}

func adjustStack(text *code.Buf, sub bool) {
	if sub {
		text.PutBytes(rexW, 0x83, 0xec, 0x08) // sub rsp, 8
	} else {
		text.PutBytes(rexW, 0x83, 0xc4, 0x08) // add rsp, 8
	}
}

func dropStack(text *code.Buf) {
	adjustStack(text, false)
}

// callRel32 returns the offset of the displacement.
func callRel32(text *code.Buf) (dispAddr int32) {
	text.PutByte(0xe8)
	dispAddr = text.Addr
	text.PutUint32(0)
	return
}

// callAbs returns the offset of the absolute address.
func callAbs(text *code.Buf) (immAddr int32) {
	immAddr = movImm64(text, rax, 0)
	text.PutBytes(0xff, 0xd0) // call rax
	return
}

func movqToXMM0(text *code.Buf) {
	text.PutBytes(0x66, rexW, 0x0f, 0x6e, 0xc0) // movq xmm0, rax
}

func movqFromXMM0(text *code.Buf) {
	text.PutBytes(0x66, rexW, 0x0f, 0x7e, 0xc0) // movq rax, xmm0
}

func ud2(text *code.Buf) {
	text.PutBytes(0x0f, 0x0b)
}

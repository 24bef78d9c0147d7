// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vm executes linked portable code.
//
// The machine runs on the calling goroutine.  Calls to addresses outside of
// generated code go through the trampoline table to the environment.
// DataPointers are reloaded by every instruction that touches memory, tables
// or globals, so runtime calls may move buffers.
package vm

import (
	"encoding/binary"

	"github.com/akegalj/wasmer/abi"
	"github.com/akegalj/wasmer/internal/isa/portable"
	"github.com/akegalj/wasmer/internal/trampoline"
	"github.com/akegalj/wasmer/trap"
	"github.com/pkg/errors"
)

// DefaultMaxCallDepth is used when no limit is configured.
const DefaultMaxCallDepth = 4096

// ErrNotSealed is returned when code is invoked before linking has finished.
var ErrNotSealed = errors.New("code is not sealed")

// Env connects the machine to an instance.
type Env interface {
	// Code of the function whose entry point is addr.  found is false if addr
	// is not within generated code.  Unsealed code must not be returned.
	Code(addr uintptr) (code []byte, found bool, err error)

	// Data returns the current DataPointers.
	Data() *abi.DataPointers

	// CheckWrite returns an error if the memory must not be written through
	// this instance.
	CheckWrite(memory int) error

	// Runtime invokes an intrinsic, libcall, host function or the mock stub.
	Runtime(entry trampoline.Entry, args []uint64) (uint64, error)
}

type arity interface {
	Arity() (params, results int)
}

type Machine struct {
	env      Env
	maxDepth int
	depth    int
	stack    []uint64
}

func New(env Env, maxDepth int) *Machine {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxCallDepth
	}
	return &Machine{env: env, maxDepth: maxDepth}
}

// Call the function at addr.  numResults is the expected result count.
func (m *Machine) Call(addr uintptr, args []uint64, numResults int) ([]uint64, error) {
	m.stack = append(m.stack[:0], args...)
	m.depth = 0

	if err := m.invoke(addr, len(args), numResults); err != nil {
		m.stack = m.stack[:0]
		return nil, err
	}

	results := make([]uint64, numResults)
	copy(results, m.stack[len(m.stack)-numResults:])
	m.stack = m.stack[:0]
	return results, nil
}

func (m *Machine) push(x uint64) {
	m.stack = append(m.stack, x)
}

func (m *Machine) pop() (x uint64) {
	x = m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return
}

func (m *Machine) popArgs(argc int) []uint64 {
	n := len(m.stack) - argc
	args := make([]uint64, argc)
	copy(args, m.stack[n:])
	m.stack = m.stack[:n]
	return args
}

// invoke consumes argc values from the operand stack and pushes numResults
// values.
func (m *Machine) invoke(addr uintptr, argc, numResults int) error {
	if len(m.stack) < argc {
		return errors.Errorf("operand stack underflow in call to %#x", addr)
	}

	code, found, err := m.env.Code(addr)
	if err != nil {
		return err
	}
	if found {
		return m.execute(addr, code, argc, numResults)
	}

	entry, found := trampoline.Lookup(addr)
	if !found {
		return trap.NoFunction
	}

	if !entryMatches(entry, argc, numResults) {
		return trap.IndirectCallSignatureMismatch
	}

	result, err := m.env.Runtime(entry, m.popArgs(argc))
	if err != nil {
		return err
	}
	if numResults > 0 {
		m.push(result)
	}
	return nil
}

func entryMatches(entry trampoline.Entry, argc, numResults int) bool {
	switch entry.Kind {
	case trampoline.KindGrowMemory:
		return argc == 2 && numResults == 1

	case trampoline.KindCurrentMemory, trampoline.KindLibCall:
		return argc == 1 && numResults == 1

	case trampoline.KindMock:
		return numResults <= 1

	case trampoline.KindHost:
		if a, ok := entry.Host.(arity); ok {
			params, results := a.Arity()
			return params == argc && results == numResults
		}
		return true

	default:
		return false
	}
}

func (m *Machine) execute(funcAddr uintptr, code []byte, argc, numResults int) error {
	params, results, numLocals, err := portable.Frame(code)
	if err != nil {
		return err
	}
	if params != argc || results != numResults {
		return trap.IndirectCallSignatureMismatch
	}

	if m.depth >= m.maxDepth {
		return trap.CallStackExhausted
	}
	m.depth++
	defer func() { m.depth-- }()

	locals := make([]uint64, params+numLocals)
	copy(locals, m.stack[len(m.stack)-params:])
	m.stack = m.stack[:len(m.stack)-params]
	base := len(m.stack)

	for pc := portable.FrameSize; ; {
		insn, err := portable.Decode(code, pc)
		if err != nil {
			return err
		}

		switch insn.Op {
		case portable.OpUnreachable:
			return trap.Unreachable

		case portable.OpDrop:
			m.pop()

		case portable.OpReturn:
			if results > 0 {
				x := m.pop()
				m.stack = m.stack[:base]
				m.push(x)
			} else {
				m.stack = m.stack[:base]
			}
			return nil

		case portable.OpConst32:
			m.push(uint64(insn.Index))

		case portable.OpConst64:
			m.push(insn.Imm)

		case portable.OpLocalGet, portable.OpLocalSet, portable.OpLocalTee:
			if insn.Index >= uint32(len(locals)) {
				return errors.Errorf("local index %d out of range at %#x", insn.Index, funcAddr+uintptr(pc))
			}
			switch insn.Op {
			case portable.OpLocalGet:
				m.push(locals[insn.Index])
			case portable.OpLocalSet:
				locals[insn.Index] = m.pop()
			default:
				locals[insn.Index] = m.stack[len(m.stack)-1]
			}

		case portable.OpGlobalGet:
			m.push(*m.env.Data().Global(int(insn.Index)))

		case portable.OpGlobalSet:
			*m.env.Data().Global(int(insn.Index)) = m.pop()

		case portable.OpI32Add, portable.OpI32Sub, portable.OpI32Mul:
			y := uint32(m.pop())
			x := uint32(m.pop())
			switch insn.Op {
			case portable.OpI32Add:
				x += y
			case portable.OpI32Sub:
				x -= y
			default:
				x *= y
			}
			m.push(uint64(x))

		case portable.OpI64Add, portable.OpI64Sub, portable.OpI64Mul:
			y := m.pop()
			x := m.pop()
			switch insn.Op {
			case portable.OpI64Add:
				x += y
			case portable.OpI64Sub:
				x -= y
			default:
				x *= y
			}
			m.push(x)

		case portable.OpCall:
			site := funcAddr + uintptr(pc+portable.CallDispOffset)
			target := uintptr(int64(site) + 4 + int64(insn.Imm))
			if err := m.invoke(target, insn.Argc, insn.Results); err != nil {
				return err
			}

		case portable.OpCallAbs:
			if err := m.invoke(uintptr(insn.Imm), insn.Argc, insn.Results); err != nil {
				return err
			}

		case portable.OpCallIndirect:
			index := uint32(m.pop())
			table := m.env.Data().Table(int(insn.Index))
			if uintptr(index) >= table.Len {
				return trap.IndirectCallIndexOutOfBounds
			}
			target := table.Addrs()[index]
			if target == 0 {
				return trap.NoFunction
			}
			if err := m.invoke(target, insn.Argc, insn.Results); err != nil {
				return err
			}

		case portable.OpI32Load, portable.OpI64Load:
			size := 4
			if insn.Op == portable.OpI64Load {
				size = 8
			}
			b, err := m.memory(uint32(m.pop()), insn.Index, size)
			if err != nil {
				return err
			}
			if size == 4 {
				m.push(uint64(binary.LittleEndian.Uint32(b)))
			} else {
				m.push(binary.LittleEndian.Uint64(b))
			}

		case portable.OpI32Store, portable.OpI64Store:
			value := m.pop()
			addr := uint32(m.pop())
			if err := m.env.CheckWrite(0); err != nil {
				return trap.SharedMemoryWrite
			}
			size := 4
			if insn.Op == portable.OpI64Store {
				size = 8
			}
			b, err := m.memory(addr, insn.Index, size)
			if err != nil {
				return err
			}
			if size == 4 {
				binary.LittleEndian.PutUint32(b, uint32(value))
			} else {
				binary.LittleEndian.PutUint64(b, value)
			}

		default:
			return errors.Errorf("unexpected %s at %#x", insn.Op, funcAddr+uintptr(pc))
		}

		pc += insn.Len
	}
}

func (m *Machine) memory(addr, offset uint32, size int) ([]byte, error) {
	dp := m.env.Data()
	if dp.Memories == nil {
		return nil, trap.MemoryAccessOutOfBounds
	}

	mem := dp.Memory(0).Bytes()
	ea := uint64(addr) + uint64(offset)
	if ea+uint64(size) > uint64(len(mem)) {
		return nil, trap.MemoryAccessOutOfBounds
	}
	return mem[ea : ea+uint64(size)], nil
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/akegalj/wasmer/errors"
	"github.com/akegalj/wasmer/imports"
	"github.com/akegalj/wasmer/internal/isa"
	"github.com/akegalj/wasmer/internal/trampoline"
	"github.com/akegalj/wasmer/ir"
	"github.com/akegalj/wasmer/link"
	"github.com/akegalj/wasmer/memory"
	"github.com/akegalj/wasmer/metrics"
	"github.com/akegalj/wasmer/module"
	"github.com/akegalj/wasmer/trap"
	"github.com/akegalj/wasmer/wasm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	sigVoid    = ir.Signature{}
	sigI32     = ir.Signature{Results: []wasm.Type{wasm.I32}}
	sigI32_    = ir.Signature{Params: []wasm.Type{wasm.I32}}
	sigI32_I32 = ir.Signature{Params: []wasm.Type{wasm.I32}, Results: []wasm.Type{wasm.I32}}
	sigI32I32  = ir.Signature{Params: []wasm.Type{wasm.I32, wasm.I32}, Results: []wasm.Type{wasm.I32}}
	sigF32_F32 = ir.Signature{Params: []wasm.Type{wasm.F32}, Results: []wasm.Type{wasm.F32}}
	sigF64_F64 = ir.Signature{Params: []wasm.Type{wasm.F64}, Results: []wasm.Type{wasm.F64}}
	sigI32I32_ = ir.Signature{Params: []wasm.Type{wasm.I32, wasm.I32}}
)

func constResult(n uint64) ir.Function {
	return ir.Function{Sig: sigI32, Body: []ir.Instr{{Op: ir.I32Const, Imm: n}}}
}

func newInstance(t *testing.T, m *module.Module, imp imports.Object, opts Options) *Instance {
	t.Helper()

	inst, err := New(m, imp, opts)
	require.NoError(t, err)
	t.Cleanup(func() { inst.Close() })
	return inst
}

func addModule() *module.Module {
	return &module.Module{
		Functions: []ir.Function{
			{
				Name: "add",
				Sig:  sigI32I32,
				Body: []ir.Instr{
					{Op: ir.LocalGet, Index: 0},
					{Op: ir.LocalGet, Index: 1},
					{Op: ir.I32Add},
				},
			},
			{
				Name: "main",
				Sig:  sigI32,
				Body: []ir.Instr{
					{Op: ir.I32Const, Imm: 40},
					{Op: ir.I32Const, Imm: 2},
					{Op: ir.Call, Index: 0},
				},
			},
		},
		Exports: map[string]module.Export{
			"add":  {Kind: module.ExportFunction, Index: 0},
			"main": {Kind: module.ExportFunction, Index: 1},
		},
	}
}

func TestMainRepeatedly(t *testing.T) {
	m := addModule()

	for i := 0; i < 3; i++ {
		inst := newInstance(t, m, nil, Options{})

		start, ok := inst.StartFunc()
		require.True(t, ok)
		require.Equal(t, module.FuncIndex(1), start)

		results, err := inst.Start()
		require.NoError(t, err)
		require.Equal(t, []uint64{42}, results)

		results, err = inst.CallExport("add", 0xffffffff, 3)
		require.NoError(t, err)
		require.Equal(t, []uint64{2}, results)
	}
}

func TestStartFunc(t *testing.T) {
	m := addModule()
	m.Exports = nil

	inst := newInstance(t, m, nil, Options{})
	results, err := inst.Start()
	require.NoError(t, err)
	require.Nil(t, results)

	m = addModule()
	m.Functions = append(m.Functions, constResult(7))
	m.StartIndex = 2
	m.StartDefined = true

	inst = newInstance(t, m, nil, Options{})
	results, err = inst.Start()
	require.NoError(t, err)
	require.Equal(t, []uint64{7}, results)
}

func TestInvokeStartTrap(t *testing.T) {
	m := &module.Module{
		Functions:    []ir.Function{{Sig: sigVoid, Body: []ir.Instr{{Op: ir.Unreachable}}}},
		StartDefined: true,
	}

	inst, err := New(m, nil, Options{InvokeStart: true})
	require.ErrorIs(t, err, trap.Unreachable)
	require.Nil(t, inst)

	inst = newInstance(t, m, nil, Options{})
	_, err = inst.Start()
	require.ErrorIs(t, err, trap.Unreachable)
}

func TestGetFunctionPointer(t *testing.T) {
	hostAddr, err := trampoline.RegisterHost(&imports.Func{Params: 0, Results: 1})
	require.NoError(t, err)

	m := addModule()
	m.ImportFuncs = []module.Import{{Module: "env", Field: "f", Sig: sigI32}}
	m.Functions[1].Body[2].Index = 1
	m.Exports = nil

	var imp imports.Map
	imp.Set("env", "f", hostAddr)

	inst := newInstance(t, m, &imp, Options{})

	addr, err := inst.GetFunctionPointer(0)
	require.NoError(t, err)
	require.Equal(t, hostAddr, addr)

	add, err := inst.GetFunctionPointer(1)
	require.NoError(t, err)
	main, err := inst.GetFunctionPointer(2)
	require.NoError(t, err)
	require.NotEqual(t, add, main)
	require.True(t, inst.code.Value.arena.Contains(add, 1))

	_, err = inst.GetFunctionPointer(3)
	var linkErr *errors.LinkError
	require.ErrorAs(t, err, &linkErr)
}

func tableModule() *module.Module {
	return &module.Module{
		Functions: []ir.Function{
			constResult(100),
			constResult(101),
			constResult(102),
			{
				Sig: sigI32_I32,
				Body: []ir.Instr{
					{Op: ir.LocalGet, Index: 0},
					{Op: ir.CallIndirect, Index: 0, Sig: &sigI32},
				},
			},
		},
		Tables: []module.Table{{Size: 8}},
		Elements: []module.ElementSegment{{
			Offset:   2,
			Elements: []module.FuncIndex{0, 1, 2},
		}},
	}
}

func TestTable(t *testing.T) {
	inst := newInstance(t, tableModule(), nil, Options{})

	var expect []uintptr
	expect = append(expect, 0, 0)
	for i := module.FuncIndex(0); i < 3; i++ {
		addr, err := inst.GetFunctionPointer(i)
		require.NoError(t, err)
		expect = append(expect, addr)
	}
	expect = append(expect, 0, 0, 0)

	require.Equal(t, expect, inst.DataPointers().Table(0).Addrs())

	for i := uint64(2); i < 5; i++ {
		results, err := inst.Call(3, i)
		require.NoError(t, err)
		require.Equal(t, []uint64{98 + i}, results)
	}

	_, err := inst.Call(3, 0)
	require.ErrorIs(t, err, trap.NoFunction)

	_, err = inst.Call(3, 8)
	require.ErrorIs(t, err, trap.IndirectCallIndexOutOfBounds)
}

func TestTableInitFaults(t *testing.T) {
	m := tableModule()
	m.Elements[0].Offset = 6

	_, err := New(m, nil, Options{})
	require.ErrorIs(t, err, &errors.Fault{Kind: errors.FaultTableInit})

	m = tableModule()
	base := uint32(0)
	m.Elements[0].Base = &base

	_, err = New(m, nil, Options{})
	require.ErrorIs(t, err, &errors.Fault{Kind: errors.FaultTableInit})

	m = tableModule()
	m.Elements[0].Elements = []module.FuncIndex{4}

	_, err = New(m, nil, Options{})
	var linkErr *errors.LinkError
	require.ErrorAs(t, err, &linkErr)
	require.Equal(t, 4, linkErr.Func)
}

func importModule() *module.Module {
	return &module.Module{
		ImportFuncs: []module.Import{
			{Module: "env", Field: "missing", Sig: sigI32},
			{Module: "env", Field: "notify", Sig: sigI32_},
		},
		Functions: []ir.Function{{
			Sig: sigI32,
			Body: []ir.Instr{
				{Op: ir.I32Const, Imm: 5},
				{Op: ir.Call, Index: 1},
				{Op: ir.Call, Index: 0},
			},
		}},
	}
}

func TestMissingImport(t *testing.T) {
	_, err := New(importModule(), nil, Options{})

	var linkErr *errors.LinkError
	require.ErrorAs(t, err, &linkErr)
	require.Equal(t, "env.missing", linkErr.Name())
}

func TestMockMissingImports(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	var notified []uint64

	var imp imports.Map
	t.Cleanup(func() { require.NoError(t, imp.Close()) })
	require.NoError(t, imp.Func("env", "notify", &imports.Func{
		Params: 1,
		Call: func(c imports.Caller, args []uint64) (uint64, error) {
			notified = append(notified, args[0])
			return 0, nil
		},
	}))

	inst := newInstance(t, importModule(), &imp, Options{
		MockMissingImports: true,
		Logger:             zap.New(core),
	})

	addr, err := inst.GetFunctionPointer(0)
	require.NoError(t, err)
	mock, err := trampoline.MockAddr()
	require.NoError(t, err)
	require.Equal(t, mock, addr)

	results, err := inst.Call(2)
	require.NoError(t, err)
	require.Equal(t, []uint64{imports.MockValue}, results)
	require.Equal(t, []uint64{5}, notified)

	mocked := logs.FilterMessage("import is not provided, therefore will be mocked").All()
	require.Len(t, mocked, 1)
	require.Equal(t, "missing", mocked[0].ContextMap()["field"])
}

func TestImportSignatureMismatch(t *testing.T) {
	var imp imports.Map
	require.NoError(t, imp.Func("env", "notify", &imports.Func{Params: 2}))
	defer imp.Close()

	_, err := New(importModule(), &imp, Options{MockMissingImports: true})

	var linkErr *errors.LinkError
	require.ErrorAs(t, err, &linkErr)
	require.Equal(t, 1, linkErr.Func)
}

func memoryModule(maximum uint32) *module.Module {
	return &module.Module{
		Functions: []ir.Function{
			{
				Name: "grow",
				Sig:  sigI32_I32,
				Body: []ir.Instr{
					{Op: ir.LocalGet, Index: 0},
					{Op: ir.MemoryGrow},
				},
			},
			{
				Name: "size",
				Sig:  sigI32,
				Body: []ir.Instr{{Op: ir.MemorySize}},
			},
			{
				Name: "load",
				Sig:  sigI32_I32,
				Body: []ir.Instr{
					{Op: ir.LocalGet, Index: 0},
					{Op: ir.I32Load},
				},
			},
			{
				Name: "store",
				Sig:  sigI32I32_,
				Body: []ir.Instr{
					{Op: ir.LocalGet, Index: 0},
					{Op: ir.LocalGet, Index: 1},
					{Op: ir.I32Store},
				},
			},
		},
		Memories: []module.Memory{{InitialPages: 1, MaximumPages: maximum, HasMaximum: true}},
		Data:     []module.DataSegment{{Offset: 10, Bytes: []byte("hello")}},
	}
}

const (
	funcGrow = iota
	funcSize
	funcLoad
	funcStore
)

func TestGrowMemory(t *testing.T) {
	r := prometheus.NewRegistry()
	metr, err := metrics.New(r)
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)

	inst := newInstance(t, memoryModule(3), nil, Options{
		Logger:  zap.New(core),
		Metrics: metr,
	})
	require.Equal(t, uint64(memory.PageSize), inst.DefaultMemoryBound())

	before := inst.DataPointers()

	results, err := inst.Call(funcGrow, 2)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, results)

	results, err = inst.Call(funcSize)
	require.NoError(t, err)
	require.Equal(t, []uint64{3}, results)

	after := inst.DataPointers()
	require.NotSame(t, before, after)
	require.Equal(t, inst.Memories()[0].View(), after.Memory(0))
	require.Equal(t, uintptr(3*memory.PageSize), after.Memory(0).Len)
	require.Equal(t, uint64(3*memory.PageSize), inst.DefaultMemoryBound())

	b, err := inst.InspectMemory(0, 10, 5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))

	_, err = inst.Call(funcStore, 3*memory.PageSize-4, 0xcafe)
	require.NoError(t, err)

	results, err = inst.Call(funcGrow, 1)
	require.NoError(t, err)
	require.Equal(t, []uint64{0xffffffff}, results)
	require.Equal(t, uint32(3), inst.Memories()[0].CurrentSize())

	results, err = inst.Call(funcGrow, 0)
	require.NoError(t, err)
	require.Equal(t, []uint64{3}, results)

	prev, err := inst.GrowMemory(1, 0)
	require.NoError(t, err)
	require.Equal(t, int32(memory.GrowFailed), prev)

	_, err = inst.GrowMemory(1, 1)
	require.ErrorIs(t, err, &errors.Fault{Kind: errors.FaultMemoryIndex})

	require.Equal(t, 2, logs.FilterMessage("memory growth failed").Len())

	err = testutil.GatherAndCompare(r, strings.NewReader(`
# HELP wasmer_memory_grow_total number of memory grow requests
# TYPE wasmer_memory_grow_total counter
wasmer_memory_grow_total 4
# HELP wasmer_memory_grow_failures_total number of memory grow requests which returned -1
# TYPE wasmer_memory_grow_failures_total counter
wasmer_memory_grow_failures_total 2
`), "wasmer_memory_grow_total", "wasmer_memory_grow_failures_total")
	require.NoError(t, err)
}

func TestGrowMovesMemory(t *testing.T) {
	inst := newInstance(t, memoryModule(memory.MaxPages), nil, Options{})

	_, err := inst.Call(funcStore, 100, 0x12345678)
	require.NoError(t, err)

	oldBase := inst.DataPointers().Memory(0).Base

	results, err := inst.Call(funcGrow, 4)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, results)

	require.NotEqual(t, oldBase, inst.DataPointers().Memory(0).Base)

	results, err = inst.Call(funcLoad, 100)
	require.NoError(t, err)
	require.Equal(t, []uint64{0x12345678}, results)

	results, err = inst.Call(funcLoad, 5*memory.PageSize-4)
	require.NoError(t, err)
	require.Equal(t, []uint64{0}, results)

	_, err = inst.Call(funcLoad, 5*memory.PageSize-3)
	require.ErrorIs(t, err, trap.MemoryAccessOutOfBounds)
}

func TestMemoryMutRefresh(t *testing.T) {
	inst := newInstance(t, memoryModule(4), nil, Options{})

	mem, err := inst.MemoryMut(0)
	require.NoError(t, err)
	require.Equal(t, int32(1), mem.Grow(1))

	require.Equal(t, mem.View(), inst.DataPointers().Memory(0))

	results, err := inst.Call(funcLoad, 2*memory.PageSize-4)
	require.NoError(t, err)
	require.Equal(t, []uint64{0}, results)

	_, err = inst.MemoryMut(1)
	require.ErrorIs(t, err, &errors.Fault{Kind: errors.FaultMemoryIndex})
}

func TestImplicitMemory(t *testing.T) {
	m := memoryModule(0)
	m.Memories = nil
	m.Data = nil

	inst := newInstance(t, m, nil, Options{})
	require.Len(t, inst.Memories(), 1)
	require.Zero(t, inst.DefaultMemoryBound())

	results, err := inst.Call(funcGrow, 1)
	require.NoError(t, err)
	require.Equal(t, []uint64{0xffffffff}, results)

	_, err = inst.Call(funcLoad, 0)
	require.ErrorIs(t, err, trap.MemoryAccessOutOfBounds)
}

func TestDataSegmentFaults(t *testing.T) {
	m := memoryModule(1)
	m.Data[0].Offset = memory.PageSize - 4

	_, err := New(m, nil, Options{})
	require.ErrorIs(t, err, &errors.Fault{Kind: errors.FaultDataInit})

	m = memoryModule(1)
	base := uint32(0)
	m.Data[0].Base = &base

	_, err = New(m, nil, Options{})
	require.ErrorIs(t, err, &errors.Fault{Kind: errors.FaultDataInit})
}

func TestInspectMemory(t *testing.T) {
	inst := newInstance(t, memoryModule(1), nil, Options{})

	b, err := inst.InspectMemory(0, memory.PageSize, 0)
	require.NoError(t, err)
	require.Empty(t, b)

	for _, c := range []struct{ address, length uint64 }{
		{memory.PageSize, 1},
		{memory.PageSize - 1, 2},
		{math.MaxUint64, 2},
		{1, math.MaxUint64},
	} {
		_, err := inst.InspectMemory(0, c.address, c.length)
		require.ErrorIs(t, err, trap.MemoryAccessOutOfBounds, "%#x+%#x", c.address, c.length)
	}

	_, err = inst.InspectMemory(1, 0, 0)
	require.Error(t, err)
}

func globalModule() *module.Module {
	m := memoryModule(2)
	m.Globals = []module.Global{
		{Type: wasm.I32, Mutable: true, Init: module.GlobalInit{Kind: module.InitI32Const, Bits: 0xffffffff}},
		{Type: wasm.F64, Init: module.GlobalInit{Kind: module.InitF64Const, Bits: math.Float64bits(1.5)}},
	}
	m.Functions = append(m.Functions,
		ir.Function{
			Name: "set",
			Sig:  sigI32_,
			Body: []ir.Instr{
				{Op: ir.LocalGet, Index: 0},
				{Op: ir.GlobalSet, Index: 0},
			},
		},
		ir.Function{
			Name: "get",
			Sig:  sigI32,
			Body: []ir.Instr{{Op: ir.GlobalGet, Index: 0}},
		},
	)
	return m
}

const (
	funcSetGlobal = funcStore + 1 + iota
	funcGetGlobal
)

func TestGlobals(t *testing.T) {
	inst := newInstance(t, globalModule(), nil, Options{})

	g, err := inst.InspectGlobal(0)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), g)

	g, err = inst.InspectGlobal(1)
	require.NoError(t, err)
	require.Equal(t, 1.5, math.Float64frombits(g))

	results, err := inst.Call(funcGetGlobal)
	require.NoError(t, err)
	require.Equal(t, []uint64{0xffffffff}, results)

	_, err = inst.InspectGlobal(2)
	require.Error(t, err)

	m := globalModule()
	m.Globals[1].Init = module.GlobalInit{Kind: module.InitGlobalRef, Index: 0}

	_, err = New(m, nil, Options{})
	require.ErrorIs(t, err, &errors.Fault{Kind: errors.FaultGlobalInit})
}

func TestClone(t *testing.T) {
	inst := newInstance(t, globalModule(), nil, Options{})

	clone, err := inst.Clone()
	require.NoError(t, err)

	require.Same(t, inst.Memories()[0], clone.Memories()[0])
	require.NotSame(t, inst.DataPointers(), clone.DataPointers())
	require.Equal(t, inst.DataPointers().Memory(0), clone.DataPointers().Memory(0))
	require.NotEqual(t, inst.DataPointers().Globals, clone.DataPointers().Globals)
	require.Equal(t, inst.DefaultMemoryBound(), clone.DefaultMemoryBound())

	_, err = clone.Call(funcSetGlobal, 7)
	require.NoError(t, err)

	results, err := clone.Call(funcGetGlobal)
	require.NoError(t, err)
	require.Equal(t, []uint64{7}, results)

	results, err = inst.Call(funcGetGlobal)
	require.NoError(t, err)
	require.Equal(t, []uint64{0xffffffff}, results)

	results, err = clone.Call(funcLoad, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(binary.LittleEndian.Uint32([]byte("hell"))), results[0])

	_, err = inst.MemoryMut(0)
	require.ErrorIs(t, err, errors.ErrShared)
	_, err = clone.MemoryMut(0)
	require.ErrorIs(t, err, errors.ErrShared)

	_, err = clone.Call(funcGrow, 1)
	require.ErrorIs(t, err, errors.ErrShared)
	require.Equal(t, uint32(1), inst.Memories()[0].CurrentSize())

	_, err = inst.Call(funcStore, 0, 1)
	require.ErrorIs(t, err, trap.SharedMemoryWrite)

	require.NoError(t, clone.Close())
	require.NoError(t, clone.Close())

	_, err = clone.Call(funcGetGlobal)
	require.Error(t, err)

	_, err = inst.MemoryMut(0)
	require.NoError(t, err)

	results, err = inst.Call(funcGrow, 1)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, results)
}

func TestCloneAfterGrowth(t *testing.T) {
	inst := newInstance(t, memoryModule(4), nil, Options{})

	_, err := inst.Call(funcGrow, 2)
	require.NoError(t, err)

	clone, err := inst.Clone()
	require.NoError(t, err)
	defer clone.Close()

	require.Equal(t, uint64(3*memory.PageSize), clone.DefaultMemoryBound())
	require.Equal(t, inst.DataPointers().Memory(0), clone.DataPointers().Memory(0))
}

func TestClosedHandleCannotMutateClone(t *testing.T) {
	inst, err := New(globalModule(), nil, Options{})
	require.NoError(t, err)

	clone, err := inst.Clone()
	require.NoError(t, err)
	defer clone.Close()

	require.NoError(t, inst.Close())

	_, err = inst.GrowMemory(1, 0)
	require.ErrorIs(t, err, errClosed)
	_, err = inst.MemoryMut(0)
	require.ErrorIs(t, err, errClosed)
	_, err = inst.CurrentMemory(0)
	require.ErrorIs(t, err, errClosed)
	_, err = inst.InspectMemory(0, 0, 1)
	require.ErrorIs(t, err, errClosed)
	_, err = inst.GetFunctionPointer(0)
	require.ErrorIs(t, err, errClosed)
	require.Nil(t, inst.Memories())
	require.Nil(t, inst.DataPointers())

	require.Equal(t, uint32(1), clone.Memories()[0].CurrentSize())
	require.Equal(t, uint64(memory.PageSize), clone.DefaultMemoryBound())

	mem, err := clone.MemoryMut(0)
	require.NoError(t, err)
	require.Same(t, clone.Memories()[0], mem)

	results, err := clone.Call(funcGrow, 1)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, results)
}

func TestInspectGlobalAfterClose(t *testing.T) {
	m := globalModule()
	m.Globals = append(m.Globals, module.Global{
		Type: wasm.I64,
		Init: module.GlobalInit{Kind: module.InitI64Const, Bits: 1 << 40},
	})

	inst, err := New(m, nil, Options{})
	require.NoError(t, err)

	g, err := inst.InspectGlobal(2)
	require.NoError(t, err)
	require.Equal(t, uint64(1<<40), g)

	require.NoError(t, inst.Close())

	require.NotPanics(t, func() {
		_, err = inst.InspectGlobal(2)
	})
	require.ErrorIs(t, err, errClosed)
}

func TestLibCalls(t *testing.T) {
	var functions []ir.Function
	for _, op := range []ir.Op{ir.F32Ceil, ir.F32Floor, ir.F32Trunc, ir.F32Nearest} {
		functions = append(functions, ir.Function{
			Sig:  sigF32_F32,
			Body: []ir.Instr{{Op: ir.LocalGet}, {Op: op}},
		})
	}
	for _, op := range []ir.Op{ir.F64Ceil, ir.F64Floor, ir.F64Trunc, ir.F64Nearest} {
		functions = append(functions, ir.Function{
			Sig:  sigF64_F64,
			Body: []ir.Instr{{Op: ir.LocalGet}, {Op: op}},
		})
	}

	inst := newInstance(t, &module.Module{Functions: functions}, nil, Options{})

	for i, expect := range []float64{-2, -3, -2, -2} {
		results, err := inst.Call(module.FuncIndex(i), uint64(math.Float32bits(-2.5)))
		require.NoError(t, err)
		require.Equal(t, float32(expect), math.Float32frombits(uint32(results[0])), "f32 function %d", i)
	}

	for i, expect := range []float64{4, 3, 3, 4} {
		results, err := inst.Call(module.FuncIndex(4+i), math.Float64bits(3.5))
		require.NoError(t, err)
		require.Equal(t, expect, math.Float64frombits(results[0]), "f64 function %d", i)
	}
}

func TestCallErrors(t *testing.T) {
	inst := newInstance(t, addModule(), nil, Options{})

	_, err := inst.Call(0, 1)
	require.Error(t, err)

	_, err = inst.Call(5)
	require.Error(t, err)

	_, err = inst.CallExport("nonexistent")
	require.Error(t, err)
}

func TestCallStackExhausted(t *testing.T) {
	m := &module.Module{
		Functions: []ir.Function{{
			Sig:  sigVoid,
			Body: []ir.Instr{{Op: ir.Call, Index: 0}},
		}},
	}

	inst := newInstance(t, m, nil, Options{MaxCallDepth: 100})
	_, err := inst.Call(0)
	require.ErrorIs(t, err, trap.CallStackExhausted)
}

func TestCompileError(t *testing.T) {
	r := prometheus.NewRegistry()
	metr, err := metrics.New(r)
	require.NoError(t, err)

	m := addModule()
	m.Functions[1].Body = m.Functions[1].Body[:2]

	for i := 0; i < 2; i++ {
		_, err = New(m, nil, Options{Metrics: metr, CompileWorkers: 1 + i})

		var compileErr *errors.CompileError
		require.ErrorAs(t, err, &compileErr)
		require.Equal(t, 1, compileErr.Func)
	}

	_, err = New(addModule(), nil, Options{Metrics: metr, MaxFunctionSize: 8})
	require.ErrorContains(t, err, "size limit")

	_, err = New(addModule(), nil, Options{Metrics: metr})
	require.NoError(t, err)

	err = testutil.GatherAndCompare(r, strings.NewReader(`
# HELP wasmer_instantiations_total number of successful instantiations
# TYPE wasmer_instantiations_total counter
wasmer_instantiations_total 1
# HELP wasmer_instantiation_failures_total number of failed instantiations
# TYPE wasmer_instantiation_failures_total counter
wasmer_instantiation_failures_total 3
`), "wasmer_instantiations_total", "wasmer_instantiation_failures_total")
	require.NoError(t, err)
}

func TestUnknownTarget(t *testing.T) {
	_, err := New(addModule(), nil, Options{Target: "sparc"})
	require.ErrorContains(t, err, "sparc")
}

func TestNativeTarget(t *testing.T) {
	m := &module.Module{
		ImportFuncs: []module.Import{{Module: "env", Field: "f", Sig: sigI32_I32}},
		Functions: []ir.Function{
			{
				Sig: sigI32_I32,
				Body: []ir.Instr{
					{Op: ir.LocalGet, Index: 0},
					{Op: ir.Call, Index: 0},
				},
			},
			{
				Sig: sigI32,
				Body: []ir.Instr{
					{Op: ir.I32Const, Imm: 5},
					{Op: ir.Call, Index: 1},
				},
			},
		},
	}

	inst := newInstance(t, m, nil, Options{Target: "amd64", MockMissingImports: true})

	target, found := isa.Lookup("amd64")
	require.True(t, found)

	c := inst.code.Value
	require.True(t, c.arena.Native())
	require.True(t, c.arena.Sealed())

	for local := range m.Functions {
		index := m.FuncIndexOf(module.LocalFuncIndex(local))

		out, err := target.Compile(&isa.Env{Module: m}, index, &m.Functions[local])
		require.NoError(t, err)

		code := c.arena.Code(c.functions[local])
		site := c.arena.Addr(c.functions[local])

		for _, reloc := range out.Relocs {
			var expect uintptr
			if reloc.Target.Kind == link.TargetFunc {
				expect, err = inst.GetFunctionPointer(reloc.Target.Func)
				require.NoError(t, err)
			} else {
				expect, found = trampoline.RuntimeAddr(reloc.Target)
				require.True(t, found)
			}

			switch reloc.Kind {
			case link.Abs8:
				require.Equal(t, uint64(expect), binary.LittleEndian.Uint64(code[reloc.Offset:]), reloc.String())

			case link.X86PCRel4:
				disp := int32(binary.LittleEndian.Uint32(code[reloc.Offset:]))
				patch := site + uintptr(reloc.Offset)
				require.Equal(t, expect, uintptr(int64(patch)+int64(disp)-reloc.Addend), reloc.String())
			}
		}
	}

	_, err := inst.Call(1)
	require.ErrorIs(t, err, &errors.Fault{Kind: errors.FaultUnsupported})
}

func TestDumpText(t *testing.T) {
	inst := newInstance(t, addModule(), nil, Options{})

	var buf bytes.Buffer
	require.NoError(t, inst.DumpText(&buf))

	text := buf.String()
	require.Contains(t, text, "\nadd:\n")
	require.Contains(t, text, "\nmain:\n")

	add, err := inst.GetFunctionPointer(0)
	require.NoError(t, err)
	require.Contains(t, text, fmt.Sprintf("call           2 1 %#x", add))
}

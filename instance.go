// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmer

import (
	"context"
	"time"

	"github.com/akegalj/wasmer/abi"
	"github.com/akegalj/wasmer/errors"
	"github.com/akegalj/wasmer/imports"
	"github.com/akegalj/wasmer/internal/arena"
	"github.com/akegalj/wasmer/internal/initexpr"
	"github.com/akegalj/wasmer/internal/isa"
	_ "github.com/akegalj/wasmer/internal/isa/amd64"
	_ "github.com/akegalj/wasmer/internal/isa/portable"
	"github.com/akegalj/wasmer/internal/shared"
	"github.com/akegalj/wasmer/internal/trampoline"
	"github.com/akegalj/wasmer/link"
	"github.com/akegalj/wasmer/memory"
	"github.com/akegalj/wasmer/module"
	"github.com/akegalj/wasmer/table"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// code is the linked program.  It is immutable after sealing, so all clones
// refer to the same value.
type code struct {
	arena     *arena.Arena
	functions []arena.CodeBuffer
	imports   []uintptr
	entries   map[uintptr]module.LocalFuncIndex
}

func (c *code) close() error {
	return c.arena.Close()
}

// Instance of a module.  An Instance is not safe for concurrent use, but
// clones may be used on different goroutines as long as they don't mutate
// shared memory.
type Instance struct {
	module *module.Module
	opts   Options
	target isa.Target

	code     *shared.Ref[*code]
	tables   *shared.Ref[[]*table.Table]
	memories *shared.Ref[[]*memory.Memory]
	globals  []byte

	data               atomic.Pointer[abi.DataPointers]
	defaultMemoryBound uint64

	startFunc module.FuncIndex
	hasStart  bool
	closed    bool
}

// New instantiates a module.  Imported functions are resolved via imp, which
// may be nil if the module has no imports or opts.MockMissingImports is set.
//
// Nothing is returned on error; all partially constructed resources are
// released.
func New(m *module.Module, imp imports.Object, opts Options) (inst *Instance, err error) {
	opts, err = opts.effective()
	if err != nil {
		return
	}

	defer func() {
		opts.Metrics.Instantiated(err)
	}()

	if err = m.Validate(); err != nil {
		return
	}

	target, _ := isa.Lookup(opts.Target)
	logger := opts.Logger.With(zap.String("target", target.Name()))

	inst = &Instance{
		module: m,
		opts:   opts,
		target: target,
	}
	defer func() {
		if err != nil {
			inst.Close()
			inst = nil
		}
	}()

	logger.Debug("binding imports", zap.Int("count", m.NumImportFuncs()))

	importFuncs, err := imports.Bind(m, imp, opts.MockMissingImports, logger)
	if err != nil {
		return
	}

	logger.Debug("instantiating functions", zap.Int("count", len(m.Functions)))

	c, err := buildCode(m, target, importFuncs, opts, logger)
	if err != nil {
		return
	}
	inst.code = shared.New(c, (*code).close)

	logger.Debug("instantiating tables", zap.Int("count", len(m.Tables)))

	tables, err := inst.newTables()
	if err != nil {
		return
	}
	inst.tables = shared.New(tables, nil)

	logger.Debug("instantiating memories", zap.Int("count", len(m.Memories)))

	mems, err := newMemories(m)
	inst.memories = shared.New(mems, closeMemories)
	if err != nil {
		return
	}

	logger.Debug("instantiating globals", zap.Int("count", len(m.Globals)))

	inst.globals, err = initexpr.Globals(m.Globals)
	if err != nil {
		return
	}

	inst.startFunc, inst.hasStart = startFunc(m)
	inst.defaultMemoryBound = uint64(len(mems[0].Bytes()))
	inst.publish()

	if opts.InvokeStart && inst.hasStart {
		logger.Debug("invoking start function", zap.Uint32("index", uint32(inst.startFunc)))

		if _, err = inst.Start(); err != nil {
			return
		}
	}

	return
}

func buildCode(m *module.Module, target isa.Target, importFuncs []uintptr, opts Options, logger *zap.Logger) (c *code, err error) {
	t0 := time.Now()

	outputs, err := compileFunctions(m, target, opts)
	if err != nil {
		return
	}

	opts.Metrics.Compiled(len(outputs), time.Since(t0))

	codeLens := make([]int, len(outputs))
	numRelocs := 0
	for i, out := range outputs {
		codeLens[i] = len(out.Code)
		numRelocs += len(out.Relocs)
	}

	a, err := arena.New(arena.Size(codeLens), target.Native())
	if err != nil {
		return
	}

	c = &code{
		arena:     a,
		functions: make([]arena.CodeBuffer, len(outputs)),
		imports:   importFuncs,
		entries:   make(map[uintptr]module.LocalFuncIndex, len(outputs)),
	}
	defer func() {
		if err != nil {
			c.close()
			c = nil
		}
	}()

	for i, out := range outputs {
		if c.functions[i], err = a.Alloc(out.Code); err != nil {
			return
		}
		c.entries[a.Addr(c.functions[i])] = module.LocalFuncIndex(i)
	}

	logger.Debug("relocating functions", zap.Int("relocations", numRelocs))

	if err = a.BeginPatching(); err != nil {
		return
	}

	relocs := make([]link.Relocation, 0, numRelocs)
	for _, out := range outputs {
		relocs = append(relocs, out.Relocs...)
	}

	if err = link.Link(a, &resolver{m, c}, relocs); err != nil {
		return
	}

	opts.Metrics.Relocated(len(relocs))

	err = a.Seal()
	return
}

// compileFunctions concurrently.  The first error stops the functions which
// haven't been started yet.
func compileFunctions(m *module.Module, target isa.Target, opts Options) ([]isa.Output, error) {
	env := &isa.Env{
		Module:          m,
		MaxFunctionSize: opts.MaxFunctionSize,
	}

	outputs := make([]isa.Output, len(m.Functions))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(opts.CompileWorkers)

	for i := range m.Functions {
		i := i

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			out, err := target.Compile(env, m.FuncIndexOf(module.LocalFuncIndex(i)), &m.Functions[i])
			if err != nil {
				return err
			}

			outputs[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// resolver implements the function index space rule for linking.
type resolver struct {
	module *module.Module
	code   *code
}

func (r *resolver) FuncAddr(i module.FuncIndex) (uintptr, bool) {
	return r.code.funcAddr(r.module, i)
}

func (r *resolver) RuntimeAddr(t link.Target) (uintptr, bool) {
	return trampoline.RuntimeAddr(t)
}

func (c *code) funcAddr(m *module.Module, i module.FuncIndex) (uintptr, bool) {
	if m.IsImport(i) {
		return c.imports[i], true
	}
	if local, ok := m.LocalIndex(i); ok {
		return c.arena.Addr(c.functions[local]), true
	}
	return 0, false
}

func (inst *Instance) newTables() ([]*table.Table, error) {
	m := inst.module
	c := inst.code.Value

	tables := make([]*table.Table, len(m.Tables))
	for i, t := range m.Tables {
		tables[i] = table.New(t.Size)
	}

	for i, seg := range m.Elements {
		if seg.Base != nil {
			return nil, errors.Faultf(errors.FaultTableInit, i, "element segment offset global is not supported")
		}

		addrs := make([]uintptr, len(seg.Elements))
		for j, index := range seg.Elements {
			addr, found := c.funcAddr(m, index)
			if !found {
				return nil, errors.LinkErrorf(int(index), "element segment %d refers to unknown function %d", i, index)
			}
			addrs[j] = addr
		}

		if err := tables[seg.TableIndex].Init(seg.Offset, addrs); err != nil {
			return nil, err
		}
	}

	return tables, nil
}

// newMemories allocates the declared memory, or an empty memory which can't
// grow if none is declared.  The returned slice is valid also on error.
func newMemories(m *module.Module) ([]*memory.Memory, error) {
	var mems []*memory.Memory

	for _, desc := range m.Memories {
		mem, err := memory.New(desc.InitialPages, desc.MaximumPages, desc.HasMaximum)
		if err != nil {
			return mems, err
		}
		mems = append(mems, mem)
	}

	if len(mems) == 0 {
		mem, err := memory.New(0, 0, true)
		if err != nil {
			return mems, err
		}
		mems = append(mems, mem)
	}

	for i, seg := range m.Data {
		if seg.Base != nil {
			return mems, errors.Faultf(errors.FaultDataInit, i, "data segment offset global is not supported")
		}

		b := mems[seg.MemoryIndex].Bytes()
		if uint64(seg.Offset)+uint64(len(seg.Bytes)) > uint64(len(b)) {
			return mems, errors.Faultf(errors.FaultDataInit, i, "%d bytes at offset %d exceed memory size %d", len(seg.Bytes), seg.Offset, len(b))
		}
		copy(b[seg.Offset:], seg.Bytes)
	}

	return mems, nil
}

func closeMemories(mems []*memory.Memory) (err error) {
	for _, mem := range mems {
		if e := mem.Close(); err == nil {
			err = e
		}
	}
	return
}

// startFunc is the declared start function, or the function exported as
// "main".
func startFunc(m *module.Module) (module.FuncIndex, bool) {
	if m.StartDefined {
		return m.StartIndex, true
	}
	return m.ExportedFunc("main")
}

// Module which was instantiated.
func (inst *Instance) Module() *module.Module {
	return inst.module
}

// GetFunctionPointer returns the entry address of an imported or local
// function.
func (inst *Instance) GetFunctionPointer(i module.FuncIndex) (uintptr, error) {
	if inst.closed {
		return 0, errClosed
	}
	addr, found := inst.code.Value.funcAddr(inst.module, i)
	if !found {
		return 0, errors.LinkErrorf(int(i), "function index %d is out of range", i)
	}
	return addr, nil
}

// MemoryMut returns a memory for modification.  It fails with
// errors.ErrShared if another Instance handle refers to the memory.
// DataPointers are refreshed automatically if the memory is grown directly.
func (inst *Instance) MemoryMut(index int) (*memory.Memory, error) {
	if inst.closed {
		return nil, errClosed
	}
	if index < 0 || index >= len(inst.memories.Value) {
		return nil, errors.Faultf(errors.FaultMemoryIndex, index, "memory index out of range")
	}
	if err := inst.memories.Exclusive(); err != nil {
		return nil, err
	}
	return inst.memories.Value[index], nil
}

// Memories of the instance.  They must not be modified; see MemoryMut.  A
// closed handle has none.
func (inst *Instance) Memories() []*memory.Memory {
	if inst.closed {
		return nil
	}
	return inst.memories.Value
}

// InspectMemory returns a view of length bytes at address.  The slice is
// invalidated by memory growth.
func (inst *Instance) InspectMemory(index int, address, length uint64) ([]byte, error) {
	if inst.closed {
		return nil, errClosed
	}
	if index < 0 || index >= len(inst.memories.Value) {
		return nil, errors.Faultf(errors.FaultMemoryIndex, index, "memory index out of range")
	}

	b := inst.memories.Value[index].Bytes()
	if address > uint64(len(b)) || length > uint64(len(b))-address {
		return nil, outOfBounds(index, address, length)
	}
	return b[address : address+length : address+length], nil
}

// InspectGlobal returns the raw bits of a global.  32-bit integers are
// sign-extended; 32-bit floats occupy the low half.
func (inst *Instance) InspectGlobal(index int) (uint64, error) {
	if inst.closed {
		return 0, errClosed
	}
	if index < 0 || index >= len(inst.module.Globals) {
		return 0, errors.Faultf(errors.FaultModule, index, "global index out of range")
	}
	return *inst.DataPointers().Global(index), nil
}

// Clone returns a new handle which shares memories, tables and code with
// this one, and has its own copy of the globals.
func (inst *Instance) Clone() (*Instance, error) {
	if inst.closed {
		return nil, errClosed
	}

	clone := &Instance{
		module:    inst.module,
		opts:      inst.opts,
		target:    inst.target,
		code:      inst.code.Clone(),
		tables:    inst.tables.Clone(),
		memories:  inst.memories.Clone(),
		globals:   append([]byte(nil), inst.globals...),
		startFunc: inst.startFunc,
		hasStart:  inst.hasStart,
	}

	clone.defaultMemoryBound = uint64(len(clone.memories.Value[0].Bytes()))
	clone.publish()

	inst.opts.Logger.Debug("instance cloned", zap.Int("references", clone.memories.Count()))
	return clone, nil
}

// Close releases this handle.  Shared buffers are released with the last
// handle.
func (inst *Instance) Close() (err error) {
	if inst.closed {
		return nil
	}
	inst.closed = true
	inst.data.Store(nil)

	if inst.memories != nil {
		if e := inst.memories.Release(); err == nil {
			err = e
		}
	}
	if inst.tables != nil {
		if e := inst.tables.Release(); err == nil {
			err = e
		}
	}
	if inst.code != nil {
		if e := inst.code.Release(); err == nil {
			err = e
		}
	}
	return
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmer

import (
	"github.com/akegalj/wasmer/abi"
	"github.com/akegalj/wasmer/errors"
	"github.com/akegalj/wasmer/imports"
	"github.com/akegalj/wasmer/internal/libcall"
	"github.com/akegalj/wasmer/internal/trampoline"
	"github.com/akegalj/wasmer/internal/vm"
	"github.com/akegalj/wasmer/memory"
	"go.uber.org/zap"
)

// GrowMemory is the memory.grow entry point.  The previous size in pages is
// returned, or -1 if the memory can't grow.  Only the default memory is
// supported.  The memory must not be shared with another Instance handle.
//
// DataPointers are republished before return.
func (inst *Instance) GrowMemory(pages uint32, index int) (int32, error) {
	if inst.closed {
		return 0, errClosed
	}
	if index != 0 || len(inst.memories.Value) == 0 {
		return 0, errors.Faultf(errors.FaultMemoryIndex, index, "only the default memory can grow")
	}
	if err := inst.memories.Exclusive(); err != nil {
		return 0, err
	}

	mem := inst.memories.Value[0]
	prev := mem.Grow(pages)

	inst.opts.Metrics.MemoryGrown(prev != memory.GrowFailed)

	if prev == memory.GrowFailed {
		inst.opts.Logger.Info("memory growth failed",
			zap.Uint32("current", mem.CurrentSize()),
			zap.Uint32("additional", pages),
			zap.Uint32("limit", mem.Limit()))
	}

	inst.defaultMemoryBound = uint64(mem.CurrentSize()) * memory.PageSize
	inst.publish()

	return prev, nil
}

// CurrentMemory is the memory.size entry point.
func (inst *Instance) CurrentMemory(index int) (uint32, error) {
	if inst.closed {
		return 0, errClosed
	}
	if index < 0 || index >= len(inst.memories.Value) {
		return 0, errors.Faultf(errors.FaultMemoryIndex, index, "memory index out of range")
	}
	return inst.memories.Value[index].CurrentSize(), nil
}

// machineEnv connects the interpreter to an instance.
type machineEnv struct {
	inst *Instance
}

func (env machineEnv) Code(addr uintptr) ([]byte, bool, error) {
	c := env.inst.code.Value

	local, found := c.entries[addr]
	if !found {
		return nil, false, nil
	}
	if !c.arena.Sealed() {
		return nil, true, vm.ErrNotSealed
	}
	return c.arena.Code(c.functions[local]), true, nil
}

func (env machineEnv) Data() *abi.DataPointers {
	return env.inst.DataPointers()
}

func (env machineEnv) CheckWrite(int) error {
	return env.inst.memories.Exclusive()
}

func (env machineEnv) Runtime(e trampoline.Entry, args []uint64) (uint64, error) {
	inst := env.inst

	switch e.Kind {
	case trampoline.KindGrowMemory:
		prev, err := inst.GrowMemory(uint32(args[0]), int(uint32(args[1])))
		return uint64(uint32(prev)), err

	case trampoline.KindCurrentMemory:
		pages, err := inst.CurrentMemory(int(uint32(args[0])))
		return uint64(pages), err

	case trampoline.KindLibCall:
		if result, ok := libcall.Call(e.LibCall, args[0]); ok {
			return result, nil
		}

	case trampoline.KindMock:
		return imports.MockValue, nil

	case trampoline.KindHost:
		if f, ok := e.Host.(*imports.Func); ok {
			return f.Call(inst, args)
		}
	}

	return 0, errors.Faultf(errors.FaultUnsupported, -1, "runtime entry point kind %d cannot be called", e.Kind)
}

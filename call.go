// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmer

import (
	"github.com/akegalj/wasmer/errors"
	"github.com/akegalj/wasmer/internal/vm"
	"github.com/akegalj/wasmer/module"
	"github.com/akegalj/wasmer/trap"
	"github.com/akegalj/wasmer/wasm"
	pkgerrors "github.com/pkg/errors"
)

var errClosed = pkgerrors.New("instance is closed")

func outOfBounds(index int, address, length uint64) error {
	return pkgerrors.Wrapf(trap.MemoryAccessOutOfBounds, "memory %d: %d bytes at address %#x", index, length, address)
}

// StartFunc returns the declared start function, or the function exported as
// "main" if there is no declared start function.
func (inst *Instance) StartFunc() (module.FuncIndex, bool) {
	return inst.startFunc, inst.hasStart
}

// Start invokes the start function.  Nothing is done if there is none.
func (inst *Instance) Start() ([]uint64, error) {
	if !inst.hasStart {
		return nil, nil
	}
	return inst.Call(inst.startFunc)
}

// CallExport invokes an exported function by name.
func (inst *Instance) CallExport(name string, args ...uint64) ([]uint64, error) {
	index, found := inst.module.ExportedFunc(name)
	if !found {
		return nil, pkgerrors.Errorf("function %q is not exported", name)
	}
	return inst.Call(index, args...)
}

// Call a function on the calling goroutine.  Arguments and results are raw
// bits: 32-bit values occupy the low half.  A trap is returned as a
// trap.ID error (possibly wrapped).
func (inst *Instance) Call(index module.FuncIndex, args ...uint64) ([]uint64, error) {
	if inst.closed {
		return nil, errClosed
	}
	if inst.target.Native() {
		return nil, errors.Faultf(errors.FaultUnsupported, int(index), "%s code cannot be invoked in-process", inst.target.Name())
	}

	sig, found := inst.module.FuncSig(index)
	if !found {
		return nil, errors.LinkErrorf(int(index), "function index %d is out of range", index)
	}
	if len(args) != len(sig.Params) {
		return nil, pkgerrors.Errorf("function %d takes %d arguments, got %d", index, len(sig.Params), len(args))
	}

	addr, err := inst.GetFunctionPointer(index)
	if err != nil {
		return nil, err
	}

	results, err := vm.New(machineEnv{inst}, inst.opts.MaxCallDepth).Call(addr, args, len(sig.Results))
	if err != nil {
		return nil, err
	}

	for i, t := range sig.Results {
		if t.Size() == wasm.Size32 {
			results[i] = uint64(uint32(results[i]))
		}
	}
	return results, nil
}

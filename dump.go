// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmer

import (
	"fmt"
	"io"

	"github.com/akegalj/wasmer/debug/dump"
	"github.com/akegalj/wasmer/internal/isa/portable"
	"github.com/akegalj/wasmer/internal/trampoline"
	"github.com/akegalj/wasmer/link"
	"github.com/akegalj/wasmer/module"
)

// FuncName for listings.
func (inst *Instance) FuncName(i module.FuncIndex) string {
	m := inst.module

	if m.IsImport(i) {
		imp := m.ImportFuncs[i]
		return imp.Module + "." + imp.Field
	}
	if local, ok := m.LocalIndex(i); ok {
		if name := m.Functions[local].Name; name != "" {
			return name
		}
	}
	return fmt.Sprintf("func%d", i)
}

// DumpText writes a listing of the linked code.  Native code listings
// require the capstone build tag; dump.ErrUnavailable is returned without it.
func (inst *Instance) DumpText(w io.Writer) error {
	if inst.closed {
		return errClosed
	}

	c := inst.code.Value
	m := inst.module

	if !inst.target.Native() {
		for local, cb := range c.functions {
			i := m.FuncIndexOf(module.LocalFuncIndex(local))
			if _, err := fmt.Fprintf(w, "\n%s:\n", inst.FuncName(i)); err != nil {
				return err
			}
			if err := portable.Disassemble(w, c.arena.Code(cb), c.arena.Addr(cb)); err != nil {
				return err
			}
		}
		return nil
	}

	funcs := make([]dump.Func, len(c.functions))
	for local, cb := range c.functions {
		funcs[local] = dump.Func{
			Name: inst.FuncName(m.FuncIndexOf(module.LocalFuncIndex(local))),
			Addr: c.arena.Addr(cb),
			Code: c.arena.Code(cb),
		}
	}

	return dump.Text(w, funcs, inst.targetNames())
}

// targetNames maps call target addresses to names.
func (inst *Instance) targetNames() map[uintptr]string {
	names := make(map[uintptr]string)

	for i := 0; i < inst.module.NumFuncs(); i++ {
		if addr, found := inst.code.Value.funcAddr(inst.module, module.FuncIndex(i)); found {
			names[addr] = inst.FuncName(module.FuncIndex(i))
		}
	}

	runtime := []link.Target{link.GrowMemory, link.CurrentMemory}
	for lc := link.LibCall(0); lc < link.NumLibCalls; lc++ {
		runtime = append(runtime, link.LibCallTarget(lc))
	}
	for _, t := range runtime {
		if addr, found := trampoline.RuntimeAddr(t); found {
			names[addr] = t.String()
		}
	}

	if addr, err := trampoline.MockAddr(); err == nil {
		names[addr] = "mock"
	}
	return names
}

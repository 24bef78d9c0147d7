// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package link resolves relocations recorded during compilation.
package link

import (
	"math"

	"github.com/akegalj/wasmer/errors"
	"github.com/akegalj/wasmer/module"
)

// Resolver maps relocation targets to addresses.
type Resolver interface {
	// FuncAddr resolves an index of the module-wide function index space.
	FuncAddr(module.FuncIndex) (uintptr, bool)

	// RuntimeAddr resolves an intrinsic or a libcall.
	RuntimeAddr(Target) (uintptr, bool)
}

// Patcher writes into code which has not been sealed yet.  The writes must
// be bounds-checked.
type Patcher interface {
	PutUint64(addr uintptr, value uint64) error
	PutUint32(addr uintptr, value uint32) error
}

// Link applies all relocations.  It stops at the first error; the patched
// code must then be discarded.
func Link(p Patcher, r Resolver, relocs []Relocation) error {
	for _, reloc := range relocs {
		if err := apply(p, r, reloc); err != nil {
			return err
		}
	}
	return nil
}

func apply(p Patcher, r Resolver, reloc Relocation) error {
	funcAddr, ok := r.FuncAddr(reloc.Func)
	if !ok {
		return errors.LinkErrorf(int(reloc.Func), "relocation in unknown function %d", reloc.Func)
	}
	site := funcAddr + uintptr(reloc.Offset)

	var target uintptr

	switch reloc.Target.Kind {
	case TargetFunc:
		target, ok = r.FuncAddr(reloc.Target.Func)
		if !ok {
			return errors.LinkErrorf(int(reloc.Func), "call target function %d is out of range", reloc.Target.Func)
		}

	case TargetGrowMemory, TargetCurrentMemory, TargetLibCall:
		target, ok = r.RuntimeAddr(reloc.Target)
		if !ok {
			return errors.Faultf(errors.FaultRelocation, int(reloc.Func), "unknown relocation target: %s", reloc.Target)
		}

	default:
		return errors.Faultf(errors.FaultRelocation, int(reloc.Func), "unknown relocation target: %s", reloc.Target)
	}

	var err error

	switch reloc.Kind {
	case Abs8:
		err = p.PutUint64(site, uint64(int64(target)+reloc.Addend))

	case X86PCRel4:
		disp := int64(target) - int64(site) + reloc.Addend
		if disp < math.MinInt32 || disp > math.MaxInt32 {
			return errors.LinkErrorf(int(reloc.Func), "displacement %#x to %s does not fit in 32 bits", disp, reloc.Target)
		}
		err = p.PutUint32(site, uint32(int32(disp)))

	default:
		return errors.Faultf(errors.FaultRelocation, int(reloc.Func), "unknown relocation kind: %s", reloc.Kind)
	}

	if err != nil {
		return &errors.Fault{
			Kind:  errors.FaultRelocation,
			Index: int(reloc.Func),
			Msg:   reloc.String(),
			Cause: err,
		}
	}
	return nil
}

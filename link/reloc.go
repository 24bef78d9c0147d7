// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package link

import (
	"fmt"

	"github.com/akegalj/wasmer/module"
)

// Kind of patch.
type Kind uint8

const (
	Abs8      Kind = iota // 8-byte little-endian absolute address.
	X86PCRel4             // 4-byte little-endian displacement from the patch site.
)

func (k Kind) String() string {
	switch k {
	case Abs8:
		return "Abs8"

	case X86PCRel4:
		return "X86PCRel4"

	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

type TargetKind uint8

const (
	TargetFunc TargetKind = iota
	TargetGrowMemory
	TargetCurrentMemory
	TargetLibCall
)

// LibCall identifies a float rounding routine provided by the runtime.
type LibCall uint8

const (
	CeilF32 LibCall = iota
	FloorF32
	TruncF32
	NearestF32
	CeilF64
	FloorF64
	TruncF64
	NearestF64

	NumLibCalls
)

var libCallNames = [NumLibCalls]string{
	CeilF32:    "ceilf32",
	FloorF32:   "floorf32",
	TruncF32:   "truncf32",
	NearestF32: "nearestf32",
	CeilF64:    "ceilf64",
	FloorF64:   "floorf64",
	TruncF64:   "truncf64",
	NearestF64: "nearestf64",
}

func (lc LibCall) String() string {
	if lc < NumLibCalls {
		return libCallNames[lc]
	}
	return fmt.Sprintf("LibCall(%d)", lc)
}

// Target of a relocation.  Func is meaningful for TargetFunc and LibCall for
// TargetLibCall.
type Target struct {
	Kind    TargetKind
	Func    module.FuncIndex
	LibCall LibCall
}

func FuncTarget(index module.FuncIndex) Target { return Target{Kind: TargetFunc, Func: index} }
func LibCallTarget(lc LibCall) Target          { return Target{Kind: TargetLibCall, LibCall: lc} }

var (
	GrowMemory    = Target{Kind: TargetGrowMemory}
	CurrentMemory = Target{Kind: TargetCurrentMemory}
)

func (t Target) String() string {
	switch t.Kind {
	case TargetFunc:
		return fmt.Sprintf("func %d", t.Func)

	case TargetGrowMemory:
		return "grow_memory"

	case TargetCurrentMemory:
		return "current_memory"

	case TargetLibCall:
		return t.LibCall.String()

	default:
		return fmt.Sprintf("target kind %d", t.Kind)
	}
}

// Relocation is a pending patch of the code of function Func at byte Offset.
// It is recorded during compilation and applied by Link.
type Relocation struct {
	Func   module.FuncIndex
	Offset uint32
	Addend int64
	Target Target
	Kind   Kind
}

func (r Relocation) String() string {
	return fmt.Sprintf("%s func %d+%#x -> %s%+d", r.Kind, r.Func, r.Offset, r.Target, r.Addend)
}

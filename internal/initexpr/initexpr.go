// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package initexpr evaluates constant global initializers.
package initexpr

import (
	"encoding/binary"

	"github.com/akegalj/wasmer/abi"
	"github.com/akegalj/wasmer/errors"
	"github.com/akegalj/wasmer/module"
	"github.com/akegalj/wasmer/wasm"
)

var initTypes = map[module.InitKind]wasm.Type{
	module.InitI32Const: wasm.I32,
	module.InitI64Const: wasm.I64,
	module.InitF32Const: wasm.F32,
	module.InitF64Const: wasm.F64,
}

// Value of an initializer as a global slot.  32-bit integers are
// sign-extended and 32-bit floats are zero-extended bit patterns.
func Value(index int, g module.Global) (uint64, error) {
	switch g.Init.Kind {
	case module.InitGlobalRef:
		return 0, errors.Faultf(errors.FaultGlobalInit, index, "initializer refers to global %d", g.Init.Index)

	case module.InitImport:
		return 0, errors.Faultf(errors.FaultGlobalInit, index, "imported global initializer")
	}

	t, found := initTypes[g.Init.Kind]
	if !found {
		return 0, errors.Faultf(errors.FaultGlobalInit, index, "unknown initializer kind %d", g.Init.Kind)
	}
	if t != g.Type {
		return 0, errors.Faultf(errors.FaultGlobalInit, index, "%s initializer for %s global", t, g.Type)
	}

	switch t {
	case wasm.I32:
		return uint64(int64(int32(uint32(g.Init.Bits)))), nil

	case wasm.F32:
		return uint64(uint32(g.Init.Bits)), nil

	default:
		return g.Init.Bits, nil
	}
}

// Globals evaluates all initializers into consecutive little-endian slots.
func Globals(globals []module.Global) ([]byte, error) {
	data := make([]byte, len(globals)*abi.GlobalSize)

	for i, g := range globals {
		value, err := Value(i, g)
		if err != nil {
			return nil, err
		}
		binary.LittleEndian.PutUint64(data[i*abi.GlobalSize:], value)
	}

	return data, nil
}

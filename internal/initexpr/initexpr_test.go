// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package initexpr

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/akegalj/wasmer/errors"
	"github.com/akegalj/wasmer/module"
	"github.com/akegalj/wasmer/wasm"
	"github.com/stretchr/testify/require"
)

func global(t wasm.Type, kind module.InitKind, bits uint64) module.Global {
	return module.Global{Type: t, Init: module.GlobalInit{Kind: kind, Bits: bits}}
}

func TestGlobals(t *testing.T) {
	data, err := Globals([]module.Global{
		global(wasm.I32, module.InitI32Const, 0xfffffffe),
		global(wasm.I64, module.InitI64Const, 0x123456789a),
		global(wasm.F32, module.InitF32Const, uint64(math.Float32bits(-1.5))),
		global(wasm.F64, module.InitF64Const, math.Float64bits(2.25)),
		global(wasm.I32, module.InitI32Const, 7),
	})
	require.NoError(t, err)
	require.Len(t, data, 5*8)

	slot := func(i int) uint64 { return binary.LittleEndian.Uint64(data[i*8:]) }

	require.Equal(t, uint64(0xfffffffffffffffe), slot(0))
	require.Equal(t, uint64(0x123456789a), slot(1))
	require.Equal(t, uint64(0xbfc00000), slot(2))
	require.Equal(t, math.Float64bits(2.25), slot(3))
	require.Equal(t, uint64(7), slot(4))
}

func TestUnsupported(t *testing.T) {
	for _, g := range []module.Global{
		{Type: wasm.I32, Init: module.GlobalInit{Kind: module.InitGlobalRef}},
		{Type: wasm.I64, Init: module.GlobalInit{Kind: module.InitImport}},
		global(wasm.I64, module.InitI32Const, 1),
		global(wasm.I32, 99, 1),
	} {
		_, err := Globals([]module.Global{global(wasm.I32, module.InitI32Const, 0), g})
		require.ErrorIs(t, err, &errors.Fault{Kind: errors.FaultGlobalInit})

		var fault *errors.Fault
		require.ErrorAs(t, err, &fault)
		require.Equal(t, 1, fault.Index)
	}

	data, err := Globals(nil)
	require.NoError(t, err)
	require.Empty(t, data)
}

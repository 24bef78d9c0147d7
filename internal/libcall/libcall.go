// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package libcall implements the float rounding routines which generated
// code calls instead of inlining.  Values are passed as raw bits: float32 in
// the low 32 bits, float64 in all 64.
package libcall

import (
	"math"

	"github.com/akegalj/wasmer/link"
)

func CeilF32(x float32) float32  { return float32(math.Ceil(float64(x))) }
func FloorF32(x float32) float32 { return float32(math.Floor(float64(x))) }
func TruncF32(x float32) float32 { return float32(math.Trunc(float64(x))) }

// NearestF32 rounds half to even.
func NearestF32(x float32) float32 { return float32(math.RoundToEven(float64(x))) }

func CeilF64(x float64) float64  { return math.Ceil(x) }
func FloorF64(x float64) float64 { return math.Floor(x) }
func TruncF64(x float64) float64 { return math.Trunc(x) }

// NearestF64 rounds half to even.
func NearestF64(x float64) float64 { return math.RoundToEven(x) }

var f32s = [...]func(float32) float32{
	link.CeilF32:    CeilF32,
	link.FloorF32:   FloorF32,
	link.TruncF32:   TruncF32,
	link.NearestF32: NearestF32,
}

var f64s = [...]func(float64) float64{
	link.CeilF64 - link.CeilF64:    CeilF64,
	link.FloorF64 - link.CeilF64:   FloorF64,
	link.TruncF64 - link.CeilF64:   TruncF64,
	link.NearestF64 - link.CeilF64: NearestF64,
}

// Call a libcall with an argument in raw form.  ok is false for unknown
// libcalls.
func Call(lc link.LibCall, bits uint64) (result uint64, ok bool) {
	switch {
	case lc < link.CeilF64:
		x := math.Float32frombits(uint32(bits))
		return uint64(math.Float32bits(f32s[lc](x))), true

	case lc < link.NumLibCalls:
		x := math.Float64frombits(bits)
		return math.Float64bits(f64s[lc-link.CeilF64](x)), true

	default:
		return 0, false
	}
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wasm defines WebAssembly value types and memory units.
package wasm

type Category uint8

const (
	Int   = Category(0)
	Float = Category(1)
)

func (cat Category) String() string {
	switch cat {
	case Int:
		return "int"

	case Float:
		return "float"

	default:
		return "<invalid category>"
	}
}

type Size uint8

const (
	Size32 = Size(4)
	Size64 = Size(8)
)

type Type uint8

const (
	Void = Type(0)
	I32  = Type(4 | Int)
	I64  = Type(8 | Int)
	F32  = Type(4 | Float)
	F64  = Type(8 | Float)
)

// Category of a non-void type.
func (t Type) Category() Category {
	return Category(t & 1)
}

// Size in bytes.
func (t Type) Size() Size {
	return Size(t) & (4 | 8)
}

func (t Type) String() string {
	switch t {
	case Void:
		return "void"

	case I32:
		return "i32"

	case I64:
		return "i64"

	case F32:
		return "f32"

	case F64:
		return "f64"

	default:
		return "<invalid type>"
	}
}

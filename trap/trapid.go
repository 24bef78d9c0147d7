// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trap enumerates trap identifiers.
package trap

import (
	"fmt"
)

type ID int

const (
	Exit = ID(iota)
	NoFunction
	Unreachable
	CallStackExhausted
	MemoryAccessOutOfBounds
	IndirectCallIndexOutOfBounds
	IndirectCallSignatureMismatch
	SharedMemoryWrite

	NumTraps
)

func (id ID) String() string {
	switch id {
	case Exit:
		return "exit"

	case NoFunction:
		return "no function"

	case Unreachable:
		return "unreachable"

	case CallStackExhausted:
		return "call stack exhausted"

	case MemoryAccessOutOfBounds:
		return "memory access out of bounds"

	case IndirectCallIndexOutOfBounds:
		return "indirect call index out of bounds"

	case IndirectCallSignatureMismatch:
		return "indirect call signature mismatch"

	case SharedMemoryWrite:
		return "write to shared memory"

	default:
		return fmt.Sprintf("unknown trap %d", id)
	}
}

func (id ID) Error() string {
	return "trap: " + id.String()
}

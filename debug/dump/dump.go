// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dump disassembles linked x86-64 code.  It requires cgo and the
// capstone build tag; otherwise Text returns ErrUnavailable.
package dump

import (
	"errors"
	"fmt"
	"io"
)

var ErrUnavailable = errors.New("debug/dump requires cgo and the capstone build tag")

// Func is the linked code of a function.
type Func struct {
	Name string
	Addr uintptr
	Code []byte
}

func header(w io.Writer, f Func) {
	fmt.Fprintf(w, "\n%s:\n", f.Name)
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errorpanic converts panics raised inside code generation zones into
// returned errors.
package errorpanic

import (
	"runtime"

	"github.com/akegalj/wasmer/buffer"
	"github.com/akegalj/wasmer/errors"
	"golang.org/x/xerrors"
	"import.name/pan"
)

// Handle a recovered value.  Runtime errors and foreign panics are
// re-panicked.  Errors which are not already typed become CompileErrors for
// the function being compiled.
func Handle(funcIndex int, x interface{}) (err error) {
	if x == nil {
		return nil
	}

	if e, ok := x.(runtime.Error); ok {
		panic(e)
	}

	err = pan.Error(x)

	var compileErr *errors.CompileError
	if xerrors.As(err, &compileErr) {
		return
	}

	switch {
	case xerrors.Is(err, buffer.ErrSizeLimit):
		err = &errors.CompileError{Func: funcIndex, Msg: "function code size limit exceeded", Cause: err}

	default:
		err = &errors.CompileError{Func: funcIndex, Msg: err.Error(), Cause: err}
	}
	return
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package errors defines the error taxonomy of instantiation.
//
// LinkError and CompileError are fatal to instantiation.  Fault covers input
// shapes which are unsupported or malformed; it is returned instead of
// aborting the process.  ErrShared indicates that a shared buffer cannot be
// mutated because another instance handle refers to it.
//
// Errors caused by the module implement interface{ ModuleError() string }.
package errors

import (
	"fmt"
)

// LinkError reports an import which could not be resolved, or a relocation
// whose target could not be reached.
type LinkError struct {
	Module string // Set for missing imports.
	Field  string // Set for missing imports.
	Func   int    // Function index, or -1.
	Msg    string
}

func MissingImport(module, field string) *LinkError {
	return &LinkError{
		Module: module,
		Field:  field,
		Func:   -1,
		Msg:    fmt.Sprintf("imported function %s.%s was not provided", module, field),
	}
}

func LinkErrorf(funcIndex int, format string, args ...interface{}) *LinkError {
	return &LinkError{
		Func: funcIndex,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func (e *LinkError) Error() string       { return "link error: " + e.Msg }
func (e *LinkError) ModuleError() string { return e.Msg }

// Name of the missing import as "module.field", or empty string.
func (e *LinkError) Name() string {
	if e.Module == "" && e.Field == "" {
		return ""
	}
	return e.Module + "." + e.Field
}

// CompileError is returned when a code generation target rejects a function
// body.
type CompileError struct {
	Func  int
	Msg   string
	Cause error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error: function %d: %s", e.Func, e.Msg)
}

func (e *CompileError) ModuleError() string { return e.Msg }
func (e *CompileError) Unwrap() error       { return e.Cause }

type FaultKind uint8

const (
	FaultModule FaultKind = iota
	FaultRelocation
	FaultGlobalInit
	FaultTableInit
	FaultDataInit
	FaultMemoryIndex
	FaultUnsupported
)

func (k FaultKind) String() string {
	switch k {
	case FaultModule:
		return "module"

	case FaultRelocation:
		return "relocation"

	case FaultGlobalInit:
		return "global initializer"

	case FaultTableInit:
		return "table initializer"

	case FaultDataInit:
		return "data initializer"

	case FaultMemoryIndex:
		return "memory index"

	case FaultUnsupported:
		return "unsupported feature"

	default:
		return fmt.Sprintf("fault kind %d", k)
	}
}

// Fault is an unimplemented or intentionally unsupported input shape.  Index
// identifies the offending item within its index space, or is -1.  Cause is
// set when the fault was triggered by a lower-level error.
type Fault struct {
	Kind  FaultKind
	Index int
	Msg   string
	Cause error
}

func Faultf(kind FaultKind, index int, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Index: index, Msg: fmt.Sprintf(format, args...)}
}

func (f *Fault) Error() string {
	msg := f.Msg
	if f.Cause != nil {
		msg += ": " + f.Cause.Error()
	}
	if f.Index >= 0 {
		return fmt.Sprintf("%s fault (#%d): %s", f.Kind, f.Index, msg)
	}
	return fmt.Sprintf("%s fault: %s", f.Kind, msg)
}

func (f *Fault) ModuleError() string { return f.Msg }
func (f *Fault) Unwrap() error       { return f.Cause }

// Is matches faults of the same kind, so that errors.Is(err, &Fault{Kind: k})
// works regardless of index and message.
func (f *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	return ok && t.Kind == f.Kind && t.Msg == "" && t.Index == 0 && t.Cause == nil
}

type sharedError string

func (s sharedError) Error() string { return string(s) }

// ErrShared is returned when mutation is attempted while another instance
// handle holds a live reference to the same buffer.
var ErrShared error = sharedError("buffer is shared by another instance handle")

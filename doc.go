// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package wasmer instantiates validated WebAssembly modules.

New compiles every local function of a module into a code arena, resolves
imports and relocations, allocates linear memory and tables, evaluates global
initializers and publishes the DataPointers which generated code uses to reach
them.  The resulting Instance may be cloned cheaply: memories, tables and code
are shared by reference, while globals are copied.

# Errors

LinkError, CompileError and Fault are defined in the errors subpackage.  They
implement ModuleError() when the module itself is at fault.  Mutating a memory
which another Instance handle still refers to fails with errors.ErrShared.
Traps raised by generated code are trap.ID values.

# Targets

The portable target is the default.  Its code is executed by an interpreter on
the calling goroutine.  The amd64 target produces x86-64 machine code which can
be linked, inspected and disassembled, but Instance doesn't call it: Call
returns a Fault of kind FaultUnsupported.  Executing native code would need an
assembly entry stub which this package doesn't provide.

# Lifetime

A closed Instance handle can no longer reach shared buffers; its accessors
fail and Memories returns nil.  Host functions registered through an
imports.Map keep their entry points until the Map is closed, which must happen
after every Instance bound to it has been closed.
*/
package wasmer

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmer

import (
	"github.com/akegalj/wasmer/abi"
)

// publish DataPointers which refer to the current buffers.
func (inst *Instance) publish() {
	tables := make([]abi.Slice, len(inst.tables.Value))
	for i, t := range inst.tables.Value {
		tables[i] = t.View()
	}

	memories := make([]abi.Slice, len(inst.memories.Value))
	for i, mem := range inst.memories.Value {
		memories[i] = mem.View()
	}

	inst.data.Store(abi.Make(tables, memories, inst.globals))
}

// stale reports whether a memory has been resized or moved since the last
// publication.
func (inst *Instance) stale(dp *abi.DataPointers) bool {
	for i, mem := range inst.memories.Value {
		if dp.Memory(i) != mem.View() {
			return true
		}
	}
	return false
}

// DataPointers which generated code uses to access tables, memories and
// globals.  The value is replaced whenever a memory buffer moves.
func (inst *Instance) DataPointers() *abi.DataPointers {
	dp := inst.data.Load()
	if dp != nil && inst.stale(dp) {
		inst.publish()
		dp = inst.data.Load()
	}
	return dp
}

// DefaultMemoryBound is the size of the default memory in bytes, as of the
// last growth through this handle.
func (inst *Instance) DefaultMemoryBound() uint64 {
	return inst.defaultMemoryBound
}

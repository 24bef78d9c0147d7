// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trampoline maintains the process-wide table of runtime entry
// points.
//
// Every entry point has a fixed address inside one reserved mapping, so that
// generated code can be linked against it like against any other function.
// The first slots are reserved for the memory intrinsics, the float libcalls
// and the missing-import stub.  Host function slots are reference counted;
// a slot becomes free for reuse when its last registration is unregistered.
package trampoline

import (
	"sync"

	"github.com/akegalj/wasmer/internal/mman"
	"github.com/akegalj/wasmer/link"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// SlotSize is the distance between entry point addresses.
const SlotSize = 16

const (
	slotGrowMemory    = 0
	slotCurrentMemory = 1
	slotLibCalls      = 2
	slotMock          = slotLibCalls + int(link.NumLibCalls)
	slotHosts         = 16

	numSlots = 4096
)

type Kind uint8

const (
	KindNone Kind = iota
	KindGrowMemory
	KindCurrentMemory
	KindLibCall
	KindMock
	KindHost
)

// Entry describes what an address refers to.  Host is the value passed to
// RegisterHost.
type Entry struct {
	Kind    Kind
	LibCall link.LibCall
	Host    interface{}
}

var (
	ErrFull          = errors.New("trampoline table is full")
	ErrNotRegistered = errors.New("address is not a registered host function")
)

var table struct {
	once    sync.Once
	err     error
	mem     []byte
	base    uintptr
	mu      sync.Mutex
	entries atomic.Pointer[[]Entry]
	refs    []int // Per slot; guarded by mu.
	free    []int // Guarded by mu.
}

func load() error {
	table.once.Do(func() {
		size := mman.RoundSize(numSlots * SlotSize)

		mem, err := mman.Map(size)
		if err != nil {
			table.err = errors.Wrap(err, "trampoline table")
			return
		}
		for i := range mem {
			mem[i] = 0xcc // int3
		}
		if err := mman.Protect(mem, mman.Read); err != nil {
			mman.Unmap(mem)
			table.err = errors.Wrap(err, "trampoline table")
			return
		}

		entries := make([]Entry, slotHosts)
		entries[slotGrowMemory] = Entry{Kind: KindGrowMemory}
		entries[slotCurrentMemory] = Entry{Kind: KindCurrentMemory}
		for lc := link.LibCall(0); lc < link.NumLibCalls; lc++ {
			entries[slotLibCalls+int(lc)] = Entry{Kind: KindLibCall, LibCall: lc}
		}
		entries[slotMock] = Entry{Kind: KindMock}

		table.mem = mem
		table.base = addrOf(mem)
		table.refs = make([]int, slotHosts, numSlots)
		table.entries.Store(&entries)
	})
	return table.err
}

func slotAddr(slot int) uintptr {
	return table.base + uintptr(slot*SlotSize)
}

// slotOf returns -1 if addr is not a slot address.
func slotOf(addr uintptr) int {
	if addr < table.base {
		return -1
	}
	offset := addr - table.base
	if offset%SlotSize != 0 || offset/SlotSize >= numSlots {
		return -1
	}
	return int(offset / SlotSize)
}

// RuntimeAddr resolves intrinsic and libcall relocation targets.  It fails
// if the table could not be mapped.
func RuntimeAddr(t link.Target) (uintptr, bool) {
	if load() != nil {
		return 0, false
	}

	switch t.Kind {
	case link.TargetGrowMemory:
		return slotAddr(slotGrowMemory), true

	case link.TargetCurrentMemory:
		return slotAddr(slotCurrentMemory), true

	case link.TargetLibCall:
		if t.LibCall < link.NumLibCalls {
			return slotAddr(slotLibCalls + int(t.LibCall)), true
		}
	}
	return 0, false
}

// MockAddr is the address of the stub which stands in for missing imports.
func MockAddr() (uintptr, error) {
	if err := load(); err != nil {
		return 0, err
	}
	return slotAddr(slotMock), nil
}

// RegisterHost allocates an entry point for a host function.  The value must
// be comparable (typically a pointer).  Registering the same value again
// returns the existing address and takes another reference to it; each
// registration must be paired with an Unregister call.
func RegisterHost(host interface{}) (uintptr, error) {
	if err := load(); err != nil {
		return 0, err
	}

	table.mu.Lock()
	defer table.mu.Unlock()

	old := *table.entries.Load()
	for i := slotHosts; i < len(old); i++ {
		if old[i].Kind == KindHost && old[i].Host == host {
			table.refs[i]++
			return slotAddr(i), nil
		}
	}

	var slot int
	var entries []Entry

	if n := len(table.free); n > 0 {
		slot = table.free[n-1]
		table.free = table.free[:n-1]
		entries = append([]Entry(nil), old...)
	} else {
		if len(old) >= numSlots {
			return 0, ErrFull
		}
		slot = len(old)
		entries = make([]Entry, len(old)+1)
		copy(entries, old)
		table.refs = append(table.refs, 0)
	}

	entries[slot] = Entry{Kind: KindHost, Host: host}
	table.refs[slot] = 1
	table.entries.Store(&entries)

	return slotAddr(slot), nil
}

// Unregister drops a reference taken by RegisterHost.  The slot is recycled
// when the last reference is dropped, so generated code which may still call
// the address must not be running at that point.
func Unregister(addr uintptr) error {
	if err := load(); err != nil {
		return err
	}

	table.mu.Lock()
	defer table.mu.Unlock()

	old := *table.entries.Load()
	slot := slotOf(addr)
	if slot < slotHosts || slot >= len(old) || old[slot].Kind != KindHost {
		return ErrNotRegistered
	}

	table.refs[slot]--
	if table.refs[slot] > 0 {
		return nil
	}

	entries := append([]Entry(nil), old...)
	entries[slot] = Entry{}
	table.entries.Store(&entries)
	table.free = append(table.free, slot)
	return nil
}

// Lookup an address.  Lookups don't block.
func Lookup(addr uintptr) (Entry, bool) {
	if load() != nil {
		return Entry{}, false
	}

	slot := slotOf(addr)
	if slot < 0 {
		return Entry{}, false
	}

	entries := *table.entries.Load()
	if slot >= len(entries) || entries[slot].Kind == KindNone {
		return Entry{}, false
	}
	return entries[slot], true
}

// NumHosts currently registered.
func NumHosts() int {
	if load() != nil {
		return 0
	}

	n := 0
	for _, e := range *table.entries.Load() {
		if e.Kind == KindHost {
			n++
		}
	}
	return n
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package imports resolves imported functions to addresses.
package imports

import (
	"github.com/akegalj/wasmer/internal/trampoline"
)

// MockValue is returned by the stub which stands in for missing imports.
const MockValue = 0

// Object provides import addresses by module and field name.
type Object interface {
	Lookup(module, field string) (addr uintptr, found bool)
}

// Caller is the instance on whose behalf a host function is invoked.
type Caller interface {
	InspectMemory(index int, address, length uint64) ([]byte, error)
}

// Func is a host function implemented in Go.  Arguments and the result are
// raw 64-bit values; 32-bit integers occupy the low half.
type Func struct {
	Params  int
	Results int // 0 or 1.
	Call    func(c Caller, args []uint64) (uint64, error)
}

// Arity of the function.
func (f *Func) Arity() (params, results int) {
	return f.Params, f.Results
}

type key struct {
	module string
	field  string
}

// Map is an Object.  The zero value is empty and ready to use.  A Map which
// has registered host functions must be closed once no instance bound to it
// is running.
type Map struct {
	addrs map[key]uintptr
	hosts []uintptr
}

// Set a raw address.
func (m *Map) Set(module, field string, addr uintptr) {
	if m.addrs == nil {
		m.addrs = make(map[key]uintptr)
	}
	m.addrs[key{module, field}] = addr
}

// Func registers a host function in the process-wide entry point table and
// maps the name to its address.  The same Func may be registered under
// several names.
func (m *Map) Func(module, field string, f *Func) error {
	addr, err := trampoline.RegisterHost(f)
	if err != nil {
		return err
	}
	m.hosts = append(m.hosts, addr)
	m.Set(module, field, addr)
	return nil
}

// Close releases the entry points registered via Func.  The map is empty
// afterwards.
func (m *Map) Close() (err error) {
	for _, addr := range m.hosts {
		if e := trampoline.Unregister(addr); err == nil {
			err = e
		}
	}
	m.hosts = nil
	m.addrs = nil
	return
}

func (m *Map) Lookup(module, field string) (addr uintptr, found bool) {
	addr, found = m.addrs[key{module, field}]
	return
}

// Len is the number of mapped names.
func (m *Map) Len() int {
	return len(m.addrs)
}

// HostFunc returns the host function registered at an address.
func HostFunc(addr uintptr) (f *Func, found bool) {
	e, ok := trampoline.Lookup(addr)
	if !ok || e.Kind != trampoline.KindHost {
		return nil, false
	}
	f, found = e.Host.(*Func)
	return
}

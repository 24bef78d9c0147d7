// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package isa defines the interface of code generation targets.
package isa

import (
	"sort"
	"sync"

	"github.com/akegalj/wasmer/ir"
	"github.com/akegalj/wasmer/link"
	"github.com/akegalj/wasmer/module"
)

// DefaultTarget is used when no target is configured.
const DefaultTarget = "portable"

// DefaultMaxFunctionSize is the code size limit of a single function when
// Env.MaxFunctionSize is not set.
const DefaultMaxFunctionSize = 1 << 20

// Env is the read-only compilation environment shared by all functions of a
// module.
type Env struct {
	Module          *module.Module
	MaxFunctionSize int
}

// FunctionSizeLimit in bytes.
func (env *Env) FunctionSizeLimit() int {
	if env.MaxFunctionSize > 0 {
		return env.MaxFunctionSize
	}
	return DefaultMaxFunctionSize
}

// Output of function compilation.  Relocation offsets are relative to the
// start of Code.
type Output struct {
	Code   []byte
	Relocs []link.Relocation
}

// Target generates code for one function at a time.  Compile must be safe
// for concurrent use.  Call targets are never resolved by Compile; they are
// recorded as relocations.
type Target interface {
	Name() string

	// Native reports whether the code is machine code which needs an
	// executable mapping.
	Native() bool

	Compile(env *Env, index module.FuncIndex, fn *ir.Function) (Output, error)
}

var registry struct {
	mu      sync.RWMutex
	targets map[string]Target
}

// Register a target.  Typically called during package initialization.
func Register(t Target) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if registry.targets == nil {
		registry.targets = make(map[string]Target)
	}
	registry.targets[t.Name()] = t
}

func Lookup(name string) (t Target, found bool) {
	if name == "" {
		name = DefaultTarget
	}

	registry.mu.RLock()
	defer registry.mu.RUnlock()

	t, found = registry.targets[name]
	return
}

func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.targets))
	for name := range registry.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

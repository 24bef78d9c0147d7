// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasmer

import (
	"io"
	"runtime"

	"github.com/akegalj/wasmer/internal/isa"
	"github.com/akegalj/wasmer/internal/vm"
	"github.com/akegalj/wasmer/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Options for a single instantiation.  Zero values are replaced with
// effective defaults.
type Options struct {
	MockMissingImports bool   `yaml:"mock_missing_imports"` // Bind missing imports to a stub.
	Target             string `yaml:"target"`               // Code generator name; "portable" by default.
	CompileWorkers     int    `yaml:"compile_workers"`      // Defaults to GOMAXPROCS.
	MaxFunctionSize    int    `yaml:"max_function_size"`    // Generated code bytes per function.
	MaxCallDepth       int    `yaml:"max_call_depth"`       // Nested calls before a trap.
	InvokeStart        bool   `yaml:"invoke_start"`         // Run the start function in New.

	Logger  *zap.Logger      `yaml:"-"`
	Metrics *metrics.Metrics `yaml:"-"`
}

// LoadOptions decodes YAML.  Unknown fields are rejected.
func LoadOptions(r io.Reader) (opts Options, err error) {
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)

	if err = dec.Decode(&opts); err != nil {
		if err == io.EOF {
			err = nil
		} else {
			err = errors.Wrap(err, "invalid options")
		}
	}
	return
}

func (opts Options) effective() (Options, error) {
	if opts.Target == "" {
		opts.Target = isa.DefaultTarget
	}
	if _, found := isa.Lookup(opts.Target); !found {
		return opts, errors.Errorf("unknown target %q", opts.Target)
	}
	if opts.CompileWorkers <= 0 {
		opts.CompileWorkers = runtime.GOMAXPROCS(0)
	}
	if opts.MaxFunctionSize <= 0 {
		opts.MaxFunctionSize = isa.DefaultMaxFunctionSize
	}
	if opts.MaxCallDepth <= 0 {
		opts.MaxCallDepth = vm.DefaultMaxCallDepth
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return opts, nil
}

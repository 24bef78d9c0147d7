// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package imports

import (
	"github.com/akegalj/wasmer/errors"
	"github.com/akegalj/wasmer/internal/trampoline"
	"github.com/akegalj/wasmer/module"
	"go.uber.org/zap"
)

// Bind resolves the imported functions of a module in index order.  Missing
// imports are linked to the mock stub if mock is set.  Host functions are
// checked against the imported signature.
func Bind(m *module.Module, obj Object, mock bool, logger *zap.Logger) ([]uintptr, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	addrs := make([]uintptr, 0, len(m.ImportFuncs))

	for i, imp := range m.ImportFuncs {
		var addr uintptr
		var found bool

		if obj != nil {
			addr, found = obj.Lookup(imp.Module, imp.Field)
		}

		if !found {
			if !mock {
				return nil, errors.MissingImport(imp.Module, imp.Field)
			}

			logger.Debug("import is not provided, therefore will be mocked",
				zap.String("module", imp.Module),
				zap.String("field", imp.Field))

			var err error
			if addr, err = trampoline.MockAddr(); err != nil {
				return nil, err
			}
		}

		if f, ok := HostFunc(addr); ok {
			if f.Params != len(imp.Sig.Params) || f.Results != len(imp.Sig.Results) {
				return nil, &errors.LinkError{
					Module: imp.Module,
					Field:  imp.Field,
					Func:   i,
					Msg:    "host function " + imp.Module + "." + imp.Field + " does not match imported signature " + imp.Sig.String(),
				}
			}
		}

		addrs = append(addrs, addr)
	}

	return addrs, nil
}

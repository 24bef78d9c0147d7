// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !(cgo && capstone)

package dump

import (
	"io"
)

func Text(w io.Writer, funcs []Func, targets map[uintptr]string) error {
	return ErrUnavailable
}

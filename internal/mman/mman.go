// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mman allocates page-aligned memory outside of the Go heap.
package mman

import (
	"os"
)

type Protection int

const (
	Read Protection = 1 << iota
	Write
	Exec

	ReadWrite     = Read | Write
	ReadExec      = Read | Exec
	ReadWriteExec = Read | Write | Exec
)

func (p Protection) String() string {
	s := []byte("---")
	if p&Read != 0 {
		s[0] = 'r'
	}
	if p&Write != 0 {
		s[1] = 'w'
	}
	if p&Exec != 0 {
		s[2] = 'x'
	}
	return string(s)
}

// PageSize of the host.
var PageSize = os.Getpagesize()

// RoundSize up to page size.
func RoundSize(size int) int {
	mask := PageSize - 1
	return (size + mask) &^ mask
}

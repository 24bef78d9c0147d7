// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !unix

package mman

// Map zeroed memory from the Go heap.  Protection is not enforced.
func Map(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func Protect(b []byte, p Protection) error { return nil }
func Unmap(b []byte) error                 { return nil }

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wasm

const (
	PageBits = 16
	PageSize = 1 << PageBits // 64 KiB

	// MaxPages is the page count limit of a 32-bit linear memory.
	MaxPages = 1 << (32 - PageBits)
)

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package buffer implements the code buffers which function compilation emits
// into before the code is copied to an executable arena.
package buffer

type sizeError string

func (s sizeError) Error() string           { return string(s) }
func (s sizeError) ModuleError() string     { return string(s) }
func (s sizeError) BufferSizeLimit() string { return string(s) }

// ErrSizeLimit implements interface{ BufferSizeLimit() string }.
var ErrSizeLimit = sizeError("buffer size limit exceeded")

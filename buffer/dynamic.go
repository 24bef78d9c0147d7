// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Dynamic is a variable-capacity buffer.  The default value is a valid buffer.
type Dynamic struct {
	buf     []byte
	maxSize int // Allocation hint; not enforced by Dynamic.
}

// MakeDynamicHint avoids making excessive allocations if the maximum buffer
// size can be estimated in advance.  The slice must be empty.
func MakeDynamicHint(b []byte, maxSizeHint int) Dynamic {
	if len(b) != 0 {
		panic("slice must be empty")
	}
	return Dynamic{b, maxSizeHint}
}

// NewDynamic buffer.  The slice must be empty.
func NewDynamic(b []byte) *Dynamic {
	d := MakeDynamicHint(b, 0)
	return &d
}

func (d *Dynamic) Len() int      { return len(d.buf) }
func (d *Dynamic) Bytes() []byte { return d.buf }

func (d *Dynamic) PutByte(value byte) {
	d.Extend(1)[0] = value
}

func (d *Dynamic) PutUint16(i uint16) {
	binary.LittleEndian.PutUint16(d.Extend(2), i)
}

func (d *Dynamic) PutUint32(i uint32) {
	binary.LittleEndian.PutUint32(d.Extend(4), i)
}

func (d *Dynamic) PutUint64(i uint64) {
	binary.LittleEndian.PutUint64(d.Extend(8), i)
}

// Extend doesn't panic unless out of memory or the size overflows.
func (d *Dynamic) Extend(addLen int) []byte {
	offset := len(d.buf)

	size := offset + addLen
	if size < offset {
		panic(errors.Errorf("buffer size out of range: %d + %d", offset, addLen))
	}

	if size <= cap(d.buf) {
		d.buf = d.buf[:size]
	} else {
		d.grow(addLen)
	}

	return d.buf[offset:]
}

func (d *Dynamic) grow(addLen int) {
	newLen := len(d.buf) + addLen

	newCap := cap(d.buf)*2 + addLen
	if newCap < cap(d.buf) {
		newCap = newLen
	}

	if d.maxSize > 0 && newCap > d.maxSize && d.maxSize >= newLen {
		newCap = d.maxSize
	}

	newBuf := make([]byte, newLen, newCap)
	copy(newBuf, d.buf)
	d.buf = newBuf
}

// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package code

// Buffer is implemented by buffer.Dynamic and buffer.Limited.
type Buffer interface {
	Bytes() []byte
	Extend(n int) []byte
	PutByte(byte)
	PutUint16(uint16) // Little-endian byte order.
	PutUint32(uint32) // Little-endian byte order.
	PutUint64(uint64) // Little-endian byte order.
}

// Buf is an optimized Buffer.  The cached length (Addr) avoids interface
// function calls when emitters record relocation offsets.
type Buf struct {
	Buffer
	Addr int32
}

func (buf *Buf) Extend(n int) (b []byte) {
	b = buf.Buffer.Extend(n)
	buf.Addr += int32(n)
	return
}

func (buf *Buf) PutByte(x byte) {
	buf.Buffer.PutByte(x)
	buf.Addr++
}

func (buf *Buf) PutBytes(b ...byte) {
	copy(buf.Extend(len(b)), b)
}

func (buf *Buf) PutUint16(x uint16) {
	buf.Buffer.PutUint16(x)
	buf.Addr += 2
}

func (buf *Buf) PutUint32(x uint32) {
	buf.Buffer.PutUint32(x)
	buf.Addr += 4
}

func (buf *Buf) PutUint64(x uint64) {
	buf.Buffer.PutUint64(x)
	buf.Addr += 8
}

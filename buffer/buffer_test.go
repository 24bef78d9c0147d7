// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package buffer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"import.name/pan"
)

func TestDynamic(t *testing.T) {
	d := NewDynamic(nil)
	d.PutByte(0x55)
	d.PutUint16(0x0201)
	d.PutUint32(0x06050403)
	d.PutUint64(0x0e0d0c0b0a090807)

	require.Equal(t, 15, d.Len())
	require.Equal(t, []byte{
		0x55,
		0x01, 0x02,
		0x03, 0x04, 0x05, 0x06,
		0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e,
	}, d.Bytes())
}

func TestDynamicHint(t *testing.T) {
	d := MakeDynamicHint(make([]byte, 0, 2), 10)
	d.Extend(5)
	require.Equal(t, 5, d.Len())
	require.LessOrEqual(t, cap(d.Bytes()), 10)
}

func limitedPut(l *Limited, n int) (err error) {
	defer func() { err = pan.Error(recover()) }()
	for i := 0; i < n; i++ {
		l.PutByte(byte(i))
	}
	return
}

func TestLimited(t *testing.T) {
	l := NewLimited(nil, 4)
	require.NoError(t, limitedPut(l, 4))
	require.Equal(t, []byte{0, 1, 2, 3}, l.Bytes())

	err := limitedPut(l, 1)
	require.True(t, errors.Is(err, ErrSizeLimit))
	require.Equal(t, 4, l.Len())

	var zero Limited
	require.ErrorIs(t, limitedPut(&zero, 1), ErrSizeLimit)
}

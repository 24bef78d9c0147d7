// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build unix

package mman

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Map zeroed read-write memory.  Size must be a positive multiple of
// PageSize.
func Map(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %d bytes", size)
	}
	return b, nil
}

func Protect(b []byte, p Protection) error {
	if len(b) == 0 {
		return nil
	}

	var prot int
	if p&Read != 0 {
		prot |= unix.PROT_READ
	}
	if p&Write != 0 {
		prot |= unix.PROT_WRITE
	}
	if p&Exec != 0 {
		prot |= unix.PROT_EXEC
	}

	if err := unix.Mprotect(b, prot); err != nil {
		return errors.Wrapf(err, "mprotect %s", p)
	}
	return nil
}

func Unmap(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return errors.Wrap(unix.Munmap(b), "munmap")
}

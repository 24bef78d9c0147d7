// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package shared counts the instance handles which refer to a buffer.
package shared

import (
	"github.com/akegalj/wasmer/errors"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/atomic"
)

// ErrReleased is returned by Exclusive after the handle has been released.
var ErrReleased = pkgerrors.New("shared reference has been released")

// Ref is a shared reference to a value.  The last Release closes it.
type Ref[T any] struct {
	Value T

	count    *atomic.Int32
	release  func(T) error
	released atomic.Bool
}

// New reference with count one.
func New[T any](value T, release func(T) error) *Ref[T] {
	return &Ref[T]{
		Value:   value,
		count:   atomic.NewInt32(1),
		release: release,
	}
}

// Clone returns a new handle to the same value.
func (r *Ref[T]) Clone() *Ref[T] {
	r.count.Inc()
	return &Ref[T]{
		Value:   r.Value,
		count:   r.count,
		release: r.release,
	}
}

// Count of live handles.
func (r *Ref[T]) Count() int {
	return int(r.count.Load())
}

// Exclusive returns ErrShared if other handles are alive, or ErrReleased if
// this handle is no longer one of them.
func (r *Ref[T]) Exclusive() error {
	if r.released.Load() {
		return ErrReleased
	}
	if r.count.Load() != 1 {
		return errors.ErrShared
	}
	return nil
}

// Release this handle.  Releasing it again is a no-op.
func (r *Ref[T]) Release() error {
	if !r.released.CompareAndSwap(false, true) {
		return nil
	}
	if r.count.Dec() == 0 && r.release != nil {
		return r.release(r.Value)
	}
	return nil
}

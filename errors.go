// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package inotify

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by every Channel operation after Close.
	ErrClosed = errors.New("inotify: channel closed")

	// ErrEmptyQueue is returned by Pop and Peek when no event is pending. It is
	// an expected condition, not a fault.
	ErrEmptyQueue = errors.New("inotify: event queue is empty")

	// ErrInterrupted is returned by Wait when the read was interrupted by a
	// signal and the caller asked not to retry.
	ErrInterrupted = errors.New("inotify: read interrupted")

	// ErrRegistered is returned when a registered watch is added again or its
	// mask is changed in place.
	ErrRegistered = errors.New("inotify: watch is registered")

	// ErrNotRegistered is returned when removing a watch that was never added
	// or was already removed by the caller.
	ErrNotRegistered = errors.New("inotify: watch is not registered")

	// ErrWatchGone is returned when removing a watch the kernel has already
	// dropped, e.g. because its target was deleted or unmounted.
	ErrWatchGone = errors.New("inotify: watch already removed by the kernel")

	// ErrAliased is returned when the kernel hands out a handle that already
	// belongs to another Watch, which happens when two paths resolve to the
	// same inode.
	ErrAliased = errors.New("inotify: handle already owned by another watch")
)

// ResourceError is returned when the notification descriptor cannot be
// acquired. The Channel is unusable.
type ResourceError struct {
	Err error
}

func (e *ResourceError) Error() string { return "inotify: cannot open instance: " + e.Err.Error() }
func (e *ResourceError) Unwrap() error { return e.Err }

// WatchError describes a registration or deregistration rejected by the OS,
// or refused by the Channel before reaching it.
type WatchError struct {
	Op   string // "add", "rewatch" or "remove"
	Path string
	Err  error
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("inotify: %s watch %q: %v", e.Op, e.Path, e.Err)
}

func (e *WatchError) Unwrap() error { return e.Err }

// ReadError is a non-interrupt failure reading the descriptor, including end
// of stream. The Channel should be closed.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return "inotify: read failed: " + e.Err.Error() }
func (e *ReadError) Unwrap() error { return e.Err }

// DecodeError reports a malformed record stream. Nothing from the offending
// read is queued and the Channel should be closed.
type DecodeError struct {
	Offset int // offset of the offending record within the read
	Len    int // number of bytes returned by the read
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("inotify: corrupt record at offset %d of %d: %s", e.Offset, e.Len, e.Reason)
}

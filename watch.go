// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

package inotify

// NoHandle is the handle of a Watch that is not registered with a Channel.
const NoHandle = int32(-1)

// Watch is an interest in events of a given mask for a single path.
//
// A Watch is created unregistered. Channel.AddWatch assigns it the handle
// returned by the kernel, and Channel.RemoveWatch resets it. A Watch must be
// removed from its Channel (or the Channel closed) before it is discarded.
type Watch struct {
	path string
	mask Mask
	wd   int32
	gone bool // dropped by the kernel while registered
}

// NewWatch gives new unregistered watch. No I/O is performed.
func NewWatch(path string, mask Mask) *Watch {
	return &Watch{path: path, mask: mask, wd: NoHandle}
}

// Path gives the path the watch was created for.
func (w *Watch) Path() string { return w.path }

// Mask gives the event mask the watch registers.
func (w *Watch) Mask() Mask { return w.mask }

// Handle gives the kernel watch descriptor, or NoHandle.
func (w *Watch) Handle() int32 { return w.wd }

// Registered reports whether the watch is currently held by a Channel.
func (w *Watch) Registered() bool { return w.wd != NoHandle }

// SetMask changes the mask of an unregistered watch. A registered watch
// refuses the change with ErrRegistered; use Channel.Rewatch to re-arm it.
func (w *Watch) SetMask(mask Mask) error {
	if w.Registered() {
		return &WatchError{Op: "set mask", Path: w.path, Err: ErrRegistered}
	}
	w.mask = mask
	return nil
}

func (w *Watch) String() string {
	return w.path + " " + w.mask.String()
}

// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

package inotify

import (
	"path/filepath"
	"strconv"
)

// Event is a single decoded inotify record.
//
// Events are values; popping one from a Channel hands the caller its own
// copy, which is not tied to any buffer of the Channel.
type Event struct {
	wd      int32
	mask    Mask
	cookie  uint32
	name    string
	hasName bool
	path    string // path of the source watch at decode time
}

// Handle gives the handle of the watch the event originated from. It is -1
// for events not bound to any watch, e.g. IN_Q_OVERFLOW.
func (e Event) Handle() int32 { return e.wd }

// Mask gives the flags reported by the kernel.
func (e Event) Mask() Mask { return e.mask }

// Cookie gives the value pairing IN_MOVED_FROM with IN_MOVED_TO. It is zero for
// all the other events.
func (e Event) Cookie() uint32 { return e.cookie }

// Name gives the name of the directory entry the event concerns. The boolean
// is false when the event concerns the watched object itself.
func (e Event) Name() (string, bool) { return e.name, e.hasName }

// IsOfType reports whether all bits of flag are set in the event mask.
func (e Event) IsOfType(flag Mask) bool { return e.mask.Has(flag) }

// IsDir reports whether the subject of the event is a directory.
func (e Event) IsDir() bool { return e.mask&InIsDir != 0 }

// Path gives the path of the subject of the event: the watched path joined
// with the event name. It is empty when the handle was not registered at
// decode time.
func (e Event) Path() string {
	if e.path == "" || !e.hasName {
		return e.path
	}
	return filepath.Join(e.path, e.name)
}

// DescribeTypes lists the event flags in canonical order, see DescribeTypes.
func (e Event) DescribeTypes() string { return DescribeTypes(e.mask) }

// String implements fmt.Stringer interface.
func (e Event) String() string {
	s := e.DescribeTypes() + ` wd=` + strconv.Itoa(int(e.wd))
	if e.cookie != 0 {
		s += ` cookie=` + strconv.FormatUint(uint64(e.cookie), 10)
	}
	if p := e.Path(); p != "" {
		return s + `: "` + p + `"`
	}
	if e.hasName {
		return s + `: "` + e.name + `"`
	}
	return s
}

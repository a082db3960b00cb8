// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

package inotify

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Mask is a set of inotify flags, as passed to inotify_add_watch(2) and as
// reported in the mask field of each delivered record.
type Mask uint32

// Inotify events.
const (
	InAccess       = Mask(unix.IN_ACCESS)
	InModify       = Mask(unix.IN_MODIFY)
	InAttrib       = Mask(unix.IN_ATTRIB)
	InCloseWrite   = Mask(unix.IN_CLOSE_WRITE)
	InCloseNowrite = Mask(unix.IN_CLOSE_NOWRITE)
	InOpen         = Mask(unix.IN_OPEN)
	InMovedFrom    = Mask(unix.IN_MOVED_FROM)
	InMovedTo      = Mask(unix.IN_MOVED_TO)
	InCreate       = Mask(unix.IN_CREATE)
	InDelete       = Mask(unix.IN_DELETE)
	InDeleteSelf   = Mask(unix.IN_DELETE_SELF)
	InMoveSelf     = Mask(unix.IN_MOVE_SELF)

	InClose     = Mask(unix.IN_CLOSE)
	InMove      = Mask(unix.IN_MOVE)
	InAllEvents = Mask(unix.IN_ALL_EVENTS)
)

// Events synthesized by the kernel. They are delivered regardless of the
// mask a watch was registered with.
const (
	InUnmount   = Mask(unix.IN_UNMOUNT)
	InQOverflow = Mask(unix.IN_Q_OVERFLOW)
	InIgnored   = Mask(unix.IN_IGNORED)
	InIsDir     = Mask(unix.IN_ISDIR)
)

// Registration flags. They change how inotify_add_watch behaves and, apart
// from InOneshot, never show up in a delivered record.
const (
	InOnlyDir    = Mask(unix.IN_ONLYDIR)
	InDontFollow = Mask(unix.IN_DONT_FOLLOW)
	InExclUnlink = Mask(unix.IN_EXCL_UNLINK)
	InMaskCreate = Mask(unix.IN_MASK_CREATE)
	InMaskAdd    = Mask(unix.IN_MASK_ADD)
	InOneshot    = Mask(unix.IN_ONESHOT)
)

type flagName struct {
	flag Mask
	name string
}

// typeNames is the canonical ordering used by DescribeTypes. It is fixed so
// that the output does not depend on the bit layout of the platform.
var typeNames = []flagName{
	{InAccess, "IN_ACCESS"},
	{InModify, "IN_MODIFY"},
	{InAttrib, "IN_ATTRIB"},
	{InCloseWrite, "IN_CLOSE_WRITE"},
	{InCloseNowrite, "IN_CLOSE_NOWRITE"},
	{InOpen, "IN_OPEN"},
	{InMovedFrom, "IN_MOVED_FROM"},
	{InMovedTo, "IN_MOVED_TO"},
	{InCreate, "IN_CREATE"},
	{InDelete, "IN_DELETE"},
	{InDeleteSelf, "IN_DELETE_SELF"},
	{InMoveSelf, "IN_MOVE_SELF"},
	{InUnmount, "IN_UNMOUNT"},
	{InQOverflow, "IN_Q_OVERFLOW"},
	{InIgnored, "IN_IGNORED"},
	{InClose, "IN_CLOSE"},
	{InMove, "IN_MOVE"},
	{InIsDir, "IN_ISDIR"},
	{InOneshot, "IN_ONESHOT"},
}

// flagNames lists every name ParseMask understands.
var flagNames = map[string]Mask{
	"IN_ALL_EVENTS":  InAllEvents,
	"IN_ONLYDIR":     InOnlyDir,
	"IN_DONT_FOLLOW": InDontFollow,
	"IN_EXCL_UNLINK": InExclUnlink,
	"IN_MASK_CREATE": InMaskCreate,
	"IN_MASK_ADD":    InMaskAdd,
}

func init() {
	for _, fn := range typeNames {
		flagNames[fn.name] = fn.flag
	}
}

// Has reports whether every bit of flag is set in m. A zero flag is never
// contained.
func (m Mask) Has(flag Mask) bool {
	return flag != 0 && m&flag == flag
}

// DescribeTypes lists the names of the flags set in m, separated by a single
// space, in canonical order. The union flags IN_CLOSE and IN_MOVE are listed
// in addition to their members when all of their bits are set.
func DescribeTypes(m Mask) string {
	var sb strings.Builder
	for _, fn := range typeNames {
		if !m.Has(fn.flag) {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(fn.name)
	}
	return sb.String()
}

// String implements fmt.Stringer interface.
//
// Unlike DescribeTypes, it collapses complete unions into a single name and
// joins the names with a comma, which is the form accepted by ParseMask.
func (m Mask) String() string {
	if m == 0 {
		return "0"
	}
	var s []string
	rest := m
	take := func(flag Mask, name string) {
		if rest.Has(flag) {
			s = append(s, name)
			rest &^= flag
		}
	}
	take(InAllEvents, "IN_ALL_EVENTS")
	take(InMove, "IN_MOVE")
	take(InClose, "IN_CLOSE")
	for _, fn := range typeNames {
		take(fn.flag, fn.name)
	}
	take(InOnlyDir, "IN_ONLYDIR")
	take(InDontFollow, "IN_DONT_FOLLOW")
	take(InExclUnlink, "IN_EXCL_UNLINK")
	take(InMaskCreate, "IN_MASK_CREATE")
	take(InMaskAdd, "IN_MASK_ADD")
	if rest != 0 {
		s = append(s, fmt.Sprintf("%#x", uint32(rest)))
	}
	return strings.Join(s, ",")
}

// ParseMask parses either a numeric mask (decimal, or hexadecimal with 0x
// prefix) or a list of flag names separated by commas or pipes, e.g.
// "IN_CREATE,IN_MOVED_TO".
func ParseMask(s string) (Mask, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("inotify: empty mask")
	}
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		return Mask(n), nil
	}
	var m Mask
	for _, name := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' }) {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		flag, ok := flagNames[name]
		if !ok {
			return 0, fmt.Errorf("inotify: unknown mask flag %q", name)
		}
		m |= flag
	}
	if m == 0 {
		return 0, fmt.Errorf("inotify: no flags in mask %q", s)
	}
	return m, nil
}

// MaskNames gives the canonical flag table in DescribeTypes order followed by
// the registration-only flags.
func MaskNames() []string {
	names := make([]string, 0, len(flagNames))
	for _, fn := range typeNames {
		names = append(names, fn.name)
	}
	return append(names,
		"IN_ALL_EVENTS",
		"IN_ONLYDIR",
		"IN_DONT_FOLLOW",
		"IN_EXCL_UNLINK",
		"IN_MASK_CREATE",
		"IN_MASK_ADD",
	)
}

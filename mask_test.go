// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

package inotify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskValues(t *testing.T) {
	// Bit positions fixed by the kernel ABI.
	tests := []struct {
		mask Mask
		want uint32
	}{
		{InAccess, 0x1},
		{InModify, 0x2},
		{InAttrib, 0x4},
		{InCloseWrite, 0x8},
		{InCloseNowrite, 0x10},
		{InOpen, 0x20},
		{InMovedFrom, 0x40},
		{InMovedTo, 0x80},
		{InCreate, 0x100},
		{InDelete, 0x200},
		{InDeleteSelf, 0x400},
		{InMoveSelf, 0x800},
		{InUnmount, 0x2000},
		{InQOverflow, 0x4000},
		{InIgnored, 0x8000},
		{InClose, 0x18},
		{InMove, 0xc0},
		{InIsDir, 0x40000000},
		{InOneshot, 0x80000000},
	}
	for i, test := range tests {
		assert.Equal(t, test.want, uint32(test.mask), "i=%d", i)
	}
}

func TestMaskHas(t *testing.T) {
	m := InCreate | InIsDir
	assert.True(t, m.Has(InCreate))
	assert.True(t, m.Has(InIsDir))
	assert.True(t, m.Has(InCreate|InIsDir))
	assert.False(t, m.Has(InCreate|InDelete))
	assert.False(t, m.Has(0))
	assert.False(t, InCloseWrite.Has(InClose))
	assert.True(t, InClose.Has(InCloseNowrite))
}

func TestDescribeTypes(t *testing.T) {
	tests := []struct {
		mask Mask
		want string
	}{
		{0, ""},
		{InAccess, "IN_ACCESS"},
		{InCreate | InIsDir, "IN_CREATE IN_ISDIR"},
		{InIsDir | InCreate, "IN_CREATE IN_ISDIR"},
		{InCloseWrite, "IN_CLOSE_WRITE"},
		{InClose, "IN_CLOSE_WRITE IN_CLOSE_NOWRITE IN_CLOSE"},
		{InMove, "IN_MOVED_FROM IN_MOVED_TO IN_MOVE"},
		{InDeleteSelf | InMoveSelf, "IN_DELETE_SELF IN_MOVE_SELF"},
		{InQOverflow, "IN_Q_OVERFLOW"},
		{InIgnored | InUnmount, "IN_UNMOUNT IN_IGNORED"},
		{InOneshot | InModify, "IN_MODIFY IN_ONESHOT"},
		{InOnlyDir, ""},
	}
	for i, test := range tests {
		assert.Equal(t, test.want, DescribeTypes(test.mask), "i=%d", i)
	}
}

func TestMaskString(t *testing.T) {
	tests := []struct {
		mask Mask
		want string
	}{
		{0, "0"},
		{InCreate, "IN_CREATE"},
		{InAllEvents, "IN_ALL_EVENTS"},
		{InAllEvents | InOnlyDir, "IN_ALL_EVENTS,IN_ONLYDIR"},
		{InMove | InCreate, "IN_MOVE,IN_CREATE"},
		{InMovedFrom | InCloseWrite, "IN_CLOSE_WRITE,IN_MOVED_FROM"},
		{InClose | InOneshot, "IN_CLOSE,IN_ONESHOT"},
		{InCreate | 0x00010000, "IN_CREATE,0x10000"},
	}
	for i, test := range tests {
		assert.Equal(t, test.want, test.mask.String(), "i=%d", i)
	}
}

func TestParseMask(t *testing.T) {
	tests := []struct {
		s    string
		want Mask
	}{
		{"IN_CREATE", InCreate},
		{"IN_CREATE,IN_DELETE", InCreate | InDelete},
		{" IN_CREATE | IN_ISDIR ", InCreate | InIsDir},
		{"IN_ALL_EVENTS", InAllEvents},
		{"IN_MOVE,IN_ONLYDIR,IN_DONT_FOLLOW", InMove | InOnlyDir | InDontFollow},
		{"256", InCreate},
		{"0x300", InCreate | InDelete},
		{"IN_CLOSE,,IN_OPEN", InClose | InOpen},
	}
	for i, test := range tests {
		m, err := ParseMask(test.s)
		require.NoError(t, err, "i=%d", i)
		assert.Equal(t, test.want, m, "i=%d", i)
	}
}

func TestParseMaskInvalid(t *testing.T) {
	for _, s := range []string{"", "  ", "IN_CRATE", "IN_CREATE,bogus", ",,"} {
		_, err := ParseMask(s)
		assert.Error(t, err, "s=%q", s)
	}
}

func TestParseMaskStringRoundTrip(t *testing.T) {
	for _, m := range []Mask{
		InCreate,
		InAllEvents | InOneshot,
		InMove | InCloseNowrite | InDontFollow,
		InMaskAdd | InModify,
	} {
		got, err := ParseMask(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestMaskNames(t *testing.T) {
	names := MaskNames()
	assert.Equal(t, "IN_ACCESS", names[0])
	assert.Contains(t, names, "IN_ALL_EVENTS")
	for _, name := range names {
		m, err := ParseMask(name)
		require.NoError(t, err, name)
		assert.NotZero(t, m, name)
	}
}

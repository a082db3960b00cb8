// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

package inotify

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	// HeaderSize is the size of the fixed part of a record: wd, mask, cookie
	// and len, in that order, in host byte order.
	HeaderSize = unix.SizeofInotifyEvent

	// MaxRecordSize is the largest record the kernel delivers: a header
	// followed by a NUL terminated name of at most NAME_MAX bytes.
	MaxRecordSize = HeaderSize + unix.NAME_MAX + 1

	// BufferSize is the capacity of a single read, and so bounds the number
	// of events one Wait call can queue.
	BufferSize = 64 * MaxRecordSize
)

// decode parses b as a sequence of back-to-back records. It either decodes
// every record in b or none of them.
func decode(b []byte) ([]Event, error) {
	var events []Event
	for off := 0; off < len(b); {
		if len(b)-off < HeaderSize {
			return nil, &DecodeError{Offset: off, Len: len(b),
				Reason: fmt.Sprintf("%d bytes left, header needs %d", len(b)-off, HeaderSize)}
		}
		var (
			wd      = int32(binary.NativeEndian.Uint32(b[off:]))
			mask    = Mask(binary.NativeEndian.Uint32(b[off+4:]))
			cookie  = binary.NativeEndian.Uint32(b[off+8:])
			namelen = binary.NativeEndian.Uint32(b[off+12:])
		)
		if mask == 0 {
			return nil, &DecodeError{Offset: off, Len: len(b), Reason: "zero mask"}
		}
		start := off + HeaderSize
		if uint64(namelen) > uint64(len(b)-start) {
			return nil, &DecodeError{Offset: off, Len: len(b),
				Reason: fmt.Sprintf("name length %d overruns %d remaining bytes", namelen, len(b)-start)}
		}
		ev := Event{wd: wd, mask: mask, cookie: cookie}
		if namelen > 0 {
			name := b[start : start+int(namelen)]
			if i := bytes.IndexByte(name, 0); i != -1 {
				name = name[:i]
			}
			ev.name, ev.hasName = string(name), len(name) > 0
		}
		events = append(events, ev)
		off = start + int(namelen)
	}
	return events, nil
}

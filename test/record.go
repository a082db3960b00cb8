//go:build linux

package test

import (
	"encoding/binary"

	"github.com/JekaMas/inotify"
)

// Record encodes a single record. A non-empty name is NUL terminated and
// padded to a multiple of 16 bytes, like the kernel does.
func Record(wd int32, mask inotify.Mask, cookie uint32, name string) []byte {
	n := 0
	if name != "" {
		n = (len(name) + 1 + 15) &^ 15
	}
	return RecordLen(wd, mask, cookie, name, n)
}

// RecordLen encodes a single record with the len field set to namelen. Name
// bytes not covered by namelen are dropped, the rest is NUL filled.
func RecordLen(wd int32, mask inotify.Mask, cookie uint32, name string, namelen int) []byte {
	p := make([]byte, inotify.HeaderSize+namelen)
	binary.NativeEndian.PutUint32(p[0:], uint32(wd))
	binary.NativeEndian.PutUint32(p[4:], uint32(mask))
	binary.NativeEndian.PutUint32(p[8:], cookie)
	binary.NativeEndian.PutUint32(p[12:], uint32(namelen))
	copy(p[inotify.HeaderSize:], name)
	return p
}

// Stream concatenates records back to back.
func Stream(records ...[]byte) []byte {
	var p []byte
	for _, r := range records {
		p = append(p, r...)
	}
	return p
}

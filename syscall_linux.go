// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

package inotify

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// Kernel is the set of inotify system calls a Channel is built on. Errors are
// expected to be raw errnos (unix.Errno), so that EINTR and EINVAL can be told
// apart.
type Kernel interface {
	Init() (fd int, err error)
	AddWatch(fd int, path string, mask uint32) (wd int32, err error)
	RmWatch(fd int, wd int32) error
	Read(fd int, p []byte) (n int, err error)
	// Poll reports whether fd is readable within timeout. A negative timeout
	// blocks.
	Poll(fd int, timeout time.Duration) (bool, error)
	Close(fd int) error
}

// unixKernel implements Kernel with inotify(7).
type unixKernel struct{}

func (unixKernel) Init() (int, error) {
	return unix.InotifyInit1(unix.IN_CLOEXEC)
}

func (unixKernel) AddWatch(fd int, path string, mask uint32) (int32, error) {
	wd, err := unix.InotifyAddWatch(fd, path, mask)
	if err != nil {
		return NoHandle, err
	}
	return int32(wd), nil
}

func (unixKernel) RmWatch(fd int, wd int32) error {
	// BUG(goauthors) : watch descriptor is of type `int`, not `uint32`
	_, err := unix.InotifyRmWatch(fd, uint32(wd))
	return err
}

func (unixKernel) Read(fd int, p []byte) (int, error) {
	return unix.Read(fd, p)
}

func (unixKernel) Poll(fd int, timeout time.Duration) (bool, error) {
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, ms)
	if errors.Is(err, unix.EINTR) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
}

func (unixKernel) Close(fd int) error {
	return unix.Close(fd)
}

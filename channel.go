// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

package inotify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sys/unix"
)

// InterruptPolicy tells Wait what to do when a read is interrupted by a signal.
type InterruptPolicy int

const (
	// FailOnInterrupt makes Wait return ErrInterrupted.
	FailOnInterrupt InterruptPolicy = iota
	// RetryOnInterrupt makes Wait repeat the read.
	RetryOnInterrupt
)

const closedFd = -1

// Channel owns an inotify instance, the watches registered with it and the
// queue of decoded events not yet consumed.
//
// A Channel is not safe for concurrent use. Either serialize all calls or
// dedicate one goroutine to it and hand the popped events over to others.
type Channel struct {
	k       Kernel
	fd      int
	watches map[int32]*Watch
	queue   []Event
	buf     []byte
	log     Logger
}

// Open creates new Channel backed by inotify(7).
func Open() (*Channel, error) {
	return OpenKernel(unixKernel{})
}

// OpenKernel creates new Channel on top of the given system calls.
func OpenKernel(k Kernel) (*Channel, error) {
	fd, err := k.Init()
	if err != nil {
		return nil, &ResourceError{Err: os.NewSyscallError("inotify_init1", err)}
	}
	c := &Channel{
		k:       k,
		fd:      fd,
		watches: make(map[int32]*Watch),
		buf:     make([]byte, BufferSize),
		log:     nopLogger{},
	}
	runtime.SetFinalizer(c, (*Channel).Close)
	return c, nil
}

// SetLogger routes debug messages to l. A nil l discards them.
func (c *Channel) SetLogger(l Logger) {
	if l == nil {
		l = nopLogger{}
	}
	c.log = l
}

// Fd gives the inotify descriptor, or -1 after Close. It may be used for
// readiness checks; reading from it directly desynchronizes the Channel.
func (c *Channel) Fd() int { return c.fd }

func (c *Channel) closed() bool { return c.fd == closedFd }

// AddWatch registers w with the kernel. On failure w stays unregistered and
// the registry is left untouched.
func (c *Channel) AddWatch(w *Watch) error {
	if c.closed() {
		return &WatchError{Op: "add", Path: w.path, Err: ErrClosed}
	}
	if w.Registered() {
		return &WatchError{Op: "add", Path: w.path, Err: ErrRegistered}
	}
	wd, err := c.k.AddWatch(c.fd, w.path, uint32(w.mask))
	if err != nil {
		return &WatchError{Op: "add", Path: w.path, Err: os.NewSyscallError("inotify_add_watch", err)}
	}
	if other, ok := c.watches[wd]; ok {
		c.restore(other)
		return &WatchError{Op: "add", Path: w.path,
			Err: fmt.Errorf("%w: %q (wd=%d)", ErrAliased, other.path, wd)}
	}
	w.wd, w.gone = wd, false
	c.watches[wd] = w
	c.log.Debugf("inotify: added wd=%d %s", wd, w)
	return nil
}

// Rewatch re-arms the registered watch w with a new mask. The kernel is
// expected to keep the handle of w; if the path now resolves to another object
// the new registration is undone and an error is returned.
func (c *Channel) Rewatch(w *Watch, mask Mask) error {
	if c.closed() {
		return &WatchError{Op: "rewatch", Path: w.path, Err: ErrClosed}
	}
	if err := c.owned(w); err != nil {
		return &WatchError{Op: "rewatch", Path: w.path, Err: err}
	}
	wd, err := c.k.AddWatch(c.fd, w.path, uint32(mask&^InMaskCreate))
	if err != nil {
		return &WatchError{Op: "rewatch", Path: w.path, Err: os.NewSyscallError("inotify_add_watch", err)}
	}
	if wd != w.wd {
		if other, ok := c.watches[wd]; ok {
			c.restore(other)
			return &WatchError{Op: "rewatch", Path: w.path,
				Err: fmt.Errorf("%w: %q (wd=%d)", ErrAliased, other.path, wd)}
		}
		if err := c.k.RmWatch(c.fd, wd); err != nil {
			c.log.Debugf("inotify: undoing wd=%d failed: %v", wd, err)
		}
		return &WatchError{Op: "rewatch", Path: w.path,
			Err: fmt.Errorf("path resolves to another object (wd=%d, want %d)", wd, w.wd)}
	}
	w.mask = mask
	c.log.Debugf("inotify: rewatched wd=%d %s", wd, w)
	return nil
}

// restore re-applies the mask of w after another registration replaced it.
func (c *Channel) restore(w *Watch) {
	if _, err := c.k.AddWatch(c.fd, w.path, uint32(w.mask&^(InMaskAdd|InMaskCreate))); err != nil {
		c.log.Debugf("inotify: restoring mask of wd=%d failed: %v", w.wd, err)
	}
}

// owned checks w is registered with c.
func (c *Channel) owned(w *Watch) error {
	if !w.Registered() {
		if w.gone {
			return ErrWatchGone
		}
		return ErrNotRegistered
	}
	if c.watches[w.wd] != w {
		return ErrNotRegistered
	}
	return nil
}

// RemoveWatch deregisters w.
//
// If the kernel already dropped the watch (its target was deleted, moved
// to another filesystem or unmounted, or it was a oneshot watch that fired)
// the error wraps ErrWatchGone and w is unregistered. Any other failure
// leaves w registered.
func (c *Channel) RemoveWatch(w *Watch) error {
	if c.closed() {
		return &WatchError{Op: "remove", Path: w.path, Err: ErrClosed}
	}
	if err := c.owned(w); err != nil {
		return &WatchError{Op: "remove", Path: w.path, Err: err}
	}
	if err := c.k.RmWatch(c.fd, w.wd); err != nil {
		if errors.Is(err, unix.EINVAL) {
			c.retire(w)
			return &WatchError{Op: "remove", Path: w.path,
				Err: fmt.Errorf("%w (%w)", ErrWatchGone, os.NewSyscallError("inotify_rm_watch", err))}
		}
		return &WatchError{Op: "remove", Path: w.path, Err: os.NewSyscallError("inotify_rm_watch", err)}
	}
	c.log.Debugf("inotify: removed wd=%d %s", w.wd, w)
	delete(c.watches, w.wd)
	w.wd, w.gone = NoHandle, false
	return nil
}

// retire drops w after the kernel invalidated its handle.
func (c *Channel) retire(w *Watch) {
	c.log.Debugf("inotify: wd=%d dropped by the kernel %s", w.wd, w)
	delete(c.watches, w.wd)
	w.wd, w.gone = NoHandle, true
}

// RemoveAll deregisters every watch, ignoring errors: the kernel may have
// dropped some of them already.
func (c *Channel) RemoveAll() {
	for wd, w := range c.watches {
		if !c.closed() {
			if err := c.k.RmWatch(c.fd, wd); err != nil {
				c.log.Debugf("inotify: removing wd=%d: %v", wd, err)
			}
		}
		w.wd, w.gone = NoHandle, false
	}
	clear(c.watches)
}

// Close removes all watches and releases the inotify descriptor. Calling
// Close more than once is a no-op.
func (c *Channel) Close() error {
	if c.closed() {
		return nil
	}
	c.RemoveAll()
	err := c.k.Close(c.fd)
	c.fd = closedFd
	c.queue = nil
	runtime.SetFinalizer(c, nil)
	if err != nil {
		return os.NewSyscallError("close", err)
	}
	return nil
}

// Ready reports whether a Wait call would not block, waiting at most timeout
// for that. A negative timeout waits indefinitely.
func (c *Channel) Ready(timeout time.Duration) (bool, error) {
	if c.closed() {
		return false, ErrClosed
	}
	ok, err := c.k.Poll(c.fd, timeout)
	if err != nil {
		return false, &ReadError{Err: os.NewSyscallError("poll", err)}
	}
	return ok, nil
}

// Wait blocks until the kernel delivers events, decodes everything a single
// read returned and appends it to the queue. It gives the number of queued
// events.
//
// ReadError and DecodeError leave the Channel in an undefined state; it
// should be closed.
func (c *Channel) Wait(policy InterruptPolicy) (int, error) {
	if c.closed() {
		return 0, ErrClosed
	}
	var (
		n   int
		err error
	)
	for {
		n, err = c.k.Read(c.fd, c.buf)
		if !errors.Is(err, unix.EINTR) {
			break
		}
		if policy != RetryOnInterrupt {
			return 0, ErrInterrupted
		}
		c.log.Debugf("inotify: read interrupted, retrying")
	}
	switch {
	case err != nil:
		return 0, &ReadError{Err: os.NewSyscallError("read", err)}
	case n == 0:
		return 0, &ReadError{Err: io.EOF}
	case n < 0 || n > len(c.buf):
		return 0, &ReadError{Err: fmt.Errorf("invalid read length %d", n)}
	}
	events, err := decode(c.buf[:n])
	if err != nil {
		return 0, err
	}
	for i := range events {
		w, ok := c.watches[events[i].wd]
		if !ok {
			continue
		}
		events[i].path = w.path
		if events[i].mask&InIgnored != 0 {
			c.retire(w)
		}
	}
	c.queue = append(c.queue, events...)
	c.log.Debugf("inotify: read %d bytes, %d events queued", n, len(c.queue))
	return len(events), nil
}

// Len gives the number of queued events.
func (c *Channel) Len() int { return len(c.queue) }

// Pop removes and returns the earliest queued event.
func (c *Channel) Pop() (Event, error) {
	ev, err := c.Peek()
	if err != nil {
		return ev, err
	}
	c.queue[0] = Event{}
	if c.queue = c.queue[1:]; len(c.queue) == 0 {
		c.queue = nil
	}
	return ev, nil
}

// Peek returns the earliest queued event without removing it.
func (c *Channel) Peek() (Event, error) {
	if c.closed() {
		return Event{}, ErrClosed
	}
	if len(c.queue) == 0 {
		return Event{}, ErrEmptyQueue
	}
	return c.queue[0], nil
}

// FindWatch gives the registered watch with the given handle. Unknown handles
// are expected, e.g. for IN_Q_OVERFLOW or for events of a removed watch.
func (c *Channel) FindWatch(handle int32) (*Watch, bool) {
	w, ok := c.watches[handle]
	return w, ok
}

// Watches gives the registered watches ordered by handle.
func (c *Channel) Watches() []*Watch {
	ws := make([]*Watch, 0, len(c.watches))
	for _, w := range c.watches {
		ws = append(ws, w)
	}
	slices.SortFunc(ws, func(a, b *Watch) int { return int(a.wd) - int(b.wd) })
	return ws
}

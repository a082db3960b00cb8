//go:build linux

package test

import (
	"time"

	"golang.org/x/sys/unix"

	"github.com/JekaMas/inotify"
)

// Read is a single scripted result of Kernel.Read.
type Read struct {
	Data []byte
	Err  error
}

// Kernel is a scripted inotify.Kernel. It assigns handles the way the kernel
// does: one per object, reused when the same object is watched again.
type Kernel struct {
	InitErr  error
	AddErr   map[string]error // failures of AddWatch, per path
	RmErr    map[int32]error  // failures of RmWatch, per handle
	CloseErr error
	Reads    []Read
	// Alias maps a path to the object it resolves to. Paths without an entry
	// resolve to themselves.
	Alias map[string]string

	Fd      int
	Masks   map[int32]uint32 // kernel side mask, per live handle
	Removed []int32          // handles passed to a successful RmWatch
	Closed  int              // number of Close calls

	next  int32
	byObj map[string]int32
}

// NewKernel gives new Kernel with no scripted reads.
func NewKernel() *Kernel {
	return &Kernel{
		AddErr: make(map[string]error),
		RmErr:  make(map[int32]error),
		Alias:  make(map[string]string),
		Masks:  make(map[int32]uint32),
		byObj:  make(map[string]int32),
	}
}

// Feed appends a successful read returning p.
func (k *Kernel) Feed(p ...[]byte) {
	k.Reads = append(k.Reads, Read{Data: Stream(p...)})
}

// Fail appends a failed read.
func (k *Kernel) Fail(err error) {
	k.Reads = append(k.Reads, Read{Err: err})
}

// Drop makes the kernel forget wd, as if its target was deleted, and queues
// the IN_IGNORED record the kernel would deliver.
func (k *Kernel) Drop(wd int32) {
	k.forget(wd)
	k.Feed(Record(wd, inotify.InIgnored, 0, ""))
}

func (k *Kernel) forget(wd int32) {
	delete(k.Masks, wd)
	for obj, w := range k.byObj {
		if w == wd {
			delete(k.byObj, obj)
		}
	}
}

// Init implements inotify.Kernel.
func (k *Kernel) Init() (int, error) {
	if k.InitErr != nil {
		return -1, k.InitErr
	}
	k.Fd = 3
	return k.Fd, nil
}

// AddWatch implements inotify.Kernel.
func (k *Kernel) AddWatch(fd int, path string, mask uint32) (int32, error) {
	if err := k.AddErr[path]; err != nil {
		return -1, err
	}
	obj := path
	if a, ok := k.Alias[path]; ok {
		obj = a
	}
	if wd, ok := k.byObj[obj]; ok {
		switch {
		case mask&unix.IN_MASK_CREATE != 0:
			return -1, unix.EEXIST
		case mask&unix.IN_MASK_ADD != 0:
			k.Masks[wd] |= mask &^ unix.IN_MASK_ADD
		default:
			k.Masks[wd] = mask
		}
		return wd, nil
	}
	k.next++
	k.byObj[obj] = k.next
	k.Masks[k.next] = mask &^ (unix.IN_MASK_ADD | unix.IN_MASK_CREATE)
	return k.next, nil
}

// RmWatch implements inotify.Kernel.
func (k *Kernel) RmWatch(fd int, wd int32) error {
	if err := k.RmErr[wd]; err != nil {
		return err
	}
	if _, ok := k.Masks[wd]; !ok {
		return unix.EINVAL
	}
	k.forget(wd)
	k.Removed = append(k.Removed, wd)
	return nil
}

// Read implements inotify.Kernel. With no scripted reads left it reports end
// of stream.
func (k *Kernel) Read(fd int, p []byte) (int, error) {
	if len(k.Reads) == 0 {
		return 0, nil
	}
	r := k.Reads[0]
	k.Reads = k.Reads[1:]
	if r.Err != nil {
		return -1, r.Err
	}
	return copy(p, r.Data), nil
}

// Poll implements inotify.Kernel. It reports readiness when a scripted read
// is pending and never sleeps.
func (k *Kernel) Poll(fd int, timeout time.Duration) (bool, error) {
	return len(k.Reads) != 0, nil
}

// Close implements inotify.Kernel.
func (k *Kernel) Close(fd int) error {
	k.Closed++
	return k.CloseErr
}

//go:build linux

package test

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JekaMas/inotify"
)

// Actions maps an event to a filesystem action on path that produces it.
type Actions map[inotify.Mask]func(path string) error

// DefaultActions produce the events most tests are interested in.
var DefaultActions = Actions{
	inotify.InCreate: func(p string) error {
		f, err := os.Create(p)
		if err != nil {
			return err
		}
		return f.Close()
	},
	inotify.InDelete: func(p string) error {
		return os.RemoveAll(p)
	},
	inotify.InModify: func(p string) error {
		f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return err
		}
		if _, err = f.WriteString(p); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
	inotify.InAttrib: func(p string) error {
		return os.Chmod(p, 0600)
	},
	inotify.InMovedFrom: func(p string) error {
		return os.Rename(p, p+".moved")
	},
	inotify.InAccess: func(p string) error {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		if _, err = f.Read([]byte{0x00}); err != nil && err != io.EOF {
			f.Close()
			return err
		}
		return f.Close()
	},
}

// Timeout bounds the time ExpectEvents waits for the kernel.
var Timeout = time.Second

// FS is a fixture binding a real inotify Channel to a temporary directory.
type FS struct {
	T       *testing.T
	Dir     string
	Channel *inotify.Channel
	Actions Actions
}

// NewFS gives new fixture. The test is skipped when the kernel refuses to
// create an inotify instance. Everything is cleaned up when the test ends.
func NewFS(t *testing.T) *FS {
	c, err := inotify.Open()
	if err != nil {
		var rerr *inotify.ResourceError
		if errors.As(err, &rerr) {
			t.Skipf("inotify unavailable: %v", err)
		}
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return &FS{T: t, Dir: t.TempDir(), Channel: c, Actions: DefaultActions}
}

// Path gives the absolute path of name within the fixture directory.
func (fs *FS) Path(name string) string {
	return filepath.Join(fs.Dir, filepath.FromSlash(name))
}

// Exec performs the action producing event on name.
func (fs *FS) Exec(event inotify.Mask, name string) {
	fs.T.Helper()
	fn, ok := fs.Actions[event]
	if !ok {
		fs.T.Fatalf("no action for %v", event)
	}
	require.NoError(fs.T, fn(fs.Path(name)), "exec %v %q", event, name)
}

// Watch registers a watch for name with the given mask.
func (fs *FS) Watch(name string, mask inotify.Mask) *inotify.Watch {
	fs.T.Helper()
	w := inotify.NewWatch(fs.Path(name), mask)
	require.NoError(fs.T, fs.Channel.AddWatch(w))
	return w
}

// ExpectEvents waits until at least n events are queued and pops them.
func (fs *FS) ExpectEvents(n int) []inotify.Event {
	fs.T.Helper()
	deadline := time.Now().Add(Timeout)
	for fs.Channel.Len() < n {
		left := time.Until(deadline)
		if left <= 0 {
			fs.T.Fatalf("want %d events; got %d after %v", n, fs.Channel.Len(), Timeout)
		}
		ok, err := fs.Channel.Ready(left)
		require.NoError(fs.T, err)
		if !ok {
			continue
		}
		_, err = fs.Channel.Wait(inotify.RetryOnInterrupt)
		require.NoError(fs.T, err)
	}
	events := make([]inotify.Event, 0, n)
	for k := 0; k < n; k++ {
		ev, err := fs.Channel.Pop()
		require.NoError(fs.T, err)
		events = append(events, ev)
	}
	return events
}

// String implements fmt.Stringer interface.
func (fs *FS) String() string {
	return fmt.Sprintf("test.FS{%s, %d watches}", fs.Dir, len(fs.Channel.Watches()))
}

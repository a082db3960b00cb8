// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

package inotify_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JekaMas/inotify"
	"github.com/JekaMas/inotify/test"
)

func TestInotifyCreate(t *testing.T) {
	fs := test.NewFS(t)
	w := fs.Watch("", inotify.InCreate)

	fs.Exec(inotify.InCreate, "foo.txt")
	events := fs.ExpectEvents(1)

	ev := events[0]
	assert.Equal(t, w.Handle(), ev.Handle())
	assert.True(t, ev.IsOfType(inotify.InCreate))
	assert.False(t, ev.IsDir())
	name, ok := ev.Name()
	assert.True(t, ok)
	assert.Equal(t, "foo.txt", name)
	assert.Equal(t, fs.Path("foo.txt"), ev.Path())
	assert.Equal(t, 0, fs.Channel.Len())
}

func TestInotifyMaskSubset(t *testing.T) {
	fs := test.NewFS(t)
	fs.Watch("", inotify.InCreate|inotify.InDelete)

	require.NoError(t, os.Mkdir(fs.Path("dir"), 0755))
	ev := fs.ExpectEvents(1)[0]
	assert.True(t, ev.IsOfType(inotify.InCreate|inotify.InIsDir))
	assert.False(t, ev.IsOfType(inotify.InDelete))
}

func TestInotifyMovePair(t *testing.T) {
	fs := test.NewFS(t)
	fs.Exec(inotify.InCreate, "a")
	fs.Watch("", inotify.InMove)

	fs.Exec(inotify.InMovedFrom, "a")
	events := fs.ExpectEvents(2)

	from, to := events[0], events[1]
	assert.True(t, from.IsOfType(inotify.InMovedFrom))
	assert.True(t, to.IsOfType(inotify.InMovedTo))
	assert.NotZero(t, from.Cookie())
	assert.Equal(t, from.Cookie(), to.Cookie())
	name, _ := to.Name()
	assert.Equal(t, "a.moved", name)
}

func TestInotifyNonexistentPath(t *testing.T) {
	fs := test.NewFS(t)
	w := inotify.NewWatch(fs.Path("nonexistent"), inotify.InCreate)

	before := len(fs.Channel.Watches())
	err := fs.Channel.AddWatch(w)
	var werr *inotify.WatchError
	require.True(t, errors.As(err, &werr), "got %v", err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, inotify.NoHandle, w.Handle())
	assert.Equal(t, before, len(fs.Channel.Watches()))
}

func TestInotifyDeleteSelf(t *testing.T) {
	fs := test.NewFS(t)
	require.NoError(t, os.Mkdir(fs.Path("sub"), 0755))
	w := fs.Watch("sub", inotify.InDeleteSelf)
	wd := w.Handle()

	require.NoError(t, os.Remove(fs.Path("sub")))
	events := fs.ExpectEvents(2)
	assert.True(t, events[0].IsOfType(inotify.InDeleteSelf))
	assert.True(t, events[1].IsOfType(inotify.InIgnored))
	for _, ev := range events {
		assert.Equal(t, wd, ev.Handle())
		_, ok := ev.Name()
		assert.False(t, ok)
	}

	assert.False(t, w.Registered())
	err := fs.Channel.RemoveWatch(w)
	assert.True(t, errors.Is(err, inotify.ErrWatchGone), "got %v", err)
}

func TestInotifyRemoveWatch(t *testing.T) {
	fs := test.NewFS(t)
	w := fs.Watch("", inotify.InCreate)
	wd := w.Handle()
	require.NoError(t, fs.Channel.RemoveWatch(w))
	assert.False(t, w.Registered())

	// The kernel acknowledges the removal with IN_IGNORED for a handle the
	// Channel no longer knows.
	ev := fs.ExpectEvents(1)[0]
	assert.True(t, ev.IsOfType(inotify.InIgnored))
	assert.Equal(t, wd, ev.Handle())
	_, ok := fs.Channel.FindWatch(wd)
	assert.False(t, ok)
}

func TestInotifyRewatch(t *testing.T) {
	fs := test.NewFS(t)
	w := fs.Watch("", inotify.InDelete)
	wd := w.Handle()
	require.NoError(t, fs.Channel.Rewatch(w, inotify.InCreate))
	assert.Equal(t, wd, w.Handle())

	fs.Exec(inotify.InCreate, "x")
	ev := fs.ExpectEvents(1)[0]
	assert.True(t, ev.IsOfType(inotify.InCreate))
}

func TestInotifyAliasedPaths(t *testing.T) {
	fs := test.NewFS(t)
	require.NoError(t, os.Mkdir(fs.Path("real"), 0755))
	require.NoError(t, os.Symlink(fs.Path("real"), fs.Path("link")))
	a := fs.Watch("real", inotify.InCreate)

	b := inotify.NewWatch(filepath.Join(fs.Dir, "link"), inotify.InDelete)
	err := fs.Channel.AddWatch(b)
	assert.True(t, errors.Is(err, inotify.ErrAliased), "got %v", err)
	assert.False(t, b.Registered())

	fs.Exec(inotify.InCreate, "real/x")
	ev := fs.ExpectEvents(1)[0]
	assert.Equal(t, a.Handle(), ev.Handle())
	assert.True(t, ev.IsOfType(inotify.InCreate), "mask of the first watch is restored")
}

func TestInotifyClose(t *testing.T) {
	fs := test.NewFS(t)
	w := fs.Watch("", inotify.InCreate)
	require.NoError(t, fs.Channel.Close())
	require.NoError(t, fs.Channel.Close())
	assert.False(t, w.Registered())
	assert.Empty(t, fs.Channel.Watches())
}

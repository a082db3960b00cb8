// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

package dispatch_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JekaMas/inotify"
	"github.com/JekaMas/inotify/internal/dispatch"
	"github.com/JekaMas/inotify/internal/logger"
	"github.com/JekaMas/inotify/test"
)

var discard = logger.New("test", io.Discard)

func TestHandlerCommand(t *testing.T) {
	h, err := dispatch.NewHandler("r", `echo {{.Path}} $@ $# $% $& $$HOME "{{.Events}}"`, discard)
	require.NoError(t, err)
	words, err := h.Command(dispatch.Job{
		Path:   "/srv/in/a.csv",
		Watch:  "/srv/in",
		Name:   "a.csv",
		Events: "CLOSE_WRITE ISDIR",
		Mask:   8,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"echo", "/srv/in/a.csv", "/srv/in", "a.csv", "CLOSE_WRITE,ISDIR", "8", "$HOME", "CLOSE_WRITE ISDIR",
	}, words)
}

func TestHandlerCommandValues(t *testing.T) {
	tests := []struct {
		text string
		name string
		want []string
	}{
		{"process {{.Path}}", "a b.csv", []string{"process", "/srv/in/a b.csv"}},
		{"process {{.Path}}", "it's.csv", []string{"process", "/srv/in/it's.csv"}},
		{"process $@/$# --name={{.Name}}", `x "y".csv`, []string{"process", `/srv/in/x "y".csv`, `--name=x "y".csv`}},
		{"process $@/$#", "{{.Watch}}", []string{"process", "/srv/in/{{.Watch}}"}},
		{`sh -c "mv '{{.Path}}' /srv/out"`, "a b", []string{"sh", "-c", "mv '/srv/in/a b' /srv/out"}},
	}
	for _, test := range tests {
		h, err := dispatch.NewHandler("r", test.text, discard)
		require.NoError(t, err, test.text)
		words, err := h.Command(dispatch.Job{
			Path:  "/srv/in/" + test.name,
			Watch: "/srv/in",
			Name:  test.name,
		})
		require.NoError(t, err, test.text)
		assert.Equal(t, test.want, words, test.name)
	}
}

func TestHandlerCommandInvalid(t *testing.T) {
	for _, text := range []string{
		`{{.Name}} x`,
		`echo {{.Nope}}`,
	} {
		h, err := dispatch.NewHandler("r", text, discard)
		require.NoError(t, err, text)
		_, err = h.Command(dispatch.Job{})
		assert.Error(t, err, text)
	}
	for _, text := range []string{
		"echo {{.Path",
		`echo "abc`,
		"",
		"  ",
	} {
		_, err := dispatch.NewHandler("r", text, discard)
		assert.Error(t, err, text)
	}
}

func TestNewJob(t *testing.T) {
	k := test.NewKernel()
	c, err := inotify.OpenKernel(k)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.AddWatch(inotify.NewWatch("/srv", inotify.InAllEvents)))
	k.Feed(
		test.Record(1, inotify.InMovedTo|inotify.InIsDir, 42, "sub"),
		test.Record(1, inotify.InDeleteSelf, 0, ""),
	)
	_, err = c.Wait(inotify.FailOnInterrupt)
	require.NoError(t, err)

	ev, err := c.Pop()
	require.NoError(t, err)
	assert.Equal(t, dispatch.Job{
		Path:   "/srv/sub",
		Watch:  "/srv",
		Name:   "sub",
		Events: "IN_MOVED_TO IN_ISDIR",
		Mask:   uint32(inotify.InMovedTo | inotify.InIsDir),
		Cookie: 42,
	}, dispatch.NewJob("/srv", ev))

	ev, err = c.Pop()
	require.NoError(t, err)
	j := dispatch.NewJob("/srv", ev)
	assert.Equal(t, "/srv", j.Path)
	assert.Empty(t, j.Name)
}

func TestHandlerRun(t *testing.T) {
	d := t.TempDir()
	out := filepath.Join(d, "env")
	h, err := dispatch.NewHandler("r", `sh -c "echo $INOTIFY_EVENT $INOTIFY_PATH > `+out+`"`, discard)
	require.NoError(t, err)
	require.NoError(t, h.Run(context.Background(), dispatch.Job{Path: "/srv/a", Events: "CREATE"}))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "CREATE /srv/a\n", string(b))

	h, err = dispatch.NewHandler("r", "false", discard)
	require.NoError(t, err)
	assert.Error(t, h.Run(context.Background(), dispatch.Job{}))
}

// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

// Command inotify prints inotify events of the given paths or runs commands
// on them, as described by a rule table.
//
// Usage
//
//	usage: inotify watch [-e mask] [-m] path...
//	       inotify run -t table [--log-level level] [--metrics-listen addr]
//	       inotify masks
//
// The watch command registers a watch on every path with the -e mask, which
// is a comma or pipe separated list of flags like IN_CREATE,IN_DELETE or a
// number. It prints the path and the flags of every event and exits after the
// first batch of events, unless -m is given.
//
// The run command loads a rule table and runs the command of a rule whenever
// one of its events fires. A table is either a TOML file (.toml extension):
//
//	log_level = "INFO"
//	metrics_listen = "127.0.0.1:9464"
//
//	[[rule]]
//	path = "/srv/incoming"
//	events = "IN_CLOSE_WRITE,IN_MOVED_TO"
//	command = "process {{.Path}}"
//	match = "*.csv"
//
// or an incrontab-like file with one "path mask command" rule per line. The
// command is split into command and args like a shell would, then every word
// is filled in using the syntax of package template and the result is run
// using exec.Command(). A value never spans more than the word it is used in,
// so template actions containing spaces must be quoted. The struct being
// passed to the template is:
//
//	type Job struct {
//		Path   string
//		Watch  string
//		Name   string
//		Events string
//		Mask   uint32
//		Cookie uint32
//	}
//
// The incron wildcards $@, $#, $%, $& and $$ are expanded as well. Additionally
// the path and event values are accessible to the process via INOTIFY_PATH and
// INOTIFY_EVENT environment variables. A rule whose mask carries IN_NO_LOOP
// has its watch disabled while its command runs.
//
// The masks command lists the known mask flags.
//
// Example usage
//
//	~ $ inotify watch -m -e IN_CREATE,IN_DELETE /tmp
//	/tmp/notify.tmp IN_CREATE
//	/tmp/notify.tmp IN_DELETE
//	...
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/JekaMas/inotify"
	"github.com/JekaMas/inotify/internal/dispatch"
	"github.com/JekaMas/inotify/internal/logger"
	"github.com/JekaMas/inotify/internal/table"
)

type cli struct {
	Watch watchCmd `cmd:"" help:"Print events of the given paths"`
	Run   runCmd   `cmd:"" help:"Run the commands of a rule table"`
	Masks masksCmd `cmd:"" help:"List the known mask flags"`
}

type watchCmd struct {
	Events  string   `short:"e" default:"IN_ALL_EVENTS" help:"Events to watch for"`
	Monitor bool     `short:"m" help:"Keep printing events instead of exiting after the first ones"`
	Paths   []string `arg:"" name:"path" help:"Paths to watch"`
}

type runCmd struct {
	Table         string `short:"t" required:"" type:"existingfile" help:"Rule table, TOML or incrontab"`
	LogLevel      string `name:"log-level" env:"INOTIFY_LOG_LEVEL" help:"Log level, overrides the table"`
	MetricsListen string `name:"metrics-listen" env:"INOTIFY_METRICS_LISTEN" help:"Metrics listen address, overrides the table"`
}

type masksCmd struct{}

var (
	typeColor = color.New(color.FgCyan, color.Bold)
	pathColor = color.New(color.FgWhite, color.Faint)
)

func main() {
	l := logger.New("inotify", os.Stderr)
	var params cli
	kctx := kong.Parse(&params,
		kong.Name("inotify"),
		kong.Description("Watch paths for inotify events."),
		kong.UsageOnError(),
	)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.BindTo(l, (*logger.Logger)(nil))
	kctx.BindTo(os.Stdout, (*io.Writer)(nil))
	if err := kctx.Run(); err != nil {
		l.Logf(logger.ERROR, "%v", err)
		os.Exit(1)
	}
}

// Run implements the watch command.
func (w *watchCmd) Run(ctx context.Context, l logger.Logger, out io.Writer) error {
	mask, err := inotify.ParseMask(w.Events)
	if err != nil {
		return err
	}
	c, err := inotify.Open()
	if err != nil {
		return err
	}
	defer c.Close()
	for _, p := range w.Paths {
		if err := c.AddWatch(inotify.NewWatch(p, mask)); err != nil {
			return err
		}
		l.Debugf("watching %s for %s", p, mask)
	}
	for ctx.Err() == nil {
		ok, err := c.Ready(250 * time.Millisecond)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if _, err := c.Wait(inotify.RetryOnInterrupt); err != nil {
			return err
		}
		for {
			ev, err := c.Pop()
			if errors.Is(err, inotify.ErrEmptyQueue) {
				break
			}
			if err != nil {
				return err
			}
			printEvent(out, ev)
		}
		if !w.Monitor {
			return nil
		}
	}
	return nil
}

// printEvent writes ev in "path EVENTS" form. Events of unknown watches,
// e.g. IN_Q_OVERFLOW, are printed with a "?" path.
func printEvent(out io.Writer, ev inotify.Event) {
	path := ev.Path()
	if path == "" {
		path = "?"
	}
	fmt.Fprintln(out, pathColor.Sprint(path), typeColor.Sprint(ev.DescribeTypes()))
}

// Run implements the run command.
func (r *runCmd) Run(ctx context.Context, l logger.Logger) error {
	tab, err := table.Load(r.Table)
	if err != nil {
		return fmt.Errorf("%s: %w", r.Table, err)
	}
	if err := applyLevel(l, r.LogLevel, tab.LogLevel); err != nil {
		return err
	}
	if addr := first(r.MetricsListen, tab.MetricsListen); addr != "" {
		dispatch.ServeMetrics(ctx, addr, l)
	}
	runner, err := dispatch.Open(tab.Rules, l)
	if err != nil {
		return err
	}
	defer runner.Close()
	l.Logf(logger.NOTICE, "running %d rules from %s", len(tab.Rules), r.Table)
	return runner.Run(ctx)
}

// applyLevel sets the first non-empty level of levels, leaving the logger
// default when all of them are empty.
func applyLevel(l logger.Logger, levels ...string) error {
	s := first(levels...)
	if s == "" {
		return nil
	}
	level, err := logger.ParseLevel(s)
	if err != nil {
		return err
	}
	l.SetLevel(level)
	return nil
}

func first(s ...string) string {
	for _, s := range s {
		if s != "" {
			return s
		}
	}
	return ""
}

// Run implements the masks command.
func (masksCmd) Run(out io.Writer) error {
	for _, name := range inotify.MaskNames() {
		m, err := inotify.ParseMask(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-16s 0x%08x\n", name, uint32(m))
	}
	return nil
}

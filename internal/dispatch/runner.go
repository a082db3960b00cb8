// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

// Package dispatch runs the commands of a rule table as the events of their
// watches arrive.
package dispatch

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/JekaMas/inotify"
	"github.com/JekaMas/inotify/internal/logger"
	"github.com/JekaMas/inotify/internal/table"
)

// PollInterval bounds how long Run blocks before checking its context.
var PollInterval = 250 * time.Millisecond

// QueueSize is the number of jobs a busy rule command may have pending before
// further events of the rule are dropped.
var QueueSize = 16

// binding is a rule registered with a Runner.
type binding struct {
	rule    *table.Rule
	handler *Handler
	jobs    chan<- Job
}

// group is the single watch shared by all the rules of one path.
type group struct {
	watch    *inotify.Watch
	bindings []*binding
}

// Runner drives a Channel and dispatches its events to rule commands.
type Runner struct {
	c      *inotify.Channel
	log    logger.Logger
	groups []*group
	bound  map[int32]*group
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Open creates a Runner on a new inotify instance.
func Open(rules []*table.Rule, log logger.Logger) (*Runner, error) {
	c, err := inotify.Open()
	if err != nil {
		return nil, err
	}
	r, err := New(c, rules, log)
	if err != nil {
		c.Close()
		return nil, err
	}
	return r, nil
}

// New registers rules with c. Rules of the same path share a watch whose mask
// is the union of theirs. A rule whose path cannot be watched is logged and
// skipped; New fails only when no rule could be registered. The Runner owns c
// from now on.
func New(c *inotify.Channel, rules []*table.Rule, log logger.Logger) (*Runner, error) {
	c.SetLogger(log)
	r := &Runner{
		c:     c,
		log:   log,
		bound: make(map[int32]*group),
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	byPath := make(map[string]*group)
	for _, rule := range rules {
		h, err := NewHandler(rule.Path, rule.Command, log)
		if err != nil {
			log.Logf(logger.ERROR, "%s: command template: %v", rule.Path, err)
			continue
		}
		p := filepath.Clean(rule.Path)
		g, ok := byPath[p]
		if !ok {
			g = &group{watch: inotify.NewWatch(p, 0)}
			byPath[p] = g
			r.groups = append(r.groups, g)
		}
		_ = g.watch.SetMask(g.watch.Mask() | rule.Mask) // not registered yet
		g.bindings = append(g.bindings, &binding{rule: rule, handler: h})
	}
	var live []*group
	for _, g := range r.groups {
		if err := c.AddWatch(g.watch); err != nil {
			log.Logf(logger.ERROR, "cannot watch %s: %v", g.watch.Path(), err)
			continue
		}
		for _, b := range g.bindings {
			if !b.rule.NoLoop {
				b.jobs = b.handler.Daemon(r.ctx, &r.wg, QueueSize)
			}
		}
		r.bound[g.watch.Handle()] = g
		live = append(live, g)
		log.Logf(logger.INFO, "watching %s for %s", g.watch.Path(), g.watch.Mask())
	}
	r.groups = live
	metricWatches.Set(float64(len(r.bound)))
	if len(live) == 0 {
		r.cancel()
		return nil, errors.New("no rule could be watched")
	}
	return r, nil
}

// Run dispatches events until ctx is done or the Channel fails.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := r.Once(ctx); err != nil {
			return err
		}
	}
}

// Once waits up to PollInterval for events and dispatches all of them.
func (r *Runner) Once(ctx context.Context) error {
	ok, err := r.c.Ready(PollInterval)
	if err != nil || !ok {
		return err
	}
	n, err := r.c.Wait(inotify.RetryOnInterrupt)
	if err != nil {
		return err
	}
	metricEventsDecoded.Add(float64(n))
	for {
		ev, err := r.c.Pop()
		if errors.Is(err, inotify.ErrEmptyQueue) {
			return nil
		}
		if err != nil {
			return err
		}
		r.dispatch(ctx, ev)
	}
}

func (r *Runner) dispatch(ctx context.Context, ev inotify.Event) {
	if ev.IsOfType(inotify.InQOverflow) {
		metricQueueOverflows.Inc()
		r.log.Logf(logger.WARNING, "event queue overflow, events were lost")
		return
	}
	g, ok := r.bound[ev.Handle()]
	if !ok {
		r.log.Debugf("dropping %v: no rule", ev)
		return
	}
	if ev.IsOfType(inotify.InIgnored) {
		delete(r.bound, ev.Handle())
		metricWatches.Set(float64(len(r.bound)))
		r.log.Logf(logger.NOTICE, "%s is no longer watched", g.watch.Path())
		return
	}
	r.log.Debugf("%v", ev)
	for _, b := range g.bindings {
		if ev.Mask()&b.rule.Mask&(inotify.InAllEvents|inotify.InUnmount) == 0 {
			continue
		}
		if !b.rule.Matches(ev.Name()) {
			continue
		}
		j := NewJob(g.watch.Path(), ev)
		if b.rule.NoLoop {
			r.runNoLoop(ctx, g, b, j)
			continue
		}
		select {
		case b.jobs <- j:
			metricEventsDispatched.WithLabelValues(b.rule.Path).Inc()
		default:
			metricEventsDropped.WithLabelValues(b.rule.Path).Inc()
			r.log.Logf(logger.WARNING, "%s: command busy, dropping %s", b.rule.Path, j.Events)
		}
	}
}

// runNoLoop runs the command of b with the watch of g disabled. Events which
// arrive for the old watch in the meantime are dropped. When the watch cannot
// be disabled the command runs with the watch left in place.
func (r *Runner) runNoLoop(ctx context.Context, g *group, b *binding, j Job) {
	wd := g.watch.Handle()
	if err := r.c.RemoveWatch(g.watch); err != nil && !errors.Is(err, inotify.ErrWatchGone) {
		r.log.Logf(logger.WARNING, "%s: cannot disable watch: %v", g.watch.Path(), err)
	}
	if !g.watch.Registered() {
		delete(r.bound, wd)
	}
	metricEventsDispatched.WithLabelValues(b.rule.Path).Inc()
	if err := b.handler.Run(ctx, j); err != nil {
		metricCommandFailures.WithLabelValues(b.rule.Path).Inc()
		r.log.Logf(logger.ERROR, "%s: handler error: %v", b.rule.Path, err)
	}
	if g.watch.Registered() {
		return
	}
	if err := r.c.AddWatch(g.watch); err != nil {
		r.log.Logf(logger.ERROR, "%s: cannot re-enable watch: %v", g.watch.Path(), err)
		metricWatches.Set(float64(len(r.bound)))
		return
	}
	r.bound[g.watch.Handle()] = g
}

// Watches gives the watches still bound to rules.
func (r *Runner) Watches() []*inotify.Watch {
	var ws []*inotify.Watch
	for _, g := range r.groups {
		if _, ok := r.bound[g.watch.Handle()]; ok && g.watch.Registered() {
			ws = append(ws, g.watch)
		}
	}
	return ws
}

// Close stops the rule commands, waits for the running ones and closes the
// Channel.
func (r *Runner) Close() error {
	for _, g := range r.groups {
		for _, b := range g.bindings {
			if b.jobs != nil {
				close(b.jobs)
				b.jobs = nil
			}
		}
	}
	r.wg.Wait()
	r.cancel()
	return r.c.Close()
}

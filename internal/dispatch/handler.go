// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"text/template"

	"github.com/kballard/go-shellquote"

	"github.com/JekaMas/inotify"
	"github.com/JekaMas/inotify/internal/logger"
)

// Job is what a rule command is rendered from. Its fields are available to
// the command template, e.g. {{.Path}}.
type Job struct {
	Path   string // subject of the event: watched path joined with Name
	Watch  string // watched path
	Name   string // entry name, empty for events on the watched object
	Events string // event flags, space separated
	Mask   uint32
	Cookie uint32
}

// NewJob describes ev, which originated from a watch on path.
func NewJob(path string, ev inotify.Event) Job {
	name, _ := ev.Name()
	j := Job{
		Path:   path,
		Watch:  path,
		Name:   name,
		Events: ev.DescribeTypes(),
		Mask:   uint32(ev.Mask()),
		Cookie: ev.Cookie(),
	}
	if name != "" {
		j.Path = filepath.Join(path, name)
	}
	return j
}

var environ = newenv()

// newenv gives the process environment stripped of INOTIFY_* variables, which
// are set per job.
func newenv() []string {
	var env []string
	for _, s := range os.Environ() {
		if strings.HasPrefix(s, "INOTIFY_PATH=") || strings.HasPrefix(s, "INOTIFY_EVENT=") {
			continue
		}
		env = append(env, s)
	}
	return env
}

// EventList gives the event flags separated by commas, as the $% wildcard
// expands to.
func (j Job) EventList() string {
	return strings.ReplaceAll(j.Events, " ", ",")
}

// wildcards rewrites the incron wildcards into template actions, so that
// their values are never parsed again.
var wildcards = strings.NewReplacer(
	"$$", "$",
	"$@", "{{.Watch}}",
	"$#", "{{.Name}}",
	"$%", "{{.EventList}}",
	"$&", "{{.Mask}}",
)

// Handler runs the command of a single rule.
type Handler struct {
	words []*template.Template
	log   logger.Logger
	name  string
}

// NewHandler splits the command text into words and parses every word as a
// template. The incron wildcards $@ (watched path), $# (entry name), $%
// (event flags, comma separated), $& (numeric mask) and $$ (a dollar sign)
// are accepted within each word.
func NewHandler(name, text string, log logger.Logger) (*Handler, error) {
	words, err := shellquote.Split(text)
	if err != nil {
		return nil, fmt.Errorf("command is invalid: %w", err)
	}
	if len(words) == 0 {
		return nil, errors.New("command is empty")
	}
	h := &Handler{log: log, name: name}
	for i, word := range words {
		tmpl, err := template.New(name + "#" + strconv.Itoa(i)).Option("missingkey=error").Parse(wildcards.Replace(word))
		if err != nil {
			return nil, err
		}
		h.words = append(h.words, tmpl)
	}
	return h, nil
}

// Command renders the words of the command for j. Each word stays a single
// argument whatever the values filled into it contain.
func (h *Handler) Command(j Job) ([]string, error) {
	words := make([]string, 0, len(h.words))
	var buf bytes.Buffer
	for _, tmpl := range h.words {
		buf.Reset()
		if err := tmpl.Execute(&buf, j); err != nil {
			return nil, err
		}
		words = append(words, buf.String())
	}
	if words[0] == "" {
		return nil, errors.New("command is empty")
	}
	return words, nil
}

// Run executes the command for j and waits for it to finish.
func (h *Handler) Run(ctx context.Context, j Job) error {
	words, err := h.Command(j)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, words[0], words[1:]...)
	cmd.Env = append(environ[:len(environ):len(environ)],
		"INOTIFY_PATH="+j.Path,
		"INOTIFY_EVENT="+j.Events,
	)
	out, err := cmd.CombinedOutput()
	if len(out) != 0 {
		h.log.Debugf("%s: command output: %s", h.name, out)
	}
	return err
}

// Daemon runs jobs sent to the returned channel one at a time, until the
// channel is closed. Done is called once the last job finished.
func (h *Handler) Daemon(ctx context.Context, wg *sync.WaitGroup, queue int) chan<- Job {
	c := make(chan Job, queue)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := range c {
			if err := h.Run(ctx, j); err != nil {
				metricCommandFailures.WithLabelValues(h.name).Inc()
				h.log.Logf(logger.ERROR, "%s: handler error: %v", h.name, err)
			}
		}
	}()
	return c
}

// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

//go:build linux

// Package table loads the rules run by the inotify command: which path to
// watch, for which events, and what command to run when they fire.
//
// Rules come either from a TOML file:
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
// or from an incrontab-like text file with one "path mask command" rule per
// line.
package table

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"

	"github.com/JekaMas/inotify"
)

// NoLoop is the incrontab flag disabling the watch of a rule while its
// command runs, so that the command does not trigger itself.
const NoLoop = "IN_NO_LOOP"

var errEmptyLine = errors.New("empty line")

type (
	// Rule binds a watch to a command.
	Rule struct {
		Path    string
		Mask    inotify.Mask
		Command string
		Match   string // glob matched against event names, empty matches all
		NoLoop  bool

		glob glob.Glob
	}

	// Table is a loaded rule file.
	Table struct {
		LogLevel      string
		MetricsListen string
		Rules         []*Rule
	}

	tomlConfig struct {
		LogLevel      string     `toml:"log_level"`
		MetricsListen string     `toml:"metrics_listen"`
		Rules         []tomlRule `toml:"rule"`
	}
	tomlRule struct {
		Path    string `toml:"path"`
		Events  string `toml:"events"`
		Command string `toml:"command"`
		Match   string `toml:"match"`
		NoLoop  bool   `toml:"no_loop"`
	}
)

// NewRule validates the rule fields and compiles its glob.
func NewRule(path string, mask inotify.Mask, command, match string, noLoop bool) (*Rule, error) {
	if path == "" {
		return nil, errors.New("rule path is empty")
	}
	if mask == 0 {
		return nil, fmt.Errorf("rule %s: empty mask", path)
	}
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("rule %s: empty command", path)
	}
	r := &Rule{Path: path, Mask: mask, Command: command, Match: match, NoLoop: noLoop}
	if match != "" {
		g, err := glob.Compile(match)
		if err != nil {
			return nil, fmt.Errorf("rule %s: match %q: %w", path, match, err)
		}
		r.glob = g
	}
	return r, nil
}

// Matches reports whether an event with the given name is subject to the
// rule. Events on the watched object itself have no name and always match.
func (r *Rule) Matches(name string, ok bool) bool {
	if r.glob == nil || !ok {
		return true
	}
	return r.glob.Match(name)
}

// String gives the rule in incrontab form.
func (r *Rule) String() string {
	mask := r.Mask.String()
	if r.NoLoop {
		mask += "," + NoLoop
	}
	return escapePath(r.Path) + " " + mask + " " + r.Command
}

// ParseMask parses an incrontab mask, which is an inotify mask optionally
// carrying the IN_NO_LOOP flag.
func ParseMask(s string) (mask inotify.Mask, noLoop bool, err error) {
	var names []string
	for _, name := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' }) {
		if strings.TrimSpace(name) == NoLoop {
			noLoop = true
			continue
		}
		names = append(names, name)
	}
	mask, err = inotify.ParseMask(strings.Join(names, ","))
	return mask, noLoop, err
}

// ParseLine parses a single "path mask command" incrontab line. Spaces and
// backslashes in the path are escaped with a backslash.
func ParseLine(line string) (*Rule, error) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return nil, errEmptyLine
	}
	path, rest := splitPath(line)
	rest = strings.TrimLeft(rest, " \t")
	i := strings.IndexAny(rest, " \t")
	if path == "" || i == -1 {
		return nil, fmt.Errorf("want \"path mask command\"; got %q", line)
	}
	mask, noLoop, err := ParseMask(rest[:i])
	if err != nil {
		return nil, err
	}
	return NewRule(path, mask, strings.TrimSpace(rest[i:]), "", noLoop)
}

func splitPath(line string) (path, rest string) {
	var sb strings.Builder
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == '\\' && i+1 < len(line):
			i++
			sb.WriteByte(line[i])
		case c == ' ' || c == '\t':
			return sb.String(), line[i:]
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), ""
}

func escapePath(p string) string {
	return strings.NewReplacer(`\`, `\\`, " ", `\ `, "\t", "\\\t").Replace(p)
}

// Parse reads incrontab rules from r. Blank lines and lines starting with #
// are skipped.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{}
	s := bufio.NewScanner(r)
	for n := 1; s.Scan(); n++ {
		rule, err := ParseLine(s.Text())
		if errors.Is(err, errEmptyLine) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		t.Rules = append(t.Rules, rule)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Load reads the rule file at path. Files with the .toml extension are read
// as TOML, anything else as incrontab text.
func Load(path string) (*Table, error) {
	if filepath.Ext(path) != ".toml" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return Parse(f)
	}
	var d tomlConfig
	if _, err := toml.DecodeFile(path, &d); err != nil {
		return nil, err
	}
	t := &Table{LogLevel: d.LogLevel, MetricsListen: d.MetricsListen}
	for i, r := range d.Rules {
		mask, noLoop, err := ParseMask(r.Events)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		rule, err := NewRule(r.Path, mask, r.Command, r.Match, noLoop || r.NoLoop)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		t.Rules = append(t.Rules, rule)
	}
	return t, nil
}

// WriteTo writes the table in incrontab form.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, r := range t.Rules {
		m, err := fmt.Fprintln(w, r)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

// Package logger provides the levelled, colourised logger used by the
// inotify command.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

type LogLevel int

const (
	NOTSET LogLevel = iota
	DEBUG
	INFO
	NOTICE
	WARNING
	ERROR
)

func AllLevels() []LogLevel {
	return []LogLevel{
		NOTSET,
		DEBUG,
		INFO,
		NOTICE,
		WARNING,
		ERROR,
	}
}

func (l LogLevel) String() string {
	return [...]string{"NOTSET", "DEBUG", "INFO", "NOTICE", "WARNING", "ERROR"}[l]
}

// ParseLevel gives the level named s.
func ParseLevel(s string) (LogLevel, error) {
	for _, l := range AllLevels() {
		if l.String() == strings.ToUpper(strings.TrimSpace(s)) {
			return l, nil
		}
	}
	names := make([]string, 0, len(AllLevels()))
	for _, l := range AllLevels() {
		names = append(names, l.String())
	}
	return NOTSET, fmt.Errorf(
		"invalid log level. expected one of: %s (got %s)",
		strings.Join(names, ", "),
		s,
	)
}

type Logger interface {
	Logf(level LogLevel, format string, a ...any)
	Debugf(format string, a ...any)
	SetLevel(level LogLevel)
}

func New(appName string, stream io.Writer) Logger {
	return &logger{
		appName: appName,
		stream:  stream,
		level:   INFO,
	}
}

type logger struct {
	mu      sync.Mutex
	appName string
	stream  io.Writer
	level   LogLevel
}

var (
	output        = color.New(color.FgWhite, color.Faint).FprintlnFunc()
	outputNotice  = color.New(color.FgCyan).FprintlnFunc()
	outputError   = color.New(color.FgRed, color.Faint).FprintlnFunc()
	outputWarning = color.New(color.FgYellow, color.Faint).FprintlnFunc()
)

// SetLevel implements Logger.
func (l *logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Debugf implements Logger.
func (l *logger) Debugf(format string, a ...any) {
	l.Logf(DEBUG, format, a...)
}

// Logf implements Logger.
func (l *logger) Logf(level LogLevel, format string, a ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	fn := output
	switch level {
	case NOTICE:
		fn = outputNotice
	case WARNING:
		fn = outputWarning
	case ERROR:
		fn = outputError
	}
	fn(
		l.stream,
		l.appName,
		level.String(),
		strings.TrimSpace(fmt.Sprintf(format, a...)),
	)
}

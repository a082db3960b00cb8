// Copyright (c) 2014-2015 The Notify Authors. All rights reserved.
// Use of this source code is governed by the MIT license that can be
// found in the LICENSE file.

package inotify

// Logger receives debug messages from a Channel. internal/logger.Logger
// satisfies it.
type Logger interface {
	Debugf(format string, a ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

// Copyright 2026 The concatfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"log"
	"strings"
)

// legacyLevelFunc is one of Tracef/Debugf/.../Errorf, captured once so
// legacyLogWriter doesn't need to re-dispatch on severity for every line.
type legacyLevelFunc func(format string, v ...interface{})

// legacyLogWriter adapts our structured logger to the io.Writer a
// *log.Logger needs. jacobsa/fuse's fuse.MountConfig.ErrorLogger and
// DebugLogger both expect a *log.Logger, not a slog.Logger, so this
// bridges the two the way gcsfuse's logger.NewLegacyLogger does.
type legacyLogWriter struct {
	logf legacyLevelFunc
}

func (w legacyLogWriter) Write(p []byte) (int, error) {
	w.logf("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// NewLegacyLogger returns a *log.Logger whose output is routed through the
// default structured logger at the given severity, with prefix prepended
// to every line. It exists solely to satisfy fuse.MountConfig.ErrorLogger
// and DebugLogger, which predate slog.
func NewLegacyLogger(severity string, prefix string) *log.Logger {
	var logf legacyLevelFunc
	switch severity {
	case "TRACE":
		logf = Tracef
	case "DEBUG":
		logf = Debugf
	case "WARNING":
		logf = Warnf
	case "ERROR":
		logf = Errorf
	default:
		logf = Infof
	}

	return log.New(legacyLogWriter{logf: logf}, prefix, 0)
}

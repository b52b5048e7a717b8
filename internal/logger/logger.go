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

// Package logger provides the process-wide structured logger, a thin
// severity ladder and text/JSON rendering built on top of log/slog. The
// shape (a package-level default logger plus a swappable factory struct)
// follows gcsfuse's internal/logger package.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schlaile/concatfs/cfg"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(16)
)

var severityToSlogLevel = map[string]slog.Level{
	cfg.TRACE:   LevelTrace,
	cfg.DEBUG:   LevelDebug,
	cfg.INFO:    LevelInfo,
	cfg.WARNING: LevelWarn,
	cfg.ERROR:   LevelError,
	cfg.OFF:     LevelOff,
}

var slogLevelNames = map[slog.Level]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARNING",
	LevelError: "ERROR",
}

// loggerFactory owns the writer and formatting choices behind
// defaultLogger, so that Init/SetLogFormat can rebuild the handler without
// callers needing to re-acquire a logger reference.
type loggerFactory struct {
	format string
	level  *slog.LevelVar
	file   *lumberjack.Logger // nil when logging to stderr
}

var defaultLoggerFactory = &loggerFactory{
	format: "text",
	level:  levelVar(cfg.INFO),
}

var defaultLogger = slog.New(defaultLoggerFactory.handler(os.Stderr))

func levelVar(severity string) *slog.LevelVar {
	v := new(slog.LevelVar)
	v.Set(severityToSlogLevel[severity])
	return v
}

// Init (re)configures the default logger from a LoggingConfig. When
// FilePath is set, output goes through a lumberjack.Logger for rotation
// according to LogRotate; otherwise output goes to stderr.
func Init(c cfg.LoggingConfig) error {
	format := c.Format
	if format == "" {
		format = "text"
	}

	lvl := c.Severity
	if lvl == "" {
		lvl = cfg.INFO
	}
	if _, ok := severityToSlogLevel[lvl]; !ok {
		return fmt.Errorf("logger: unknown severity %q", lvl)
	}

	factory := &loggerFactory{
		format: format,
		level:  levelVar(lvl),
	}

	var w io.Writer = os.Stderr
	if c.FilePath != "" {
		rotate := c.LogRotate
		if rotate == (cfg.LogRotateConfig{}) {
			rotate = cfg.DefaultLogRotateConfig()
		}
		factory.file = &lumberjack.Logger{
			Filename:   c.FilePath,
			MaxSize:    rotate.MaxFileSizeMB,
			MaxBackups: rotate.BackupFileCount,
			Compress:   rotate.Compress,
		}
		w = factory.file
	}

	defaultLoggerFactory = factory
	defaultLogger = slog.New(factory.handler(w))
	return nil
}

// SetLogFormat switches the default logger's rendering between "text" and
// "json" without touching its severity or destination.
func SetLogFormat(format string) {
	defaultLoggerFactory.format = format

	w := io.Writer(os.Stderr)
	if defaultLoggerFactory.file != nil {
		w = defaultLoggerFactory.file
	}
	defaultLogger = slog.New(defaultLoggerFactory.handler(w))
}

// handler builds a slog.Handler rendering either as single-line text
// ("time=... severity=... message=...") or as JSON
// ({"timestamp":{...},"severity":...,"message":...}), matching the two
// formats gcsfuse's own logger supports.
func (f *loggerFactory) handler(w io.Writer) slog.Handler {
	return &lineHandler{w: w, format: f.format, level: f.level}
}

// lineHandler is a minimal slog.Handler: concatfs's log lines carry a
// fixed (time, severity, message) shape with no structured attributes, so
// a hand-rolled handler is simpler and more predictable than wiring
// slog.TextHandler/JSONHandler's generic attribute machinery for a shape
// they were not designed to produce.
type lineHandler struct {
	w      io.Writer
	format string
	level  *slog.LevelVar
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	severity := slogLevelNames[r.Level]
	if severity == "" {
		severity = r.Level.String()
	}

	if h.format == "json" {
		_, err := fmt.Fprintf(h.w,
			"{\"timestamp\":{\"seconds\":%d,\"nanos\":%d},\"severity\":%q,\"message\":%q}\n",
			r.Time.Unix(), r.Time.Nanosecond(), severity, r.Message)
		return err
	}

	_, err := fmt.Fprintf(h.w, "time=%q severity=%s message=%q\n",
		r.Time.Format("2006/01/02 15:04:05.000000"), severity, r.Message)
	return err
}

func (h *lineHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *lineHandler) WithGroup(string) slog.Handler      { return h }

func logf(level slog.Level, format string, v ...interface{}) {
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func Tracef(format string, v ...interface{}) { logf(LevelTrace, format, v...) }
func Debugf(format string, v ...interface{}) { logf(LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(LevelError, format, v...) }

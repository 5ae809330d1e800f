// Package logging wraps github.com/charmbracelet/log to satisfy the
// engine's logger consumer contract (spec §6):
// {info|warn|error}({flow, src, message, data?}). The teacher repo
// (BeadsLog) declares gopkg.in/natefinch/lumberjack.v2 in go.mod without
// wiring it; here it backs rotation for the one long-running process in
// this module, the `delta watch` daemon.
package logging

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the consumer contract every Tracker, Runner and the
// MigrationService log through.
type Logger interface {
	Info(flow, src, message string, data ...any)
	Warn(flow, src, message string, data ...any)
	Error(flow, src, message string, data ...any)
}

type charmLogger struct {
	inner *charmlog.Logger
}

// New builds a Logger writing to w in the charmbracelet/log default
// text format. Pass os.Stderr for interactive use.
func New(w io.Writer) Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02T15:04:05Z07:00",
	})
	return &charmLogger{inner: l}
}

// NewRotating builds a Logger that writes to both stderr and a
// lumberjack-rotated file at path, for long-running processes like
// `delta watch`.
func NewRotating(path string, maxSizeMB, maxBackups, maxAgeDays int) Logger {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	w := io.MultiWriter(os.Stderr, rotator)
	return New(w)
}

func (c *charmLogger) Info(flow, src, message string, data ...any) {
	c.inner.With("flow", flow, "src", src).Info(message, data...)
}

func (c *charmLogger) Warn(flow, src, message string, data ...any) {
	c.inner.With("flow", flow, "src", src).Warn(message, data...)
}

func (c *charmLogger) Error(flow, src, message string, data ...any) {
	c.inner.With("flow", flow, "src", src).Error(message, data...)
}

// Discard is a Logger that drops everything, useful for tests.
var Discard Logger = discardLogger{}

type discardLogger struct{}

func (discardLogger) Info(string, string, string, ...any)  {}
func (discardLogger) Warn(string, string, string, ...any)  {}
func (discardLogger) Error(string, string, string, ...any) {}

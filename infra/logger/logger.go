// Package logger provides the zerolog-backed implementation of the core
// logging interface, plus a silent logger for tests.
package logger

import corelogger "github.com/aapatcall/roadassist/core/logger"

// Logger re-exports the core interface so infra and app code do not need a
// second import for the common case.
type Logger = corelogger.Logger

// NopLogger discards everything. Tests inject it to keep output quiet.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

// New returns the standard logger for a component. Output format and level
// come from the APP_ENV and LOG_LEVEL environment variables.
func New(component string) Logger {
	return NewZerologLogger(component)
}

// Package logger defines the logging contract the core packages depend on.
// Adapters live in infra/logger; keeping the interface here lets the dispatch
// engine, relay and signaling code log without importing zerolog.
package logger

// Logger is the leveled logging surface used throughout the service.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Package telemetry provides the event sink services emit business events
// to. It is passed explicitly so tests can swap in Noop.
package telemetry

import "log/slog"

type Events interface {
	Event(name string, attrs ...any)
}

// Logger emits events through slog.
type Logger struct {
	log *slog.Logger
}

func NewLogger(log *slog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Event(name string, attrs ...any) {
	l.log.Info(name, attrs...)
}

// Noop discards all events.
type Noop struct{}

func (Noop) Event(string, ...any) {}

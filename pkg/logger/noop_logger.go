package logger

import "context"

type noopLogger struct{}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(context.Context, string, ...Field)        {}
func (l *noopLogger) Info(context.Context, string, ...Field)         {}
func (l *noopLogger) Warn(context.Context, string, ...Field)         {}
func (l *noopLogger) Error(context.Context, string, error, ...Field) {}
func (l *noopLogger) Fatal(context.Context, string, error, ...Field) {}

func (l *noopLogger) WithFields(...Field) Logger   { return l }
func (l *noopLogger) WithComponent(string) Logger { return l }

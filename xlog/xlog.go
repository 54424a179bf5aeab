// Package xlog is a thin structured-logging facade over go.uber.org/zap,
// scoped to what this module needs: named, levelled loggers with
// key/value fields. It intentionally does not reproduce the teacher's
// full logging package (net appenders, a global registry, per-component
// dynamic levels) — none of that has an analog at this module's scope.
package xlog

import "go.uber.org/zap"

// Logger wraps a zap.SugaredLogger under a component name.
type Logger struct {
	sugar *zap.SugaredLogger
	name  string
}

// New creates a named logger backed by a production zap configuration.
// If zap fails to build (should not happen with the default config), a
// no-op logger is returned rather than panicking at package init time.
func New(name string) *Logger {
	base, err := zap.NewProduction()
	if err != nil {
		base = zap.NewNop()
	}
	return &Logger{sugar: base.Sugar().Named(name), name: name}
}

// Debugw logs at debug level with key/value fields.
func (l *Logger) Debugw(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }

// Infow logs at info level with key/value fields.
func (l *Logger) Infow(msg string, kv ...interface{}) { l.sugar.Infow(msg, kv...) }

// Warnw logs at warn level with key/value fields.
func (l *Logger) Warnw(msg string, kv ...interface{}) { l.sugar.Warnw(msg, kv...) }

// Errorw logs at error level with key/value fields.
func (l *Logger) Errorw(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error { return l.sugar.Sync() }

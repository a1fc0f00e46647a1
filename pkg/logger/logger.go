// Package logger provides the key/value logger used across klinik.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

// ErrInvalidFormat is returned for an unknown log format.
var ErrInvalidFormat = errors.New("invalid log format")

// Logger is a leveled logger taking alternating key/value pairs after the message.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)

	// With returns a Logger that adds kv to every entry.
	With(kv ...any) Logger
}

// Options configures New.
type Options struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string

	// Format is "text" or "json".
	Format string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// LogrusLogger implements Logger on top of a logrus.Logger.
type LogrusLogger struct {
	base   *logrus.Logger
	fields logrus.Fields
}

// New creates a LogrusLogger from options.
func New(opts Options) (*LogrusLogger, error) {
	base := logrus.New()

	level := opts.Level
	if level == "" {
		level = "info"
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", opts.Level)
	}

	base.SetLevel(lvl)

	switch strings.ToLower(opts.Format) {
	case "", "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Wrapf(ErrInvalidFormat, "%q", opts.Format)
	}

	if opts.Output != nil {
		base.SetOutput(opts.Output)
	} else {
		base.SetOutput(os.Stderr)
	}

	return NewLogrusLogger(base), nil
}

// NewLogrusLogger wraps an existing logrus.Logger.
func NewLogrusLogger(base *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{base: base, fields: logrus.Fields{}}
}

// Base returns the underlying logrus.Logger.
func (l *LogrusLogger) Base() *logrus.Logger {
	return l.base
}

func (l *LogrusLogger) Debug(msg string, kv ...any) {
	l.entry(kv).Debug(msg)
}

func (l *LogrusLogger) Info(msg string, kv ...any) {
	l.entry(kv).Info(msg)
}

func (l *LogrusLogger) Warn(msg string, kv ...any) {
	l.entry(kv).Warn(msg)
}

func (l *LogrusLogger) Error(msg string, kv ...any) {
	l.entry(kv).Error(msg)
}

// With returns a logger carrying the extra fields.
func (l *LogrusLogger) With(kv ...any) Logger {
	fields := make(logrus.Fields, len(l.fields)+len(kv)/2)
	for k, v := range l.fields {
		fields[k] = v
	}

	for k, v := range toFields(kv) {
		fields[k] = v
	}

	return &LogrusLogger{base: l.base, fields: fields}
}

func (l *LogrusLogger) entry(kv []any) *logrus.Entry {
	e := l.base.WithFields(l.fields)
	if len(kv) == 0 {
		return e
	}

	return e.WithFields(toFields(kv))
}

// toFields turns alternating key/value pairs into logrus fields. A dangling value is
// kept under "!BADKEY".
func toFields(kv []any) logrus.Fields {
	fields := make(logrus.Fields, len(kv)/2+1)

	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			fields["!BADKEY"] = kv[i]
			break
		}

		key, ok := kv[i].(string)
		if !ok {
			key = "!BADKEY"
		}

		if err, isErr := kv[i+1].(error); isErr {
			fields[key] = err.Error()
			continue
		}

		fields[key] = kv[i+1]
	}

	return fields
}

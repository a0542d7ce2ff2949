package log

import (
	"io"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
)

// Log wraps a logrus logger with the service name attached to every entry.
type Log struct {
	AppName string
	Logger  *logrus.Logger
}

// New returns a JSON logger writing to stdout at the given level (info when unparsable).
func New(appName, level string) Log {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return Log{AppName: appName, Logger: l}
}

// Discard is a logger that drops everything. Used by tests.
func Discard() Log {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return Log{AppName: "test", Logger: l}
}

func (l Log) entry(context, scope, meta string, skip int) *logrus.Entry {
	_, file, line, _ := runtime.Caller(skip)
	fields := logrus.Fields{
		"service": l.AppName,
		"context": context,
		"scope":   scope,
		"file":    file,
		"line":    line,
	}
	if meta != "" {
		fields["meta"] = meta
	}
	return l.Logger.WithFields(fields)
}

func (l Log) Info(context, message, scope, meta string) {
	if l.Logger == nil {
		return
	}
	l.entry(context, scope, meta, 2).Info(message)
}

func (l Log) Warn(context, message, scope, meta string) {
	if l.Logger == nil {
		return
	}
	l.entry(context, scope, meta, 2).Warn(message)
}

func (l Log) Error(context, message, scope, meta string) {
	if l.Logger == nil {
		return
	}
	l.entry(context, scope, meta, 2).Error(message)
}

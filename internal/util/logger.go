package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// LogLevel mirrors the level names accepted in the logging section of the config.
type LogLevel int

const (
	LogLevelOff LogLevel = iota
	LogLevelFatal
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// ParseLogLevel maps a config level name to a LogLevel. Unknown names map to INFO.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "OFF":
		return LogLevelOff
	case "FATAL":
		return LogLevelFatal
	case "ERROR":
		return LogLevelError
	case "WARN", "WARNING":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "OFF"
	case LogLevelFatal:
		return "FATAL"
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "INFO"
	}
}

// hclog has no fatal level; fatal messages are emitted at error level.
func (l LogLevel) hclogLevel() hclog.Level {
	switch l {
	case LogLevelOff:
		return hclog.Off
	case LogLevelFatal, LogLevelError:
		return hclog.Error
	case LogLevelWarn:
		return hclog.Warn
	case LogLevelDebug:
		return hclog.Debug
	default:
		return hclog.Info
	}
}

// Logger is a printf-style facade over an hclog.Logger.
type Logger struct {
	h    hclog.Logger
	exit func(int)
}

// New returns a logger writing to stdout with the service name as prefix.
func New(service string, level LogLevel) *Logger {
	return NewWithOutput(service, level, os.Stdout)
}

// NewWithOutput is New with an explicit destination, used by tests.
func NewWithOutput(service string, level LogLevel, out io.Writer) *Logger {
	h := hclog.New(&hclog.LoggerOptions{
		Name:                     service,
		Level:                    level.hclogLevel(),
		Output:                   out,
		IncludeLocation:          true,
		AdditionalLocationOffset: 1,
	})
	return &Logger{h: h, exit: os.Exit}
}

// SetLevel changes the level of this logger.
func (l *Logger) SetLevel(level LogLevel) {
	l.h.SetLevel(level.hclogLevel())
}

// Named returns a child logger whose name is appended to the parent's.
func (l *Logger) Named(name string) *Logger {
	return &Logger{h: l.h.Named(name), exit: l.exit}
}

// Hclog exposes the underlying structured logger for key/value call sites.
func (l *Logger) Hclog() hclog.Logger {
	return l.h
}

func (l *Logger) Printf(format string, args ...interface{}) {
	l.h.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.h.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.h.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.h.Error(fmt.Sprintf(format, args...))
}

// Fatalf logs at error level and terminates the process with status 1.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.h.Error(fmt.Sprintf(format, args...))
	l.exit(1)
}

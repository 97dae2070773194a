package logging

import (
	"bytes"
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel defines the severity of the message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Logger interface defines logging operations
//
//go:generate mockery --name=Logger --output=./mocks
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SetOutput(w io.Writer)
	SetLevel(level LogLevel)
}

// DefaultLogger is a zap-backed implementation of Logger. It is safe for
// concurrent use, including SetOutput while other goroutines log.
type DefaultLogger struct {
	level zap.AtomicLevel
	sugar atomic.Pointer[zap.SugaredLogger]
}

// NewDefaultLogger creates a new logger writing to stderr at INFO level
func NewDefaultLogger() *DefaultLogger {
	return NewLogger(os.Stderr, INFO)
}

// NewMockLogger returns a convenient mock logger for testing
func NewMockLogger() *DefaultLogger {
	return NewLogger(bytes.NewBufferString(""), INFO)
}

// NewLogger creates a logger writing to w at the given level
func NewLogger(w io.Writer, level LogLevel) *DefaultLogger {
	l := &DefaultLogger{level: zap.NewAtomicLevelAt(toZapLevel(level))}
	l.build(w)
	return l
}

// Debug logs debug messages
func (l *DefaultLogger) Debug(format string, args ...any) {
	l.sugar.Load().Debugf(format, args...)
}

// Info logs informational messages
func (l *DefaultLogger) Info(format string, args ...any) {
	l.sugar.Load().Infof(format, args...)
}

// Warn logs warning messages
func (l *DefaultLogger) Warn(format string, args ...any) {
	l.sugar.Load().Warnf(format, args...)
}

// Error logs error messages
func (l *DefaultLogger) Error(format string, args ...any) {
	l.sugar.Load().Errorf(format, args...)
}

// SetOutput sets the output destination for the logger
func (l *DefaultLogger) SetOutput(w io.Writer) {
	l.build(w)
}

// SetLevel sets the logging level
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

// Sync flushes any buffered log entries
func (l *DefaultLogger) Sync() error {
	return l.sugar.Load().Sync()
}

func (l *DefaultLogger) build(w io.Writer) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(w)),
		l.level,
	)
	l.sugar.Store(zap.New(core).Sugar())
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// StringToLogLevel converts a string representation to a LogLevel
func StringToLogLevel(level string) LogLevel {
	switch level {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

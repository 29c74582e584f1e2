package logger

import (
	"context"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the structured key/value logger used across the service.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
	With(keyvals ...any) Logger
}

type LogLevel string

const (
	DebugLevel    LogLevel = "debug"
	InfoLevel     LogLevel = "info"
	WarnLevel     LogLevel = "warn"
	ErrorLevel    LogLevel = "error"
	DisabledLevel LogLevel = "disabled"
)

// above every charm level, so nothing is printed
const silent = charmlog.Level(1000)

var charmLevels = map[LogLevel]charmlog.Level{
	DebugLevel:    charmlog.DebugLevel,
	InfoLevel:     charmlog.InfoLevel,
	WarnLevel:     charmlog.WarnLevel,
	ErrorLevel:    charmlog.ErrorLevel,
	DisabledLevel: silent,
}

func (l LogLevel) String() string { return string(l) }

// ToCharmlogLevel maps l to a charm level; unknown names map to info.
func (l LogLevel) ToCharmlogLevel() charmlog.Level {
	if lvl, ok := charmLevels[l]; ok {
		return lvl
	}
	return charmlog.InfoLevel
}

type Config struct {
	Level      LogLevel
	Output     io.Writer
	JSON       bool
	AddSource  bool
	TimeFormat string
}

const timeFormat = "15:04:05"

func DefaultConfig() *Config {
	return &Config{Level: InfoLevel, Output: os.Stdout, TimeFormat: timeFormat}
}

// TestConfig discards everything.
func TestConfig() *Config {
	return &Config{Level: DisabledLevel, Output: io.Discard, TimeFormat: timeFormat}
}

type charmLogger struct{ base *charmlog.Logger }

func (l *charmLogger) Debug(msg string, keyvals ...any) { l.base.Debug(msg, keyvals...) }
func (l *charmLogger) Info(msg string, keyvals ...any)  { l.base.Info(msg, keyvals...) }
func (l *charmLogger) Warn(msg string, keyvals ...any)  { l.base.Warn(msg, keyvals...) }
func (l *charmLogger) Error(msg string, keyvals ...any) { l.base.Error(msg, keyvals...) }

func (l *charmLogger) With(keyvals ...any) Logger {
	return &charmLogger{base: l.base.With(keyvals...)}
}

func NewLogger(cfg *Config) Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	formatter := charmlog.TextFormatter
	if cfg.JSON {
		formatter = charmlog.JSONFormatter
	}
	return &charmLogger{base: charmlog.NewWithOptions(out, charmlog.Options{
		Level:           cfg.Level.ToCharmlogLevel(),
		Formatter:       formatter,
		ReportCaller:    cfg.AddSource,
		CallerOffset:    1,
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
	})}
}

func NewForTests() Logger { return NewLogger(TestConfig()) }

type ContextKey string

const LoggerCtxKey ContextKey = "logger"

func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, LoggerCtxKey, l)
}

// FromContext returns the logger attached to ctx, or a default stdout logger.
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(LoggerCtxKey).(Logger); ok && l != nil {
			return l
		}
	}
	return NewLogger(nil)
}

// Package logger provides the structured logging surface shared across the
// das2 package: a zap.SugaredLogger built from an explicit EncoderConfig,
// with optional rotation-managed file output via lumberjack. It unifies the
// two independently-built zap loggers found in the retrieved corpus into one
// implementation.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func zapWriter() *os.File { return os.Stdout }

// Level names accepted by Options.Level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Options configures a Logger. Struct tags match the config package's
// elastic/go-ucfg convention so Options can be unpacked directly from a
// loaded configuration document.
type Options struct {
	Stdout     bool   `config:"stdout"`
	Level      string `config:"level"`
	Filename   string `config:"filename"`
	MaxSize    int    `config:"max_size_mb"`
	MaxAge     int    `config:"max_age_days"`
	MaxBackups int    `config:"max_backups"`
}

// DefaultOptions returns console output at info level.
func DefaultOptions() Options {
	return Options{Stdout: true, Level: LevelInfo}
}

// Logger wraps a zap.SugaredLogger with the four verbs this package's
// components call.
type Logger struct {
	s *zap.SugaredLogger
}

// New builds a Logger from Options. Stdout output uses a human-readable
// console encoder; file output (when Filename is set and Stdout is false)
// rotates via lumberjack and writes JSON lines.
func New(opt Options) Logger {
	level := toZapLevel(opt.Level)

	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		NameKey:        "logger",
		TimeKey:        "ts",
		CallerKey:      "caller",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var core zapcore.Core
	if opt.Stdout || opt.Filename == "" {
		encCfg.EncodeLevel = zapcore.LowercaseColorLevelEncoder
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(zapWriter()), level)
	} else {
		writer := &lumberjack.Logger{
			Filename:   opt.Filename,
			MaxSize:    orDefault(opt.MaxSize, 100),
			MaxAge:     orDefault(opt.MaxAge, 28),
			MaxBackups: orDefault(opt.MaxBackups, 3),
			LocalTime:  true,
		}
		core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(writer), level)
	}

	return Logger{s: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func toZapLevel(level string) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Debugf logs at debug level.
func (l Logger) Debugf(format string, args ...interface{}) {
	if l.s != nil {
		l.s.Debugf(format, args...)
	}
}

// Infof logs at info level.
func (l Logger) Infof(format string, args ...interface{}) {
	if l.s != nil {
		l.s.Infof(format, args...)
	}
}

// Warnf logs at warn level.
func (l Logger) Warnf(format string, args ...interface{}) {
	if l.s != nil {
		l.s.Warnf(format, args...)
	}
}

// Errorf logs at error level.
func (l Logger) Errorf(format string, args ...interface{}) {
	if l.s != nil {
		l.s.Errorf(format, args...)
	}
}

var std = New(DefaultOptions())

// SetOptions replaces the package-level logger used by Debugf/Infof/Warnf/
// Errorf.
func SetOptions(opt Options) { std = New(opt) }

// Debugf logs at debug level on the package-level logger.
func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }

// Infof logs at info level on the package-level logger.
func Infof(format string, args ...interface{}) { std.Infof(format, args...) }

// Warnf logs at warn level on the package-level logger.
func Warnf(format string, args ...interface{}) { std.Warnf(format, args...) }

// Errorf logs at error level on the package-level logger.
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }

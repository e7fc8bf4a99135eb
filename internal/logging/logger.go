package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

type Logger struct {
	level  Level
	logger *zap.Logger
}

func ParseLevel(levelStr string) Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func NewLogger(levelStr string) *Logger {
	return NewLoggerWithWriter(levelStr, os.Stderr)
}

// NewLoggerWithWriter writes one JSON object per line to w.
func NewLoggerWithWriter(levelStr string, w io.Writer) *Logger {
	level := ParseLevel(levelStr)

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(w),
		zapLevel(level),
	)

	return &Logger{
		level:  level,
		logger: zap.New(core),
	}
}

func NewNop() *Logger {
	return &Logger{level: LevelError + 1, logger: zap.NewNop()}
}

func zapLevel(l Level) zapcore.Level {
	switch l {
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

func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		level:  l.level,
		logger: l.logger.With(zap.String("component", component)),
	}
}

func (l *Logger) Enabled(level Level) bool {
	return l.level <= level
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
	_ = l.logger.Sync()
	os.Exit(1)
}

func (l *Logger) Debugw(msg string, fields map[string]any) {
	l.logger.Debug(msg, toZapFields(fields)...)
}

func (l *Logger) Infow(msg string, fields map[string]any) {
	l.logger.Info(msg, toZapFields(fields)...)
}

func (l *Logger) Warnw(msg string, fields map[string]any) {
	l.logger.Warn(msg, toZapFields(fields)...)
}

func (l *Logger) Errorw(msg string, fields map[string]any) {
	l.logger.Error(msg, toZapFields(fields)...)
}

func (l *Logger) Sync() error {
	return l.logger.Sync()
}

// toZapFields sorts keys so that output is stable across calls.
func toZapFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		switch v := fields[k].(type) {
		case error:
			out = append(out, zap.String(k, v.Error()))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}

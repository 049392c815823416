package logging

import (
	"fmt"
	"os"
	"path/filepath"

	waLog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where a logger writes.
type Options struct {
	Level string // debug, info, warn, error; empty means info
	// Console mirrors log lines to stderr. Terminal UIs leave it off.
	Console bool
}

// New creates a zap logger writing JSON lines to logPath, optionally
// mirrored to stderr. Every entry carries the profile name and PID.
func New(logPath, profile string, opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if opts.Level == "" {
		level, err = zapcore.InfoLevel, nil
	}
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(file), level),
	}
	if opts.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stderr), level))
	}

	return zap.New(zapcore.NewTee(cores...),
		zap.Fields(
			zap.String("session", profile),
			zap.Int("pid", os.Getpid()),
		),
	), nil
}

// waLogger routes whatsmeow's printf-style logs into zap.
type waLogger struct {
	s *zap.SugaredLogger
}

// Whatsmeow adapts a zap logger to whatsmeow's logger interface.
func Whatsmeow(logger *zap.Logger, module string) waLog.Logger {
	return &waLogger{s: logger.Named(module).Sugar()}
}

func (l *waLogger) Errorf(msg string, args ...any) { l.s.Errorf(msg, args...) }
func (l *waLogger) Warnf(msg string, args ...any)  { l.s.Warnf(msg, args...) }
func (l *waLogger) Infof(msg string, args ...any)  { l.s.Infof(msg, args...) }
func (l *waLogger) Debugf(msg string, args ...any) { l.s.Debugf(msg, args...) }

func (l *waLogger) Sub(module string) waLog.Logger {
	return &waLogger{s: l.s.Named(module)}
}

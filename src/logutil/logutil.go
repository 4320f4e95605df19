package logutil

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxSizeMB   = 10
	maxArchives = 3
)

// Options selects where logs go.
type Options struct {
	// EnableFile writes debug and above to File with size-based rotation.
	// When false only warnings and above reach stderr.
	EnableFile bool
	File       string
	// Console mirrors info and above to stderr in console format (CLI verbose mode).
	Console bool
}

// Setup builds the process logger and installs it as zap's global logger.
// The returned function flushes buffered entries.
func Setup(opts Options) (*zap.SugaredLogger, func()) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleLevel := zapcore.WarnLevel
	if opts.Console {
		consoleLevel = zapcore.InfoLevel
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), consoleLevel),
	}

	if opts.EnableFile && opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		} else {
			rotator := &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    maxSizeMB,
				MaxBackups: maxArchives,
			}
			cores = append(cores, zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(rotator),
				zapcore.DebugLevel,
			))
		}
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	zap.ReplaceGlobals(logger)
	return logger.Sugar(), func() { _ = logger.Sync() }
}

// RedactKey masks an API key, leaving first/last 4 chars: xxxx...yyyy
func RedactKey(k string) string {
	if len(k) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s...%s", k[:4], k[len(k)-4:])
}

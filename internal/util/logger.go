package util

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogRotation controls the rolling file sink. Zero values fall back to the
// defaults below.
type LogRotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var defaultRotation = LogRotation{
	MaxSizeMB:  10,
	MaxBackups: 5,
	MaxAgeDays: 30,
	Compress:   true,
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.ConsoleSeparator = " | "
	return encoderConfig
}

// NewLogger writes to stderr, and additionally to a rotated file when logFile
// is set. Stdout is left alone so CLI output stays pipeable.
func NewLogger(level, logFile string) (*zap.Logger, error) {
	return NewLoggerWithRotation(level, logFile, defaultRotation)
}

func NewLoggerWithRotation(level, logFile string, rotation LogRotation) (*zap.Logger, error) {
	zapLevel := parseLevel(level)
	encoder := zapcore.NewConsoleEncoder(consoleEncoderConfig())

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), zapLevel),
	}

	if logFile != "" {
		logDir := filepath.Dir(logFile)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}

		if rotation.MaxSizeMB <= 0 {
			rotation.MaxSizeMB = defaultRotation.MaxSizeMB
		}
		if rotation.MaxBackups <= 0 {
			rotation.MaxBackups = defaultRotation.MaxBackups
		}
		if rotation.MaxAgeDays <= 0 {
			rotation.MaxAgeDays = defaultRotation.MaxAgeDays
		}

		writer := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    rotation.MaxSizeMB,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAgeDays,
			Compress:   rotation.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(writer), zapLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, nil
}

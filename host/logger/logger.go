// Package logger builds the zap logger shared by the host tools
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func consoleEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(encoderConfig)
}

// New returns a sugared console logger on stderr. verbose enables debug
// output.
func New(verbose bool) *zap.SugaredLogger {
	return NewWithWriter(os.Stderr, verbose)
}

// NewWithWriter is New writing to w
func NewWithWriter(w io.Writer, verbose bool) *zap.SugaredLogger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(consoleEncoder(), zapcore.AddSync(w), level)
	return zap.New(core).Sugar()
}

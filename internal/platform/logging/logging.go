package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the JSON logger used by the server. Output goes to stdout and,
// when file is set, to a rotated log file as well.
func New(level, file string) *zap.Logger {
	return zap.New(newCore(level, os.Stdout, file), zap.AddCaller())
}

func newCore(level string, out io.Writer, file string) zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	lvl := ParseLevel(level)
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(out), lvl),
	}
	if file != "" {
		writer := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.AddSync(writer), lvl))
	}
	return zapcore.NewTee(cores...)
}

// ParseLevel falls back to info for unknown level names.
func ParseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

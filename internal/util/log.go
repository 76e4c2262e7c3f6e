package util

import (
	"os"
	"time"

	"github.com/thessem/zap-prettyconsole"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// shortTimeEncoder encodes time in HH:MM:SS format
func shortTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}

// NewLogger creates a new zap logger writing to stderr.
// json - if true logs are in json format
// level - debug, info, warn or error; anything else means info
func NewLogger(json bool, level string) *zap.Logger {
	return NewLoggerWithOutput(json, level, zapcore.Lock(os.Stderr))
}

// NewLoggerWithOutput is NewLogger with a custom output
func NewLoggerWithOutput(json bool, level string, output zapcore.WriteSyncer) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var core zapcore.Core

	if json {
		econf := zapcore.EncoderConfig{
			MessageKey:     "msg",
			LevelKey:       "level",
			TimeKey:        "time",
			NameKey:        "logger",
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		}
		core = zapcore.NewCore(zapcore.NewJSONEncoder(econf), output, lvl)
	} else {
		pcfg := prettyconsole.NewEncoderConfig()
		pcfg.EncodeTime = shortTimeEncoder
		core = zapcore.NewCore(prettyconsole.NewEncoder(pcfg), output, lvl)
	}
	return zap.New(core)
}

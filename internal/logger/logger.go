package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// App is attached to every entry as the "app" field.
const App = "hh-ranker"

// New builds the process logger. Entries go to stderr; stdout carries rankings.
func New(json bool, debug bool, opts ...zap.Option) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    map[string]any{"app": App},
		EncoderConfig:    encoderConfig(),
	}
	logger, err := cfg.Build(opts...)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	return logger, nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey: "step",

		LevelKey:    "level",
		EncodeLevel: zapcore.LowercaseLevelEncoder,

		TimeKey:    "time",
		EncodeTime: zapcore.RFC3339TimeEncoder,

		CallerKey:    "caller",
		EncodeCaller: zapcore.ShortCallerEncoder,

		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

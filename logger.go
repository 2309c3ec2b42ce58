package glazeAuth

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("Log Level %q is not one of debug, info, warn, error", level)
	}
}

// NewLogger builds a JSON logger for cfg. "prod" logs ISO8601 timestamps with
// lowercase levels; "dev" adds stack traces from Warn and development checks.
// The returned logger is owned by the caller; pass it to Builder.WithLogger.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	options := []zap.Option{
		zap.AddCaller(),
		zap.ErrorOutput(zapcore.AddSync(os.Stderr)),
	}

	switch cfg.Env {
	case "", "prod":
	case "dev":
		encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
		options = append(options, zap.AddStacktrace(zapcore.WarnLevel), zap.Development())
	default:
		return nil, fmt.Errorf("Log Env %q is not prod or dev", cfg.Env)
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core, options...), nil
}

package xlog

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cadepowers99/Skip-List/config"
)

var ErrUnknownEncoder = errors.New("[xlog] unknown encoder")

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "lvl",
		TimeKey:        "ts",
		CallerKey:      "callAt",
		NameKey:        "logger",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func newEncoder(name string) (zapcore.Encoder, error) {
	switch name {
	case "json":
		return zapcore.NewJSONEncoder(encoderConfig()), nil
	case "console", "":
		return zapcore.NewConsoleEncoder(encoderConfig()), nil
	default:
		return nil, errors.Wrapf(ErrUnknownEncoder, "%q", name)
	}
}

// New 依設定建立輸出到 stdout 的 logger
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return NewWithWriter(cfg, zapcore.Lock(os.Stdout))
}

func NewWithWriter(cfg config.LogConfig, ws zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrap(err, "[xlog] parse level")
	}
	enc, err := newEncoder(cfg.Encoder)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(lvl))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

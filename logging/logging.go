// Package logging is the zap logging backend. Importing it links the backend
// into the binary and makes it discoverable under convention.LoggingBackend.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"kestrel/config"
	"kestrel/container"
	"kestrel/convention"
)

func init() {
	convention.Default.MustRegister(convention.LoggingBackend, func(container.Resolver) (any, error) {
		return ZapBackend{}, nil
	})
}

// ZapBackend configures zap from the logging.* properties.
type ZapBackend struct{}

// Configure implements the backend contract used during boot.
func (ZapBackend) Configure(cfg *config.Config) (*zap.Logger, error) {
	return Configure(cfg)
}

// Configure builds a logger writing to the configured output.
func Configure(cfg *config.Config) (*zap.Logger, error) {
	var out zapcore.WriteSyncer
	switch cfg.Logging.Output {
	case "", "stdout":
		out = zapcore.Lock(os.Stdout)
	case "stderr":
		out = zapcore.Lock(os.Stderr)
	default:
		return nil, fmt.Errorf("unsupported log output %q", cfg.Logging.Output)
	}
	return New(cfg, out)
}

// New builds a logger writing to w. Console format uses colored capital
// levels and ISO8601 timestamps; json format uses zap's production encoder.
func New(cfg *config.Config, w io.Writer) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Logging.Level != "" {
		parsed, err := zap.ParseAtomicLevel(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		level = parsed
	}

	var encoder zapcore.Encoder
	switch cfg.Logging.Format {
	case "", "console":
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "json":
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.Logging.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if cfg.Application.Name != "" {
		logger = logger.With(zap.String("app", cfg.Application.Name))
	}
	return logger, nil
}

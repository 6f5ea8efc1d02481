package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"kestrel/config"
	"kestrel/container"
	"kestrel/convention"
)

// LoggingConfigurator is implemented by the artifact registered under
// convention.LoggingBackend.
type LoggingConfigurator interface {
	Configure(cfg *config.Config) (*zap.Logger, error)
}

// LoggingWarning records why logging was left unconfigured. It never fails a
// boot.
type LoggingWarning struct {
	Reason string
	Err    error
}

func (w LoggingWarning) Error() string {
	if w.Err == nil {
		return "logging not configured: " + w.Reason
	}
	return fmt.Sprintf("logging not configured: %s: %v", w.Reason, w.Err)
}

func (w LoggingWarning) Unwrap() error { return w.Err }

// configureLogging swaps in the backend logger when one is linked. Every
// failure is downgraded to a LoggingWarning and the previous logger is kept.
func (b *Bootstrap) configureLogging(ctx context.Context) {
	_, span := b.tracer.Start(ctx, "bootstrap.logging")
	defer span.End()

	b.warnings = nil
	warn := func(w LoggingWarning) {
		b.warnings = append(b.warnings, w)
		span.AddEvent(w.Error())
		b.logger.Sugar().Infow("Logging backend not configured", "reason", w.Reason, "error", w.Err)
	}

	resolver := convention.NewResolver(b.opts.Discovery, 1)
	ok, err := resolver.Exists(convention.LoggingBackend)
	if err != nil {
		warn(LoggingWarning{Reason: "lookup failed", Err: err})
		return
	}
	if !ok {
		warn(LoggingWarning{Reason: "no logging backend linked"})
		return
	}

	v, err := resolver.Instantiate(convention.LoggingBackend, container.Unavailable)
	if err != nil {
		warn(LoggingWarning{Reason: "backend could not be created", Err: err})
		return
	}
	backend, ok := v.(LoggingConfigurator)
	if !ok {
		warn(LoggingWarning{Reason: fmt.Sprintf("backend %T cannot configure logging", v)})
		return
	}

	logger, err := backend.Configure(b.cfg)
	if err != nil {
		warn(LoggingWarning{Reason: "backend configuration failed", Err: err})
		return
	}
	b.logger = logger
	b.logger.Sugar().Infow("Logging configured",
		"backend", fmt.Sprintf("%T", backend),
		"level", b.cfg.Logging.Level,
		"format", b.cfg.Logging.Format,
		"output", b.cfg.Logging.Output)
}

// Warnings returns the logging warnings raised by the most recent Boot.
func (b *Bootstrap) Warnings() []LoggingWarning {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]LoggingWarning, len(b.warnings))
	copy(out, b.warnings)
	return out
}

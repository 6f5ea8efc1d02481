package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"kestrel/app"
	"kestrel/config"
	"kestrel/container"
	"kestrel/convention"
	"kestrel/metrics"
	"kestrel/router"
)

// ErrAlreadyBooted is returned by Boot on a controller that is already booted.
var ErrAlreadyBooted = errors.New("application already booted")

// State is the controller lifecycle state.
type State int

const (
	NotBooted State = iota
	Booted
)

func (s State) String() string {
	if s == Booted {
		return "booted"
	}
	return "not booted"
}

// Options configures a Bootstrap.
type Options struct {
	// Discovery locates application artifacts. Defaults to convention.Default.
	Discovery convention.Discovery
	// Logger is used until, and unless, a logging backend configures one.
	Logger *zap.Logger
	// TracerProvider receives one span per boot phase. Defaults to a no-op provider.
	TracerProvider trace.TracerProvider
	// Clock is used for startup timing.
	Clock func() time.Time
}

// Bootstrap owns the boot and shutdown sequence of one application. Boot and
// Shutdown are serialized; at most one container is live at a time.
type Bootstrap struct {
	cfg    *config.Config
	opts   Options
	tracer trace.Tracer

	mu       sync.Mutex
	state    State
	instance *Instance
	logger   *zap.Logger
	warnings []LoggingWarning
}

// New creates a controller for cfg.
func New(cfg *config.Config, optFns ...func(*Options)) *Bootstrap {
	opts := Options{
		Discovery:      convention.Default,
		Logger:         zap.NewNop(),
		TracerProvider: noop.NewTracerProvider(),
		Clock:          time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Bootstrap{
		cfg:    cfg,
		opts:   opts,
		tracer: opts.TracerProvider.Tracer("kestrel/bootstrap"),
		logger: opts.Logger,
	}
}

// Boot composes, builds and starts the application. On any failure the
// controller stays NotBooted, no container is kept, and the error is
// returned: ErrAlreadyBooted, or a *container.BuildError naming the phase.
func (b *Bootstrap) Boot(ctx context.Context) (*Instance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx, span := b.tracer.Start(ctx, "bootstrap.boot")
	defer span.End()

	b.configureLogging(ctx)
	sugar := b.logger.Sugar()

	if b.state == Booted {
		metrics.BootsTotal.WithLabelValues("already_booted").Inc()
		span.RecordError(ErrAlreadyBooted)
		span.SetStatus(codes.Error, ErrAlreadyBooted.Error())
		return nil, ErrAlreadyBooted
	}

	start := b.opts.Clock()
	inst, err := b.boot(ctx, sugar, start)
	metrics.BootDuration.Observe(b.opts.Clock().Sub(start).Seconds())
	if err != nil {
		metrics.BootsTotal.WithLabelValues("failure").Inc()
		phase := "unknown"
		var be *container.BuildError
		if errors.As(err, &be) {
			phase = be.Phase
		}
		metrics.BootFailures.WithLabelValues(phase).Inc()
		sugar.Errorw("Boot failed", "phase", phase, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	b.instance = inst
	b.state = Booted
	metrics.BootsTotal.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.String("kestrel.container_id", inst.Container().ID()))
	sugar.Infow("Application booted",
		"container_id", inst.Container().ID(),
		"modules", inst.Modules(),
		"routes", inst.RoutesInitialized(),
		"duration", inst.StartupDuration())
	return inst, nil
}

func (b *Bootstrap) boot(ctx context.Context, sugar *zap.SugaredLogger, start time.Time) (*Instance, error) {
	base := b.cfg.Application.ModulesBasePackage
	resolver := convention.NewResolver(b.opts.Discovery, b.cfg.Convention.CacheSize)

	var reg *container.Registry
	err := b.phase(ctx, "bootstrap.compose", func(context.Context) error {
		var err error
		reg, err = ComposeModules(b.cfg, resolver, b.logger)
		return err
	})
	if err != nil {
		return nil, err
	}
	sugar.Debugw("Modules composed", "modules", reg.Names(), "base_package", base)

	var c *container.Container
	err = b.phase(ctx, "bootstrap.container", func(context.Context) error {
		var err error
		c, err = container.Build(reg.Modules(),
			container.WithStage(containerStage(b.cfg.Stage())),
			container.WithLogger(sugar.Named("container")))
		return err
	})
	if err != nil {
		return nil, err
	}
	sugar.Infow("Container started",
		"container_id", c.ID(),
		"stage", c.Stage().String(),
		"bindings", len(c.Keys()),
		"elapsed_ms", b.opts.Clock().Sub(start).Milliseconds())

	var routed bool
	err = b.phase(ctx, "bootstrap.routes", func(context.Context) error {
		var err error
		routed, err = InitializeRoutes(c, resolver, base, sugar.Named("routes"))
		return err
	})
	if err != nil {
		return nil, err
	}

	var application app.Application
	err = b.phase(ctx, "bootstrap.start", func(ctx context.Context) error {
		var err error
		application, err = container.Resolve[app.Application](c)
		if err != nil {
			return &container.BuildError{Phase: container.PhaseApplication, Err: err}
		}
		if application == nil {
			return &container.BuildError{Phase: container.PhaseApplication, Err: errors.New("no application bound")}
		}
		if err := application.Start(ctx); err != nil {
			return &container.BuildError{Phase: container.PhaseApplication, Err: fmt.Errorf("start: %w", err)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ContainerBindings.Set(float64(len(c.Keys())))
	if rt, err := container.Resolve[*router.Router](c); err == nil && rt != nil && rt.Compiled() {
		metrics.CompiledRoutes.Set(float64(len(rt.Routes())))
	}

	return newInstance(c, application, reg.Names(), routed, start, b.opts.Clock().Sub(start)), nil
}

// phase runs fn inside a child span, recording failures on it.
func (b *Bootstrap) phase(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := b.tracer.Start(ctx, name)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Shutdown stops the application and releases the container. It is a no-op
// when the controller is not booted. The container is released even if the
// application fails to stop; that failure is returned.
func (b *Bootstrap) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	sugar := b.logger.Sugar()
	if b.state != Booted {
		metrics.ShutdownsTotal.WithLabelValues("noop").Inc()
		sugar.Infow("Shutdown requested but application is not booted")
		return nil
	}

	ctx, span := b.tracer.Start(ctx, "bootstrap.shutdown")
	defer span.End()

	inst := b.instance
	err := inst.Application().Shutdown(ctx)

	inst.release()
	b.instance = nil
	b.state = NotBooted
	metrics.ContainerBindings.Set(0)
	metrics.CompiledRoutes.Set(0)

	if err != nil {
		metrics.ShutdownsTotal.WithLabelValues("failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		sugar.Errorw("Application shutdown failed", "error", err)
		return fmt.Errorf("shutdown application: %w", err)
	}
	metrics.ShutdownsTotal.WithLabelValues("success").Inc()
	sugar.Infow("Application shut down")
	return nil
}

// State returns the current state.
func (b *Bootstrap) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Container returns the live container, or nil when not booted.
func (b *Bootstrap) Container() *container.Container {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.instance == nil {
		return nil
	}
	return b.instance.Container()
}

// Instance returns the live instance, or nil when not booted.
func (b *Bootstrap) Instance() *Instance {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.instance
}

// Logger returns the logger configured by the most recent Boot.
func (b *Bootstrap) Logger() *zap.Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logger
}

func containerStage(s config.Stage) container.Stage {
	if s == config.StageProduction {
		return container.Production
	}
	return container.Development
}

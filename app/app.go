// Package app provides the application entry point and the base
// configuration module every kestrel container starts from.
package app

import (
	"context"

	"go.uber.org/zap"

	"kestrel/config"
	"kestrel/container"
	"kestrel/dispatch"
	"kestrel/lifecycle"
	"kestrel/router"
	"kestrel/web"
)

// Application is started once the container is built and routes are
// compiled, and shut down before the container is released.
type Application interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ConfigurationModule binds the configuration, loggers, routing table,
// dispatcher and the default Application.
func ConfigurationModule(cfg *config.Config, logger *zap.Logger) container.Module {
	return container.ModuleFunc("app.configuration", func(b *container.Binder) error {
		container.Instance(b, cfg)
		container.Instance(b, logger)
		container.Instance(b, logger.Sugar())

		container.Provide(b, func(container.Resolver) (*router.Router, error) {
			return router.New(), nil
		})

		container.Provide(b, func(r container.Resolver) (*dispatch.Dispatcher, error) {
			rt, err := container.Resolve[*router.Router](r)
			if err != nil {
				return nil, err
			}
			contexts, err := container.Resolve[web.ContextFactory](r)
			if err != nil {
				return nil, err
			}
			return dispatch.NewDispatcher(rt, contexts, logger.Sugar().Named("dispatch")), nil
		})

		container.Provide(b, func(r container.Resolver) (*Server, error) {
			table, err := container.Resolve[*dispatch.Table](r)
			if err != nil {
				return nil, err
			}
			lc, err := container.Resolve[*lifecycle.Manager](r)
			if err != nil {
				return nil, err
			}
			return NewServer(cfg, table, lc, logger.Sugar().Named("server")), nil
		})
		container.Bind[Application, *Server](b)
		return nil
	})
}

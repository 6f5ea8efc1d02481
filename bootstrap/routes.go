package bootstrap

import (
	"go.uber.org/zap"

	"kestrel/container"
	"kestrel/convention"
	"kestrel/router"
	"kestrel/util/goroutine"
)

// InitializeRoutes declares and compiles the application routes registered
// for base. It reports whether any were found; when none are, the router is
// left untouched and uncompiled.
func InitializeRoutes(c *container.Container, resolver *convention.Resolver, base string, logger *zap.SugaredLogger) (bool, error) {
	name := convention.Resolve(base, convention.RoutesSuffix)

	ok, err := resolver.Exists(name)
	if err != nil {
		return false, routesError(name, err)
	}
	if !ok {
		logger.Debugw("No routes declared", "convention", name.String())
		return false, nil
	}

	v, err := resolver.Instantiate(name, c)
	if err != nil {
		return false, routesError(name, err)
	}
	routes, ok := v.(router.Routes)
	if !ok {
		return false, wrongType(container.PhaseRoutes, name, "router.Routes", v)
	}

	rt, err := container.Resolve[*router.Router](c)
	if err != nil {
		return false, routesError(name, err)
	}

	err = goroutine.Guard("routes "+name.String(), logger, func() error {
		return routes.Init(rt)
	})
	if err != nil {
		return false, routesError(name, err)
	}
	if err := rt.Compile(); err != nil {
		return false, routesError(name, err)
	}

	logger.Infow("Routes compiled", "convention", name.String(), "routes", len(rt.Routes()))
	return true, nil
}

func routesError(name convention.Name, err error) error {
	return &container.BuildError{Phase: container.PhaseRoutes, Module: name.String(), Err: err}
}

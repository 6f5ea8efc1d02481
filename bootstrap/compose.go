package bootstrap

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"kestrel/app"
	"kestrel/config"
	"kestrel/container"
	"kestrel/convention"
	"kestrel/dispatch"
	"kestrel/lifecycle"
	"kestrel/router"
	"kestrel/scheduler"
	"kestrel/web"
)

// ErrWrongType is returned when a convention name resolves to an artifact
// of the wrong kind.
var ErrWrongType = errors.New("artifact has the wrong type")

// RegisterModule registers the application module for base.
func RegisterModule(c *convention.Catalog, base string, fn func() (container.Module, error)) error {
	return c.Register(convention.Resolve(base, convention.ModuleSuffix), func(container.Resolver) (any, error) {
		return fn()
	})
}

// RegisterServletModule registers the dispatch module for base.
func RegisterServletModule(c *convention.Catalog, base string, fn func() (*dispatch.Module, error)) error {
	return c.Register(convention.Resolve(base, convention.ServletModuleSuffix), func(container.Resolver) (any, error) {
		return fn()
	})
}

// RegisterRoutes registers the route declarations for base. fn receives the
// live container.
func RegisterRoutes(c *convention.Catalog, base string, fn func(r container.Resolver) (router.Routes, error)) error {
	return c.Register(convention.Resolve(base, convention.RoutesSuffix), func(r container.Resolver) (any, error) {
		return fn(r)
	})
}

// MustRegisterModule is like RegisterModule but panics on error.
func MustRegisterModule(c *convention.Catalog, base string, fn func() (container.Module, error)) {
	if err := RegisterModule(c, base, fn); err != nil {
		panic(err)
	}
}

// MustRegisterServletModule is like RegisterServletModule but panics on error.
func MustRegisterServletModule(c *convention.Catalog, base string, fn func() (*dispatch.Module, error)) {
	if err := RegisterServletModule(c, base, fn); err != nil {
		panic(err)
	}
}

// MustRegisterRoutes is like RegisterRoutes but panics on error.
func MustRegisterRoutes(c *convention.Catalog, base string, fn func(r container.Resolver) (router.Routes, error)) {
	if err := RegisterRoutes(c, base, fn); err != nil {
		panic(err)
	}
}

// ComposeModules builds the module registry in its fixed order: lifecycle,
// scheduler, base configuration, request context, the optional application
// module, then the application dispatch module or the built-in default.
func ComposeModules(cfg *config.Config, resolver *convention.Resolver, logger *zap.Logger) (*container.Registry, error) {
	reg := container.NewRegistry()
	reg.Append(lifecycle.Module())
	reg.Append(scheduler.Module())
	reg.Append(app.ConfigurationModule(cfg, logger))
	reg.Append(web.ContextModule())

	base := cfg.Application.ModulesBasePackage
	moduleName := convention.Resolve(base, convention.ModuleSuffix)
	servletName := convention.Resolve(base, convention.ServletModuleSuffix)

	v, found, err := lookup(resolver, moduleName, container.Unavailable)
	if err != nil {
		return nil, err
	}
	if found {
		m, ok := v.(container.Module)
		if !ok {
			return nil, wrongType(container.PhaseCompose, moduleName, "container.Module", v)
		}
		reg.Append(m)
	}

	v, found, err = lookup(resolver, servletName, container.Unavailable)
	if err != nil {
		return nil, err
	}
	if found {
		m, ok := v.(*dispatch.Module)
		if !ok || m == nil {
			return nil, wrongType(container.PhaseCompose, servletName, "*dispatch.Module", v)
		}
		reg.Append(m)
	} else {
		reg.Append(dispatch.DefaultModule())
	}

	return reg, nil
}

// lookup instantiates name when it exists. A missing name is not an error.
func lookup(resolver *convention.Resolver, name convention.Name, r container.Resolver) (any, bool, error) {
	ok, err := resolver.Exists(name)
	if err != nil {
		return nil, false, &container.BuildError{Phase: container.PhaseCompose, Module: name.String(), Err: err}
	}
	if !ok {
		return nil, false, nil
	}
	v, err := resolver.Instantiate(name, r)
	if err != nil {
		return nil, false, &container.BuildError{Phase: container.PhaseCompose, Module: name.String(), Err: err}
	}
	return v, true, nil
}

func wrongType(phase string, name convention.Name, want string, got any) error {
	return &container.BuildError{
		Phase:  phase,
		Module: name.String(),
		Err:    fmt.Errorf("%w: %T is not a %s", ErrWrongType, got, want),
	}
}

// Package container implements the dependency-injection container that a
// kestrel application is composed into.
//
// Configuration is contributed by modules. Each module receives a Binder and
// declares bindings with the generic helpers:
//
//	m := container.ModuleFunc("storage", func(b *container.Binder) error {
//	    container.Provide(b, func(r container.Resolver) (*Store, error) {
//	        cfg, err := container.Resolve[*config.Config](r)
//	        if err != nil {
//	            return nil, err
//	        }
//	        return NewStore(cfg), nil
//	    })
//	    return nil
//	})
//
// Modules are appended to a Registry in composition order and handed to
// Build, which merges them into one Container in a single step. A binding
// declared by a later module replaces a binding for the same key declared
// by an earlier one, so framework defaults registered first can be
// overridden by application modules registered later. Build either returns
// a fully validated container or a *BuildError; it never returns a partial
// container.
//
// The container is read-only once built. Singletons are created at most
// once; in the Production stage every singleton is created while the
// container is built so that construction failures surface at boot.
package container

// Package bootstrap turns a configuration and a set of convention-registered
// artifacts into a running application, and tears it down again.
//
// Usage:
//
//	boot := bootstrap.New(cfg)
//	inst, err := boot.Boot(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer boot.Shutdown(context.Background())
//
//	log.Printf("listening, container %s", inst.Container().ID())
//
// Boot runs, in order: logging setup, module composition, container build,
// route initialization and application start. Any failure leaves the
// controller NotBooted with no live container and is returned to the caller.
//
// Applications contribute modules by registering them under their base
// namespace (the application.modules_base_package property) from an init
// function:
//
//	func init() {
//	    bootstrap.MustRegisterModule(convention.Default, "hello", newModule)
//	    bootstrap.MustRegisterRoutes(convention.Default, "hello", newRoutes)
//	}
package bootstrap

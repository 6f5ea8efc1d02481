package bootstrap

import (
	"sync/atomic"
	"time"

	"kestrel/app"
	"kestrel/container"
)

// Instance is the handle to one successful boot. It is released by Shutdown,
// after which Container and Application return nil.
type Instance struct {
	container   atomic.Pointer[container.Container]
	application app.Application
	modules     []string
	routes      bool
	bootedAt    time.Time
	startup     time.Duration
}

func newInstance(c *container.Container, a app.Application, modules []string, routes bool, bootedAt time.Time, startup time.Duration) *Instance {
	inst := &Instance{
		application: a,
		modules:     modules,
		routes:      routes,
		bootedAt:    bootedAt,
		startup:     startup,
	}
	inst.container.Store(c)
	return inst
}

// Container returns the live container, or nil once released.
func (i *Instance) Container() *container.Container {
	return i.container.Load()
}

// Application returns the started application, or nil once released.
func (i *Instance) Application() app.Application {
	if i.Released() {
		return nil
	}
	return i.application
}

// Modules returns the composed module names in composition order.
func (i *Instance) Modules() []string {
	out := make([]string, len(i.modules))
	copy(out, i.modules)
	return out
}

// RoutesInitialized reports whether application routes were declared and compiled.
func (i *Instance) RoutesInitialized() bool { return i.routes }

// BootedAt returns when the boot started.
func (i *Instance) BootedAt() time.Time { return i.bootedAt }

// StartupDuration returns how long the boot took.
func (i *Instance) StartupDuration() time.Duration { return i.startup }

// Released reports whether Shutdown has released this instance.
func (i *Instance) Released() bool {
	return i.container.Load() == nil
}

func (i *Instance) release() {
	i.container.Store(nil)
}

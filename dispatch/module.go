package dispatch

import (
	"fmt"

	"kestrel/container"
)

// Module is a container module that declares the dispatch table. The
// declaration function runs when the table is instantiated, so it can
// resolve handlers from the container.
type Module struct {
	name string
	fn   func(t *Table, r container.Resolver) error
}

// NewModule creates a dispatch module.
func NewModule(name string, fn func(t *Table, r container.Resolver) error) *Module {
	return &Module{name: name, fn: fn}
}

// Name implements container.Module.
func (m *Module) Name() string { return m.name }

// Configure binds *Table.
func (m *Module) Configure(b *container.Binder) error {
	if m.fn == nil {
		return fmt.Errorf("dispatch module %q has no declarations", m.name)
	}
	container.Provide(b, func(r container.Resolver) (*Table, error) {
		t := NewTable()
		if err := m.fn(t, r); err != nil {
			return nil, err
		}
		if err := t.Err(); err != nil {
			return nil, err
		}
		return t, nil
	})
	return nil
}

// DefaultModule serves every path through the *Dispatcher. It is used when an
// application supplies no dispatch module of its own.
func DefaultModule() *Module {
	return NewModule("dispatch.default", func(t *Table, r container.Resolver) error {
		d, err := container.Resolve[*Dispatcher](r)
		if err != nil {
			return err
		}
		t.Serve("/*").With(d)
		return nil
	})
}

package container

// Registry is the ordered, append-only list of modules composed into a
// container. Append order is composition order.
type Registry struct {
	modules []Module
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Append adds m after every module appended so far.
func (r *Registry) Append(m Module) {
	if m == nil {
		panic("container: cannot append a nil module")
	}
	r.modules = append(r.modules, m)
}

// Modules returns the modules in composition order.
func (r *Registry) Modules() []Module {
	out := make([]Module, len(r.modules))
	copy(out, r.modules)
	return out
}

// Names returns the module names in composition order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.modules))
	for i, m := range r.modules {
		names[i] = m.Name()
	}
	return names
}

// Len returns the number of modules.
func (r *Registry) Len() int { return len(r.modules) }

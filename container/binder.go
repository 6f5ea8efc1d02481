package container

import (
	"fmt"
	"reflect"
)

// Key identifies a binding by type and optional name.
type Key struct {
	typ  reflect.Type
	name string
}

// KeyOf returns the unnamed key for T.
func KeyOf[T any]() Key {
	return Key{typ: reflect.TypeOf((*T)(nil)).Elem()}
}

// NamedKey returns the key for T qualified by name.
func NamedKey[T any](name string) Key {
	return Key{typ: reflect.TypeOf((*T)(nil)).Elem(), name: name}
}

// Type returns the bound type.
func (k Key) Type() reflect.Type { return k.typ }

// Name returns the qualifier, empty for unnamed keys.
func (k Key) Name() string { return k.name }

func (k Key) String() string {
	if k.typ == nil {
		return "<invalid key>"
	}
	if k.name == "" {
		return k.typ.String()
	}
	return fmt.Sprintf("%s[%s]", k.typ, k.name)
}

// Resolver looks up bound values.
type Resolver interface {
	Get(key Key) (any, error)
}

// Provider constructs the value of a binding.
type Provider func(r Resolver) (any, error)

// Scope controls how often a provider is invoked.
type Scope int

const (
	// Singleton providers run at most once per container
	Singleton Scope = iota
	// TransientScope providers run on every lookup
	TransientScope
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case TransientScope:
		return "transient"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

type binding struct {
	key      Key
	provider Provider
	scope    Scope
	eager    bool
	module   string
}

// BindOption adjusts a single binding.
type BindOption func(*binding)

// Transient makes the provider run on every lookup.
func Transient() BindOption {
	return func(b *binding) { b.scope = TransientScope }
}

// Eager instantiates the singleton while the container is built, whatever the stage.
func Eager() BindOption {
	return func(b *binding) { b.eager = true }
}

// Binder collects the bindings declared by one module.
type Binder struct {
	module   string
	bindings []*binding
	seen     map[Key]bool
	errs     []error
}

func newBinder(module string) *Binder {
	return &Binder{module: module, seen: make(map[Key]bool)}
}

// Module returns the name of the module being configured.
func (b *Binder) Module() string { return b.module }

func (b *Binder) add(key Key, provider Provider, opts []BindOption) {
	if provider == nil {
		b.errs = append(b.errs, fmt.Errorf("nil provider for %s", key))
		return
	}
	if key == resolverKey || key == containerKey {
		b.errs = append(b.errs, fmt.Errorf("%s is reserved for the container itself", key))
		return
	}
	if b.seen[key] {
		b.errs = append(b.errs, fmt.Errorf("%s bound more than once in module %q", key, b.module))
		return
	}
	b.seen[key] = true

	bd := &binding{key: key, provider: provider, scope: Singleton, module: b.module}
	for _, opt := range opts {
		opt(bd)
	}
	b.bindings = append(b.bindings, bd)
}

// Provide binds T to a provider function.
func Provide[T any](b *Binder, fn func(r Resolver) (T, error), opts ...BindOption) {
	ProvideNamed(b, "", fn, opts...)
}

// ProvideNamed binds T qualified by name to a provider function.
func ProvideNamed[T any](b *Binder, name string, fn func(r Resolver) (T, error), opts ...BindOption) {
	key := NamedKey[T](name)
	if fn == nil {
		b.add(key, nil, opts)
		return
	}
	b.add(key, func(r Resolver) (any, error) {
		v, err := fn(r)
		if err != nil {
			return nil, err
		}
		return v, nil
	}, opts)
}

// Instance binds T to an existing value.
func Instance[T any](b *Binder, v T) {
	b.add(KeyOf[T](), func(Resolver) (any, error) { return v, nil }, nil)
}

// Bind binds interface I to whatever is bound for C. C must implement I.
func Bind[I any, C any](b *Binder, opts ...BindOption) {
	from := KeyOf[C]()
	b.add(KeyOf[I](), func(r Resolver) (any, error) {
		v, err := r.Get(from)
		if err != nil {
			return nil, err
		}
		i, ok := v.(I)
		if !ok {
			return nil, fmt.Errorf("%w: %s does not implement %s", ErrTypeMismatch, from, KeyOf[I]())
		}
		return i, nil
	}, opts)
}

// Module contributes bindings to a container.
type Module interface {
	Name() string
	Configure(b *Binder) error
}

type moduleFunc struct {
	name string
	fn   func(b *Binder) error
}

func (m *moduleFunc) Name() string              { return m.name }
func (m *moduleFunc) Configure(b *Binder) error { return m.fn(b) }

// ModuleFunc turns a configuration function into a named Module.
func ModuleFunc(name string, fn func(b *Binder) error) Module {
	return &moduleFunc{name: name, fn: fn}
}

package container

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage selects when singletons are instantiated.
type Stage int

const (
	// Production instantiates every singleton during Build
	Production Stage = iota
	// Development instantiates singletons on first lookup unless bound Eager
	Development
)

func (s Stage) String() string {
	if s == Development {
		return "development"
	}
	return "production"
}

var (
	resolverKey  = KeyOf[Resolver]()
	containerKey = KeyOf[*Container]()
)

// Override records a binding replaced by a later module.
type Override struct {
	Key  Key
	From string
	To   string
}

type slot struct {
	mu    sync.Mutex
	done  bool
	value any
}

// Container holds the merged, validated bindings of a module set.
type Container struct {
	id        string
	stage     Stage
	bindings  map[Key]*binding
	order     []Key
	overrides []Override
	slots     map[Key]*slot
}

type buildOptions struct {
	stage  Stage
	logger *zap.SugaredLogger
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithStage sets the container stage (default Production).
func WithStage(s Stage) BuildOption {
	return func(o *buildOptions) { o.stage = s }
}

// WithLogger sets the logger used to report overrides and instantiation.
func WithLogger(l *zap.SugaredLogger) BuildOption {
	return func(o *buildOptions) { o.logger = l }
}

// Build merges modules, in order, into a new container. Later modules
// override earlier ones for the same key. Build is atomic: on any failure it
// returns a *BuildError and no container.
func Build(modules []Module, opts ...BuildOption) (*Container, error) {
	o := buildOptions{stage: Production, logger: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{
		id:       uuid.NewString(),
		stage:    o.stage,
		bindings: make(map[Key]*binding),
		slots:    make(map[Key]*slot),
	}

	for _, m := range modules {
		if m == nil {
			return nil, &BuildError{Phase: PhaseConfigure, Err: errors.New("nil module")}
		}
		binder, err := configure(m)
		if err != nil {
			return nil, &BuildError{Phase: PhaseConfigure, Module: binder.module, Err: err}
		}

		for _, b := range binder.bindings {
			if prev, ok := c.bindings[b.key]; ok {
				c.overrides = append(c.overrides, Override{Key: b.key, From: prev.module, To: b.module})
				o.logger.Debugw("Binding overridden",
					"key", b.key.String(),
					"from", prev.module,
					"to", b.module)
			} else {
				c.order = append(c.order, b.key)
			}
			c.bindings[b.key] = b
		}
	}

	for _, key := range c.order {
		if c.bindings[key].scope == Singleton {
			c.slots[key] = &slot{}
		}
	}

	for _, key := range c.order {
		b := c.bindings[key]
		if b.scope != Singleton || (c.stage != Production && !b.eager) {
			continue
		}
		if _, err := c.Get(key); err != nil {
			return nil, &BuildError{Phase: PhaseInstantiate, Module: b.module, Key: key.String(), Err: err}
		}
	}

	o.logger.Debugw("Container built",
		"container_id", c.id,
		"stage", c.stage.String(),
		"modules", len(modules),
		"bindings", len(c.bindings),
		"overrides", len(c.overrides))
	return c, nil
}

// configure runs one module against a fresh binder, turning panics into
// errors. The binder is returned even on failure so the caller can name the
// module.
func configure(m Module) (binder *Binder, err error) {
	binder = newBinder("")
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("module panicked: %v", r)
		}
	}()

	binder.module = m.Name()
	if err := m.Configure(binder); err != nil {
		return binder, err
	}
	if len(binder.errs) > 0 {
		return binder, errors.Join(binder.errs...)
	}
	return binder, nil
}

// ID returns the unique id of this container instance.
func (c *Container) ID() string { return c.id }

// Stage returns the stage the container was built in.
func (c *Container) Stage() Stage { return c.stage }

// Has reports whether key is bound.
func (c *Container) Has(key Key) bool {
	if key == resolverKey || key == containerKey {
		return true
	}
	_, ok := c.bindings[key]
	return ok
}

// Keys returns the bound keys in first-registration order.
func (c *Container) Keys() []Key {
	out := make([]Key, len(c.order))
	copy(out, c.order)
	return out
}

// Source returns the name of the module whose binding for key won.
func (c *Container) Source(key Key) (string, bool) {
	b, ok := c.bindings[key]
	if !ok {
		return "", false
	}
	return b.module, true
}

// Overrides returns the bindings replaced during Build, in merge order.
func (c *Container) Overrides() []Override {
	out := make([]Override, len(c.overrides))
	copy(out, c.overrides)
	return out
}

// Get returns the value bound to key.
func (c *Container) Get(key Key) (any, error) {
	return c.get(key, nil)
}

func (c *Container) get(key Key, path []Key) (any, error) {
	for i, k := range path {
		if k == key {
			return nil, fmt.Errorf("%w: %s", ErrCycle, formatCycle(append(path[i:], key)))
		}
	}

	// Inside a provider the Resolver keeps the path; *Container does not, so
	// providers resolving other bindings should ask for Resolver.
	if key == resolverKey && path != nil {
		return &pathResolver{c: c, path: path}, nil
	}
	if key == resolverKey || key == containerKey {
		return c, nil
	}

	b, ok := c.bindings[key]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNotBound, key)
	}

	next := append(path[:len(path):len(path)], key)
	if b.scope == TransientScope {
		return c.invoke(b, next)
	}

	s := c.slots[key]
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return s.value, nil
	}
	v, err := c.invoke(b, next)
	if err != nil {
		return nil, err
	}
	s.value, s.done = v, true
	return v, nil
}

func (c *Container) invoke(b *binding, path []Key) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("provider for %s panicked: %v", b.key, r)
		}
	}()

	v, err = b.provider(&pathResolver{c: c, path: path})
	if err != nil {
		return nil, fmt.Errorf("provide %s: %w", b.key, err)
	}
	if v != nil && !reflect.TypeOf(v).AssignableTo(b.key.typ) {
		return nil, fmt.Errorf("%w: provider for %s returned %T", ErrTypeMismatch, b.key, v)
	}
	return v, nil
}

// pathResolver carries the resolution path so cycles are detected.
type pathResolver struct {
	c    *Container
	path []Key
}

func (r *pathResolver) Get(key Key) (any, error) {
	return r.c.get(key, r.path)
}

func formatCycle(keys []Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	return strings.Join(parts, " -> ")
}

// Resolve returns the unnamed value bound to T.
func Resolve[T any](r Resolver) (T, error) {
	return resolveKey[T](r, KeyOf[T]())
}

// ResolveNamed returns the value bound to T under name.
func ResolveNamed[T any](r Resolver, name string) (T, error) {
	return resolveKey[T](r, NamedKey[T](name))
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](r Resolver) T {
	v, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

func resolveKey[T any](r Resolver, key Key) (T, error) {
	var zero T
	v, err := r.Get(key)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T", ErrTypeMismatch, key, v)
	}
	return t, nil
}

type unavailable struct{}

func (unavailable) Get(key Key) (any, error) {
	return nil, fmt.Errorf("%w: cannot resolve %s", ErrUnavailable, key)
}

// Unavailable is the Resolver handed to code that runs before any container
// exists. Every lookup fails with ErrUnavailable.
var Unavailable Resolver = unavailable{}

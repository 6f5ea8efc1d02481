package convention

import (
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"kestrel/container"
)

// DefaultCacheSize is used when NewResolver is given a non-positive size.
const DefaultCacheSize = 128

type entry struct {
	factory Factory
	found   bool
}

// Resolver answers existence checks and instantiates artifacts through a
// Discovery, caching lookups.
type Resolver struct {
	discovery Discovery
	cache     *lru.Cache[Name, entry]
}

// NewResolver wraps d with a lookup cache of the given size.
func NewResolver(d Discovery, cacheSize int) *Resolver {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[Name, entry](cacheSize)
	if err != nil {
		// only fails for non-positive sizes
		panic(err)
	}
	return &Resolver{discovery: d, cache: cache}
}

func (r *Resolver) lookup(name Name) (entry, error) {
	if !name.Valid() {
		return entry{}, &LookupError{Name: name, Err: errors.New("malformed name")}
	}
	if e, ok := r.cache.Get(name); ok {
		return e, nil
	}

	f, found, err := r.discovery.Lookup(name)
	if err != nil {
		return entry{}, &LookupError{Name: name, Err: err}
	}
	e := entry{factory: f, found: found && f != nil}
	r.cache.Add(name, e)
	return e, nil
}

// Exists reports whether an artifact is registered under name. It never
// invokes the factory. Absence is reported as false with a nil error.
func (r *Resolver) Exists(name Name) (bool, error) {
	e, err := r.lookup(name)
	if err != nil {
		return false, err
	}
	return e.found, nil
}

// Instantiate runs the factory registered under name. Factory panics are
// returned as errors.
func (r *Resolver) Instantiate(name Name, c container.Resolver) (v any, err error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if !e.found {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	defer func() {
		if p := recover(); p != nil {
			v, err = nil, fmt.Errorf("instantiate %s: panic: %v", name, p)
		}
	}()

	v, err = e.factory(c)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", name, err)
	}
	if v == nil {
		return nil, fmt.Errorf("instantiate %s: factory returned nil", name)
	}
	return v, nil
}

// Purge drops every cached lookup.
func (r *Resolver) Purge() {
	r.cache.Purge()
}

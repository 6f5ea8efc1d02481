package convention

import (
	"fmt"
	"sort"
	"sync"
)

// Catalog is an in-process Discovery populated by explicit registration.
type Catalog struct {
	mu        sync.RWMutex
	factories map[Name]Factory
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[Name]Factory)}
}

// Default is the catalog application packages register into.
var Default = NewCatalog()

// Register adds f under name.
func (c *Catalog) Register(name Name, f Factory) error {
	if !name.Valid() {
		return fmt.Errorf("invalid convention name %q", string(name))
	}
	if f == nil {
		return fmt.Errorf("nil factory for %q", string(name))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.factories[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	c.factories[name] = f
	return nil
}

// MustRegister is like Register but panics on error. Meant for init functions.
func (c *Catalog) MustRegister(name Name, f Factory) {
	if err := c.Register(name, f); err != nil {
		panic(err)
	}
}

// Unregister removes name. It reports whether anything was removed.
func (c *Catalog) Unregister(name Name) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.factories[name]
	delete(c.factories, name)
	return ok
}

// Lookup implements Discovery.
func (c *Catalog) Lookup(name Name) (Factory, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.factories[name]
	return f, ok, nil
}

// Names returns the registered names, sorted.
func (c *Catalog) Names() []Name {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]Name, 0, len(c.factories))
	for n := range c.factories {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

type chain []Discovery

// Chain consults each discovery in order. The first hit wins and the first
// error stops the search.
func Chain(ds ...Discovery) Discovery {
	return chain(ds)
}

func (c chain) Lookup(name Name) (Factory, bool, error) {
	for _, d := range c {
		f, ok, err := d.Lookup(name)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return f, true, nil
		}
	}
	return nil, false, nil
}

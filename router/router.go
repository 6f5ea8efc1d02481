// Package router holds the application routing table. Routes are declared
// first and compiled exactly once; a router serves nothing until compiled.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

var (
	// ErrAlreadyCompiled is returned by a second Compile
	ErrAlreadyCompiled = errors.New("routes already compiled")
	// ErrRoutesFrozen is the panic value for declarations after Compile
	ErrRoutesFrozen = errors.New("routes are frozen after compile")
	// ErrUnknownRoute is returned by Reverse for names no route carries
	ErrUnknownRoute = errors.New("unknown route")
)

// RouteInfo describes a declared route.
type RouteInfo struct {
	Method string `json:"method" yaml:"method"`
	Path   string `json:"path" yaml:"path"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Route is a route being declared.
type Route struct {
	router  *Router
	info    RouteInfo
	handler http.Handler
}

// With sets a handler function.
func (rt *Route) With(h http.HandlerFunc) *Route {
	if h == nil {
		return rt.Handler(nil)
	}
	return rt.Handler(h)
}

// Handler sets the handler.
func (rt *Route) Handler(h http.Handler) *Route {
	rt.router.mustBeOpen()
	rt.handler = h
	return rt
}

// Named gives the route a name usable with Reverse.
func (rt *Route) Named(name string) *Route {
	rt.router.mustBeOpen()
	rt.info.Name = name
	return rt
}

// Router collects route declarations and compiles them into a gorilla/mux
// router.
type Router struct {
	mu       sync.RWMutex
	routes   []*Route
	compiled *mux.Router
}

// New creates an empty, uncompiled router.
func New() *Router {
	return &Router{}
}

func (r *Router) mustBeOpen() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.compiled != nil {
		panic(ErrRoutesFrozen)
	}
}

// Route declares a route for method and path. Path templates follow
// gorilla/mux, e.g. "/users/{id:[0-9]+}".
func (r *Router) Route(method, path string) *Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.compiled != nil {
		panic(ErrRoutesFrozen)
	}
	rt := &Route{router: r, info: RouteInfo{Method: strings.ToUpper(method), Path: path}}
	r.routes = append(r.routes, rt)
	return rt
}

func (r *Router) GET(path string) *Route    { return r.Route(http.MethodGet, path) }
func (r *Router) POST(path string) *Route   { return r.Route(http.MethodPost, path) }
func (r *Router) PUT(path string) *Route    { return r.Route(http.MethodPut, path) }
func (r *Router) DELETE(path string) *Route { return r.Route(http.MethodDelete, path) }
func (r *Router) PATCH(path string) *Route  { return r.Route(http.MethodPatch, path) }

// Compile validates every declaration and builds the routing table. It
// succeeds at most once. On failure nothing is served and the router stays
// open for declarations.
func (r *Router) Compile() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.compiled != nil {
		return ErrAlreadyCompiled
	}

	m := mux.NewRouter()
	names := make(map[string]bool)
	for _, rt := range r.routes {
		if !strings.HasPrefix(rt.info.Path, "/") {
			return fmt.Errorf("route %s %q: path must start with /", rt.info.Method, rt.info.Path)
		}
		if rt.handler == nil {
			return fmt.Errorf("route %s %s has no handler", rt.info.Method, rt.info.Path)
		}
		mr := m.Handle(rt.info.Path, rt.handler).Methods(rt.info.Method)
		if rt.info.Name != "" {
			if names[rt.info.Name] {
				return fmt.Errorf("duplicate route name %q", rt.info.Name)
			}
			names[rt.info.Name] = true
			mr.Name(rt.info.Name)
		}
		if err := mr.GetError(); err != nil {
			return fmt.Errorf("route %s %s: %w", rt.info.Method, rt.info.Path, err)
		}
	}

	r.compiled = m
	return nil
}

// Compiled reports whether Compile has succeeded.
func (r *Router) Compiled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.compiled != nil
}

// Routes returns the declared routes in declaration order.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RouteInfo, len(r.routes))
	for i, rt := range r.routes {
		out[i] = rt.info
	}
	return out
}

// Reverse builds the path of the named route from variable pairs.
func (r *Router) Reverse(name string, pairs ...string) (string, error) {
	r.mu.RLock()
	m := r.compiled
	r.mu.RUnlock()
	if m == nil {
		return "", errors.New("routes not compiled")
	}

	route := m.Get(name)
	if route == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownRoute, name)
	}
	u, err := route.URLPath(pairs...)
	if err != nil {
		return "", fmt.Errorf("reverse %s: %w", name, err)
	}
	return u.Path, nil
}

// ServeHTTP dispatches to the compiled table, or answers 503 before Compile.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	m := r.compiled
	r.mu.RUnlock()
	if m == nil {
		http.Error(w, "routes not compiled", http.StatusServiceUnavailable)
		return
	}
	m.ServeHTTP(w, req)
}

// Vars returns the path variables of the current request.
func Vars(req *http.Request) map[string]string {
	return mux.Vars(req)
}

// Routes declares an application's routes.
type Routes interface {
	Init(r *Router) error
}

// RoutesFunc adapts a function to Routes.
type RoutesFunc func(r *Router) error

func (f RoutesFunc) Init(r *Router) error { return f(r) }

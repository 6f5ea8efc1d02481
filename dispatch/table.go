// Package dispatch maps request paths onto top-level handlers and filters,
// servlet style, in front of the routing table.
package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Middleware wraps a handler.
type Middleware func(next http.Handler) http.Handler

type pattern string

// matches reports whether path falls under p. Supported forms are "/*",
// "/prefix/*", "*.ext" and exact paths.
func (p pattern) matches(path string) bool {
	s := string(p)
	switch {
	case s == "/*":
		return true
	case strings.HasSuffix(s, "/*"):
		prefix := strings.TrimSuffix(s, "/*")
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	case strings.HasPrefix(s, "*."):
		return strings.HasSuffix(path, s[1:])
	default:
		return path == s
	}
}

func parsePattern(s string) (pattern, error) {
	switch {
	case s == "/*":
	case strings.HasPrefix(s, "*."):
		if len(s) == 2 || strings.ContainsAny(s[2:], "/*") {
			return "", fmt.Errorf("invalid extension pattern %q", s)
		}
	case strings.HasPrefix(s, "/"):
		if strings.Contains(strings.TrimSuffix(s, "/*"), "*") {
			return "", fmt.Errorf("wildcard only allowed as trailing /* in %q", s)
		}
	default:
		return "", fmt.Errorf("pattern %q must start with / or *.", s)
	}
	return pattern(s), nil
}

type serveEntry struct {
	pattern pattern
	handler http.Handler
}

type filterEntry struct {
	pattern    pattern
	middleware Middleware
}

// Table is an ordered set of serve and filter declarations.
type Table struct {
	serves  []serveEntry
	filters []filterEntry
	errs    []error
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// ServeBuilder completes a Serve declaration.
type ServeBuilder struct {
	t       *Table
	pattern string
}

// Serve starts declaring the handler for pattern.
func (t *Table) Serve(pattern string) *ServeBuilder {
	return &ServeBuilder{t: t, pattern: pattern}
}

// With sets the handler served for the pattern.
func (b *ServeBuilder) With(h http.Handler) {
	p, err := parsePattern(b.pattern)
	if err != nil {
		b.t.errs = append(b.t.errs, err)
		return
	}
	if h == nil {
		b.t.errs = append(b.t.errs, fmt.Errorf("nil handler for %q", b.pattern))
		return
	}
	b.t.serves = append(b.t.serves, serveEntry{pattern: p, handler: h})
}

// FilterBuilder completes a Filter declaration.
type FilterBuilder struct {
	t       *Table
	pattern string
}

// Filter starts declaring middleware for pattern.
func (t *Table) Filter(pattern string) *FilterBuilder {
	return &FilterBuilder{t: t, pattern: pattern}
}

// Through adds mw for every request under the pattern. Filters run in
// declaration order, outermost first.
func (b *FilterBuilder) Through(mw Middleware) {
	p, err := parsePattern(b.pattern)
	if err != nil {
		b.t.errs = append(b.t.errs, err)
		return
	}
	if mw == nil {
		b.t.errs = append(b.t.errs, fmt.Errorf("nil filter for %q", b.pattern))
		return
	}
	b.t.filters = append(b.t.filters, filterEntry{pattern: p, middleware: mw})
}

// Err returns the declaration errors collected so far.
func (t *Table) Err() error {
	return errors.Join(t.errs...)
}

// Lookup returns the handler for path wrapped in its matching filters. The
// first matching Serve declaration wins.
func (t *Table) Lookup(path string) (http.Handler, bool) {
	var h http.Handler
	for _, s := range t.serves {
		if s.pattern.matches(path) {
			h = s.handler
			break
		}
	}
	if h == nil {
		return nil, false
	}

	for i := len(t.filters) - 1; i >= 0; i-- {
		if f := t.filters[i]; f.pattern.matches(path) {
			h = f.middleware(h)
		}
	}
	return h, true
}

// Patterns returns the serve patterns in declaration order.
func (t *Table) Patterns() []string {
	out := make([]string, len(t.serves))
	for i, s := range t.serves {
		out[i] = string(s.pattern)
	}
	return out
}

// ServeHTTP dispatches the request, or answers 404 when nothing is served at
// its path.
func (t *Table) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h, ok := t.Lookup(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	h.ServeHTTP(w, r)
}

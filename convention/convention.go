// Package convention locates optional application artifacts by well-known
// name.
//
// A name is an optional base namespace joined to a fixed suffix, for example
// "hello.conf.Module". Applications make artifacts discoverable by
// registering a Factory under that name in a Catalog, normally Default, from
// an init function. Nothing is looked up by reflection: a name that was never
// registered simply does not exist.
package convention

import (
	"errors"
	"fmt"
	"regexp"

	"kestrel/container"
)

// Well-known suffixes and names.
const (
	ModuleSuffix        = "conf.Module"
	ServletModuleSuffix = "conf.ServletModule"
	RoutesSuffix        = "conf.Routes"

	// LoggingBackend is present when a logging backend is linked into the binary
	LoggingBackend Name = "logging.ZapBackend"
)

// Name is a fully-qualified convention name.
type Name string

func (n Name) String() string { return string(n) }

// Resolve joins base and suffix. An empty base yields the suffix alone.
func Resolve(base, suffix string) Name {
	if base == "" {
		return Name(suffix)
	}
	return Name(base + "." + suffix)
}

var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Valid reports whether n is a well-formed dot-separated name.
func (n Name) Valid() bool {
	return namePattern.MatchString(string(n))
}

// Factory constructs the artifact registered under a name.
type Factory func(r container.Resolver) (any, error)

var (
	// ErrNotFound is returned when instantiating a name nothing is registered under
	ErrNotFound = errors.New("convention not found")
	// ErrDuplicate is returned when a name is registered twice in one catalog
	ErrDuplicate = errors.New("convention already registered")
)

// LookupError reports an unexpected failure while checking whether a name
// exists. Not finding a name is not a LookupError.
type LookupError struct {
	Name Name
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("convention lookup %q: %v", string(e.Name), e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// Discovery finds factories by name.
type Discovery interface {
	Lookup(name Name) (Factory, bool, error)
}

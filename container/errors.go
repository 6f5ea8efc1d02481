package container

import (
	"errors"
	"fmt"
)

var (
	// ErrNotBound is returned when no binding exists for a key
	ErrNotBound = errors.New("no binding")
	// ErrCycle is returned when a provider depends on itself, directly or not
	ErrCycle = errors.New("dependency cycle")
	// ErrTypeMismatch is returned when a bound value has an unexpected type
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrUnavailable is returned by Unavailable for every lookup
	ErrUnavailable = errors.New("container not available")
)

// Build phases reported by BuildError.
const (
	PhaseCompose     = "compose"
	PhaseConfigure   = "configure"
	PhaseInstantiate = "instantiate"
	PhaseRoutes      = "routes"
	PhaseApplication = "application"
)

// BuildError reports why a container or the boot sequence around it could
// not be produced. It always carries the originating cause.
type BuildError struct {
	Phase  string
	Module string
	Key    string
	Err    error
}

func (e *BuildError) Error() string {
	msg := "build failed during " + e.Phase
	if e.Module != "" {
		msg += fmt.Sprintf(" (module %q)", e.Module)
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" for %s", e.Key)
	}
	return msg + ": " + e.Err.Error()
}

func (e *BuildError) Unwrap() error { return e.Err }

// IsBuildError reports whether err is or wraps a *BuildError.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}

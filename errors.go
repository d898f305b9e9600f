package fsbridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRoutable is returned when an operation that requires routing
	// is invoked on a path the mapper declined. Callers are expected to
	// check Decide before invoking the router, so hitting this is a
	// contract violation rather than a normal outcome.
	ErrNotRoutable = errors.New("path is not routable")

	// ErrUnsupported is returned by backends for capabilities they do
	// not provide (e.g. append on object stores).
	ErrUnsupported = errors.New("operation not supported")
)

// CommitError reports a failure during the commit step of an atomic write,
// after the temp object was fully written. The temp object has been removed
// on a best-effort basis. Note that a pre-existing target may already have
// been deleted by the time the failure occurred; the coordinator does not
// resurrect it.
type CommitError struct {
	Target string
	Temp   string
	Err    error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s: %v", e.Target, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

func notRoutable(op, path string) error {
	return fmt.Errorf("%s %q: %w", op, path, ErrNotRoutable)
}

package servlet

import (
	"errors"
	"fmt"
)

// ErrNotRunning is returned by request and session hooks fired outside the
// Running state. The host must not dispatch before start completes or after
// stop begins.
var ErrNotRunning = errors.New("servlet: listener is not running")

// BootstrapError reports a fatal failure during context start.
type BootstrapError struct {
	Phase string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e *BootstrapError) Error() string {
	return fmt.Sprintf("servlet: bootstrap failed in %s: %v", e.Phase, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e *BootstrapError) Unwrap() error {
	return e.Cause
}

// StateError reports a lifecycle operation in an illegal state.
type StateError struct {
	Op    string
	State State
}

// Error implements the [builtin.error] interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("servlet: %s not allowed in state %s", e.Op, e.State)
}

// RouteError reports malformed route metadata on a request processor.
type RouteError struct {
	Bean   string
	Method string
	Path   string
	Reason string
}

// Error implements the [builtin.error] interface.
func (e *RouteError) Error() string {
	if e.Method == "" && e.Path == "" {
		return fmt.Sprintf("servlet: processor %q: %s", e.Bean, e.Reason)
	}
	return fmt.Sprintf("servlet: processor %q route %s %s: %s", e.Bean, e.Method, e.Path, e.Reason)
}

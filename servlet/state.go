// Package servlet drives the application lifecycle: runtime bootstrap on
// context start, per-request and per-session hooks, and teardown on
// context stop.
package servlet

// State is the lifecycle state of a Listener.
type State int32

const (
	Uninitialized State = iota
	Initializing
	Running
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

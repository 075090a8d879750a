package ioc

import (
	"errors"
	"fmt"
)

// ErrAlreadyStarted is returned when StartApplication is called on a
// container that was already built.
var ErrAlreadyStarted = errors.New("ioc: container already started")

// DiscoveryError represents an invalid scan path or descriptor set.
type DiscoveryError struct {
	Bean   string
	Reason string
}

func (e *DiscoveryError) Error() string {
	if e.Bean == "" {
		return fmt.Sprintf("discovery failed: %s", e.Reason)
	}
	return fmt.Sprintf("discovery failed for bean %s: %s", e.Bean, e.Reason)
}

// CircularDependencyError represents a dependency cycle.
type CircularDependencyError struct {
	Chain []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected: %v", e.Chain)
}

// BindingNotFoundError represents a dependency on a bean that was not
// discovered.
type BindingNotFoundError struct {
	Bean       string
	Dependency string
}

func (e *BindingNotFoundError) Error() string {
	return fmt.Sprintf("no binding found for %s (required by %s)", e.Dependency, e.Bean)
}

// InitializationError represents a factory failure.
type InitializationError struct {
	Bean string
	Err  error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialization failed for bean %s: %v", e.Bean, e.Err)
}

func (e *InitializationError) Unwrap() error {
	return e.Err
}

// BootError represents an OnBoot failure.
type BootError struct {
	Bean string
	Err  error
}

func (e *BootError) Error() string {
	return fmt.Sprintf("boot failed for bean %s: %v", e.Bean, e.Err)
}

func (e *BootError) Unwrap() error {
	return e.Err
}

// ShutdownError represents an OnShutdown failure.
type ShutdownError struct {
	Bean string
	Err  error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("shutdown failed for bean %s: %v", e.Bean, e.Err)
}

func (e *ShutdownError) Unwrap() error {
	return e.Err
}

// TypeMismatchError represents a Lookup of a bean with the wrong type.
type TypeMismatchError struct {
	Bean     string
	Expected string
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for bean %s: expected %s, got %s", e.Bean, e.Expected, e.Got)
}

package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for dispatch and registry failures.
var (
	// ErrNoProviderConfigured is returned when a capability class has no
	// enabled providers. No adapter is invoked in this case.
	ErrNoProviderConfigured = errors.New("no provider configured for capability class")

	// ErrAllProvidersExhausted is returned when every enabled candidate in
	// a class was tried and failed.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrAdapterNotRegistered is returned when a descriptor has no matching
	// adapter wired into the router.
	ErrAdapterNotRegistered = errors.New("no adapter registered for provider")
)

// ConfigurationError reports invalid provider configuration at load time.
type ConfigurationError struct {
	Class  Class
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider configuration invalid for class %q: %s", e.Class, e.Detail)
}

// NoProviderError is the dispatch failure for an empty capability class.
type NoProviderError struct {
	Class Class
}

func (e *NoProviderError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNoProviderConfigured, e.Class)
}

func (e *NoProviderError) Unwrap() error { return ErrNoProviderConfigured }

// Attempt records one failed candidate within a dispatch.
type Attempt struct {
	ProviderID string
	Err        error
}

// ExhaustedError is the dispatch failure when every enabled candidate in a
// class was tried and failed. Attempts are in priority order.
type ExhaustedError struct {
	Class    Class
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.ProviderID, a.Err))
	}
	return fmt.Sprintf("%v for class %s: [%s]", ErrAllProvidersExhausted, e.Class, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Unwrap() error { return ErrAllProvidersExhausted }

// AttemptedIDs returns the ordered provider ids that were tried.
func (e *ExhaustedError) AttemptedIDs() []string {
	ids := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		ids = append(ids, a.ProviderID)
	}
	return ids
}

// Package provider implements the hybrid provider router: an immutable
// registry of configured backends per capability class, liveness probing,
// and priority-ordered fallback dispatch.
package provider

import "context"

// Class identifies a category of interchangeable backends.
type Class string

const (
	// ClassDataStore covers persistent record storage backends.
	ClassDataStore Class = "data-store"

	// ClassAIModel covers AI model inference backends.
	ClassAIModel Class = "ai-model"
)

// Classes lists all known capability classes.
func Classes() []Class {
	return []Class{ClassDataStore, ClassAIModel}
}

// Descriptor describes one configured provider. Descriptors are immutable
// once loaded into a Registry.
type Descriptor struct {
	// ID uniquely identifies the provider within its capability class.
	ID string

	// Class is the capability class this provider serves.
	Class Class

	// Priority orders fallback; lower is tried first.
	Priority int

	// Enabled providers participate in dispatch and health checks.
	Enabled bool

	// Config carries opaque provider-specific settings.
	Config map[string]string
}

// Adapter is the uniform shape every concrete provider implements. The
// router and the health aggregator depend only on this interface.
type Adapter interface {
	// Name returns the provider id this adapter serves.
	Name() string

	// Connect establishes any underlying connection. Safe to call once at
	// startup; adapters that connect lazily may make it a no-op.
	Connect(ctx context.Context) error

	// Execute performs one request against the backend. The payload type is
	// defined per capability class.
	Execute(ctx context.Context, payload any) (any, error)

	// Ping performs a minimal liveness check against the backend.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// Result is the outcome of a successful dispatch.
type Result struct {
	// ProviderID names the provider that answered.
	ProviderID string

	// Attempted lists every provider tried, in priority order, with no
	// repeats. On first-try success it has length 1.
	Attempted []string

	// Response is the adapter's response payload.
	Response any
}

// Package notify defines the boundary between the notification dispatcher
// and the delivery providers plugged into it.
package notify

import "context"

// Provider is the interface that delivery channels must implement.
// Send never returns an error: every failure is reported through the
// returned Result.
type Provider interface {
	// Name returns the unique name the dispatcher registers the provider under.
	Name() string

	// Send delivers one message described by params.
	Send(ctx context.Context, params Parameters) Result
}

// Sender routes a parameter mapping to a named provider.
type Sender interface {
	Send(ctx context.Context, provider string, params Parameters) Result
}

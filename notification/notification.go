package notification

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotConfigured is returned when the provider has no usable credentials
var ErrNotConfigured = errors.New("notification provider is not configured")

// Message is one outbound notification. Subject is ignored by SMS providers.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Repository is an interface for a notifier repository
type Repository interface {
	String() string
	// Post delivers the message and returns the provider's message id
	Post(ctx context.Context, m Message) (string, error)
}

// Provider hands out the notifiers built from the current configuration
type Provider interface {
	SMS(ctx context.Context) (Repository, error)
	Email(ctx context.Context) (Repository, error)
}

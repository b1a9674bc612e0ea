// Package provider defines the interface for email delivery backends.
package provider

import (
	"context"

	"github.com/shineum/mailkit-lite/internal/email"
)

// Provider is the interface that email delivery backends must implement.
// Each provider encodes the message with the MIME codec and hands the
// result to its target (an SMTP server, AWS SES, standard output).
type Provider interface {
	// Send delivers an email message through this provider.
	Send(ctx context.Context, msg *email.Message) error

	// Name returns the human-readable name of this provider.
	Name() string
}

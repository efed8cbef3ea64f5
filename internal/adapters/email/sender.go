package email

import (
	"context"
	"time"
)

// SendRequest contains the data needed to send an email via an external provider.
type SendRequest struct {
	To      string // Supplier email address
	From    string // Sender address (e.g. "Restock <orders@restock.app>")
	Subject string
	HTML    string // HTML body
	ReplyTo string // Reply-to address, typically the store manager
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string    // Provider's message ID for tracking
	SentAt    time.Time // When the send was accepted
}

// Sender is the interface for sending emails via an external provider.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

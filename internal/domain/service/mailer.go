package service

import "context"

// Mail is a single templated message handed to the email collaborator.
type Mail struct {
	To      string // Recipient address.
	Name    string // Recipient display name for the template.
	Subject string
	Link    string // The action link embedded in the template, if any.
	Body    string // Plain-text body rendered around the link.
}

// Mailer defines the external email-sending collaborator.
// Sends are side effects: failures on non-critical mail (e.g. welcome emails)
// are logged and surfaced as degraded success, never rolled back into the
// primary state change.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

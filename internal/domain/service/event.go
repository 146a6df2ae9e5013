package service

import (
	"context"

	"passport/internal/domain/entity"
)

// Domain events replace side effects keyed off transport paths: instead of a
// hook inspecting the request URL, state changes publish a typed event and
// statically registered handlers react to it.

// UserCreatedEvent fires after sign-up commits.
type UserCreatedEvent struct {
	User *entity.User
}

// PasswordResetEvent fires after a password reset completes.
type PasswordResetEvent struct {
	User *entity.User
}

// SessionCreatedEvent fires after a session is issued.
type SessionCreatedEvent struct {
	Session *entity.Session
	User    *entity.User
}

// InvitationCreatedEvent fires after an organization invitation is issued.
type InvitationCreatedEvent struct {
	Invitation   *entity.Invitation
	Organization *entity.Organization
	Inviter      *entity.User
}

// Event is the marker for all domain events.
type Event interface{ eventName() string }

func (UserCreatedEvent) eventName() string       { return "user.created" }
func (PasswordResetEvent) eventName() string     { return "password.reset" }
func (SessionCreatedEvent) eventName() string    { return "session.created" }
func (InvitationCreatedEvent) eventName() string { return "invitation.created" }

// EventHandler reacts to a published event. Handler errors are logged by the
// dispatcher and never propagate into the publishing operation.
type EventHandler interface {
	Handle(ctx context.Context, event Event)
}

// EventPublisher dispatches domain events to registered handlers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Organization groups users under a shared billing reference.
// The slug is derived from the name and unique across the platform.
type Organization struct {
	ID        uuid.UUID // The Global Unique Identifier (GUID) for the organization.
	Name      string    // Display name chosen at creation.
	Slug      string    // URL-safe unique identifier derived from the name.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Member ties a user to an organization with a role.
type Member struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Role           OrgRole
	CreatedAt      time.Time
}

// InvitationStatus tracks the lifecycle of an organization invitation.
type InvitationStatus string

const (
	// InvitationPending is the initial state; the only state that may transition.
	InvitationPending InvitationStatus = "pending"
	// InvitationAccepted means the invitee joined the organization.
	InvitationAccepted InvitationStatus = "accepted"
	// InvitationRejected means the invitee declined.
	InvitationRejected InvitationStatus = "rejected"
	// InvitationCanceled means an organization admin withdrew the invitation.
	InvitationCanceled InvitationStatus = "canceled"
)

// Invitation invites an email address into an organization with a role.
// Expired invitations are not auto-transitioned; consumers must check
// ExpiresAt alongside Status.
type Invitation struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Email          string           // Invitee email; must match the accepting user's verified email.
	Role           OrgRole          // Role granted on acceptance.
	InviterID      uuid.UUID        // The admin or owner who issued the invitation.
	Status         InvitationStatus
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

// Actionable reports whether the invitation can still be accepted or rejected.
func (i *Invitation) Actionable(now time.Time) bool {
	return i.Status == InvitationPending && i.ExpiresAt.After(now)
}

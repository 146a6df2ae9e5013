package usecase

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// CreateOrganizationInput defines the data required to create an organization.
// An empty Slug is derived from the name.
type CreateOrganizationInput struct {
	Name string
	Slug string
}

// UpdateOrganizationInput defines the mutable organization fields.
// Nil pointers leave the corresponding field untouched.
type UpdateOrganizationInput struct {
	Name *string
	Slug *string
}

// OrganizationOutput aggregates the full organization view.
type OrganizationOutput struct {
	Organization *entity.Organization
	Members      []*entity.Member
	Invitations  []*entity.Invitation
}

// OrganizationUsecase defines organization, membership and invitation
// operations. Mutations are authorized against the caller's role within
// the organization.
type OrganizationUsecase interface {
	// Create creates an organization with the caller as its owner.
	Create(ctx context.Context, userID uuid.UUID, input CreateOrganizationInput) (*entity.Organization, error)

	// Get returns the organization with members and pending invitations.
	// The caller must be a member.
	Get(ctx context.Context, userID, orgID uuid.UUID) (*OrganizationOutput, error)

	// Update modifies organization fields. Owner or admin only.
	Update(ctx context.Context, userID, orgID uuid.UUID, input UpdateOrganizationInput) (*entity.Organization, error)

	// Delete removes the organization and everything under it. Owner only.
	Delete(ctx context.Context, userID, orgID uuid.UUID) error

	// List returns the organizations the user belongs to.
	List(ctx context.Context, userID uuid.UUID) ([]*entity.Organization, error)

	// Invite creates a pending invitation and emails the invitee. Owner or
	// admin only; an address with a pending invitation or an existing
	// membership cannot be invited again.
	Invite(ctx context.Context, userID, orgID uuid.UUID, email string, role entity.OrgRole) (*entity.Invitation, error)

	// CancelInvitation withdraws a pending invitation. Owner or admin only.
	CancelInvitation(ctx context.Context, userID, invitationID uuid.UUID) error

	// AcceptInvitation turns a pending invitation into a membership and
	// switches the caller's session to the joined organization. The
	// caller's email must match the invitation.
	AcceptInvitation(ctx context.Context, userID, sessionID, invitationID uuid.UUID) (*entity.Member, error)

	// RejectInvitation declines a pending invitation addressed to the caller.
	RejectInvitation(ctx context.Context, userID uuid.UUID, invitationID uuid.UUID) error

	// RemoveMember removes another member. Owner or admin only; the last
	// owner cannot be removed.
	RemoveMember(ctx context.Context, userID, orgID, memberID uuid.UUID) error

	// UpdateMemberRole changes a member's role. Owner only; demoting the
	// last owner is rejected.
	UpdateMemberRole(ctx context.Context, userID, orgID, memberID uuid.UUID, role entity.OrgRole) (*entity.Member, error)

	// Leave removes the caller's own membership. The last owner cannot leave.
	Leave(ctx context.Context, userID, orgID uuid.UUID) error
}

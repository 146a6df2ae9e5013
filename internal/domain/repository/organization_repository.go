// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for organization persistence.
var (
	// ErrOrganizationNotFound is returned when an organization is not found.
	ErrOrganizationNotFound = errors.New("organization not found")
	// ErrSlugTaken is returned when the derived slug already exists.
	ErrSlugTaken = errors.New("organization slug already taken")
	// ErrMemberNotFound is returned when a membership row is not found.
	ErrMemberNotFound = errors.New("member not found")
	// ErrInvitationNotFound is returned when an invitation is not found.
	ErrInvitationNotFound = errors.New("invitation not found")
)

// OrganizationRepository persists organizations, memberships and invitations.
// They share one interface because membership and invitation rows never exist
// without their organization and are mutated in the same transactions.
type OrganizationRepository interface {
	// CreateOrganization persists the organization row.
	// Returns ErrSlugTaken on a slug uniqueness conflict.
	CreateOrganization(ctx context.Context, org *entity.Organization) error

	// FindOrganizationByID retrieves an organization by ID.
	FindOrganizationByID(ctx context.Context, id uuid.UUID) (*entity.Organization, error)

	// FindOrganizationBySlug retrieves an organization by slug.
	FindOrganizationBySlug(ctx context.Context, slug string) (*entity.Organization, error)

	// UpdateOrganization persists name and slug changes.
	// Returns ErrSlugTaken on a slug uniqueness conflict.
	UpdateOrganization(ctx context.Context, org *entity.Organization) error

	// DeleteOrganization removes the organization with its members,
	// invitations and subscription mirror rows.
	DeleteOrganization(ctx context.Context, id uuid.UUID) error

	// CreateMember persists a membership row.
	CreateMember(ctx context.Context, member *entity.Member) error

	// FindMember retrieves the membership of a user in an organization.
	FindMember(ctx context.Context, orgID, userID uuid.UUID) (*entity.Member, error)

	// FindMemberByID retrieves a membership row by its own ID.
	FindMemberByID(ctx context.Context, id uuid.UUID) (*entity.Member, error)

	// FindMembersByOrganization lists all members of an organization.
	FindMembersByOrganization(ctx context.Context, orgID uuid.UUID) ([]*entity.Member, error)

	// FindMembershipsByUser lists a user's memberships, most recently created first.
	// The first element drives default active-organization inference.
	FindMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Member, error)

	// CountOwners returns the number of owner members in an organization.
	CountOwners(ctx context.Context, orgID uuid.UUID) (int, error)

	// UpdateMemberRole changes the role on a membership row.
	UpdateMemberRole(ctx context.Context, id uuid.UUID, role entity.OrgRole) error

	// DeleteMember removes a membership row.
	DeleteMember(ctx context.Context, id uuid.UUID) error

	// CreateInvitation persists a new invitation.
	CreateInvitation(ctx context.Context, invitation *entity.Invitation) error

	// FindInvitationByID retrieves an invitation by ID.
	FindInvitationByID(ctx context.Context, id uuid.UUID) (*entity.Invitation, error)

	// FindPendingInvitation retrieves a pending invitation for an email in an
	// organization, used to refuse duplicate pending invites.
	FindPendingInvitation(ctx context.Context, orgID uuid.UUID, email string) (*entity.Invitation, error)

	// FindInvitationsByOrganization lists all invitations of an organization.
	FindInvitationsByOrganization(ctx context.Context, orgID uuid.UUID) ([]*entity.Invitation, error)

	// UpdateInvitationStatus transitions an invitation's status.
	UpdateInvitationStatus(ctx context.Context, id uuid.UUID, status entity.InvitationStatus) error
}

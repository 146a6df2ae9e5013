package impl

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"passport/config"
	deliverycontext "passport/internal/delivery/context"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/policy"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// organizationService implements the OrganizationUsecase interface.
type organizationService struct {
	txManager     repository.TransactionManager
	orgRepo       repository.OrganizationRepository
	userRepo      repository.UserRepository
	store         service.SecondaryStore
	publisher     service.EventPublisher
	invitationTTL time.Duration
	logger        *slog.Logger
}

// OrganizationServiceParams holds dependencies for organizationService, injected by Fx.
type OrganizationServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	OrgRepo   repository.OrganizationRepository
	UserRepo  repository.UserRepository
	Store     service.SecondaryStore
	Publisher service.EventPublisher
	Config    *config.Config
	Logger    *slog.Logger
}

// NewOrganizationService is the constructor for organizationService.
func NewOrganizationService(params OrganizationServiceParams) usecase.OrganizationUsecase {
	return &organizationService{
		txManager:     params.TxManager,
		orgRepo:       params.OrgRepo,
		userRepo:      params.UserRepo,
		store:         params.Store,
		publisher:     params.Publisher,
		invitationTTL: params.Config.Auth.InvitationTTL,
		logger:        params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *organizationService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// slugify derives a URL-safe slug: lowercase, runs of non-alphanumerics
// collapsed into single hyphens, leading and trailing hyphens trimmed.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true

	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) && r < unicode.MaxASCII || '0' <= r && r <= '9' {
			b.WriteRune(r)
			lastHyphen = false

			continue
		}

		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.Trim(b.String(), "-")
}

// Create creates an organization with the caller as its owner.
func (srv *organizationService) Create(ctx context.Context, userID uuid.UUID, input usecase.CreateOrganizationInput) (*entity.Organization, error) {
	slug := input.Slug
	if slug == "" {
		slug = slugify(input.Name)
	}
	if slug == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("organization name yields an empty slug")
	}

	org := &entity.Organization{
		Name: input.Name,
		Slug: slug,
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orgRepo := repoFactory.OrganizationRepo()

		if err := orgRepo.CreateOrganization(ctx, org); err != nil {
			if errors.Is(err, repository.ErrSlugTaken) {
				return domainerrors.ErrSlugTaken
			}

			return err
		}

		return orgRepo.CreateMember(ctx, &entity.Member{
			OrganizationID: org.ID,
			UserID:         userID,
			Role:           entity.OrgRoleOwner,
		})
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Organization created", slog.Any("orgID", org.ID), slog.Any("ownerID", userID))

	return org, nil
}

// Get returns the organization with its members and invitations.
func (srv *organizationService) Get(ctx context.Context, userID, orgID uuid.UUID) (*usecase.OrganizationOutput, error) {
	if _, err := srv.requireMember(ctx, srv.orgRepo, orgID, userID); err != nil {
		return nil, err
	}

	org, err := srv.orgRepo.FindOrganizationByID(ctx, orgID)
	if errors.Is(err, repository.ErrOrganizationNotFound) {
		return nil, domainerrors.ErrOrganizationNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find organization")
	}

	members, err := srv.orgRepo.FindMembersByOrganization(ctx, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list members")
	}

	invitations, err := srv.orgRepo.FindInvitationsByOrganization(ctx, orgID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list invitations")
	}

	return &usecase.OrganizationOutput{
		Organization: org,
		Members:      members,
		Invitations:  invitations,
	}, nil
}

// Update modifies organization fields, owner or admin only.
func (srv *organizationService) Update(ctx context.Context, userID, orgID uuid.UUID, input usecase.UpdateOrganizationInput) (*entity.Organization, error) {
	var org *entity.Organization
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orgRepo := repoFactory.OrganizationRepo()

		member, err := srv.requireMember(ctx, orgRepo, orgID, userID)
		if err != nil {
			return err
		}
		if !policy.Allowed(member.Role, policy.ActionUpdateOrg) {
			return domainerrors.ErrForbidden
		}

		org, err = orgRepo.FindOrganizationByID(ctx, orgID)
		if err != nil {
			return errors.Wrap(err, "failed to find organization")
		}

		if input.Name != nil {
			org.Name = *input.Name
		}
		if input.Slug != nil {
			org.Slug = slugify(*input.Slug)
		}

		if err := orgRepo.UpdateOrganization(ctx, org); err != nil {
			if errors.Is(err, repository.ErrSlugTaken) {
				return domainerrors.ErrSlugTaken
			}

			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return org, nil
}

// Delete removes the organization, owner only.
func (srv *organizationService) Delete(ctx context.Context, userID, orgID uuid.UUID) error {
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orgRepo := repoFactory.OrganizationRepo()

		member, err := srv.requireMember(ctx, orgRepo, orgID, userID)
		if err != nil {
			return err
		}
		if !policy.Allowed(member.Role, policy.ActionDeleteOrg) {
			return domainerrors.ErrForbidden
		}

		return orgRepo.DeleteOrganization(ctx, orgID)
	})
}

// List returns the organizations the user belongs to.
func (srv *organizationService) List(ctx context.Context, userID uuid.UUID) ([]*entity.Organization, error) {
	memberships, err := srv.orgRepo.FindMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memberships")
	}

	orgs := make([]*entity.Organization, 0, len(memberships))
	for _, membership := range memberships {
		org, err := srv.orgRepo.FindOrganizationByID(ctx, membership.OrganizationID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to find organization")
		}

		orgs = append(orgs, org)
	}

	return orgs, nil
}

// Invite creates a pending invitation and publishes the event that sends the
// invitation email.
func (srv *organizationService) Invite(ctx context.Context, userID, orgID uuid.UUID, email string, role entity.OrgRole) (*entity.Invitation, error) {
	if !role.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WithDetails("invalid organization role")
	}

	var (
		invitation *entity.Invitation
		org        *entity.Organization
		inviter    *entity.User
	)
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orgRepo := repoFactory.OrganizationRepo()

		member, err := srv.requireMember(ctx, orgRepo, orgID, userID)
		if err != nil {
			return err
		}
		if !policy.Allowed(member.Role, policy.ActionInviteMember) {
			return domainerrors.ErrForbidden
		}

		org, err = orgRepo.FindOrganizationByID(ctx, orgID)
		if err != nil {
			return errors.Wrap(err, "failed to find organization")
		}

		inviter, err = repoFactory.UserRepo().FindByID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find inviter")
		}

		// Refuse a second pending invitation to the same address.
		if _, err := orgRepo.FindPendingInvitation(ctx, orgID, email); err == nil {
			return domainerrors.ErrDuplicatePendingInvite
		} else if !errors.Is(err, repository.ErrInvitationNotFound) {
			return errors.Wrap(err, "failed to check pending invitations")
		}

		// An existing member cannot be invited again.
		if invitee, err := repoFactory.UserRepo().FindByEmail(ctx, email); err == nil {
			if _, err := orgRepo.FindMember(ctx, orgID, invitee.ID); err == nil {
				return domainerrors.ErrAlreadyMember
			} else if !errors.Is(err, repository.ErrMemberNotFound) {
				return errors.Wrap(err, "failed to check membership")
			}
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to find invitee")
		}

		invitation = &entity.Invitation{
			OrganizationID: orgID,
			Email:          strings.ToLower(email),
			Role:           role,
			InviterID:      userID,
			Status:         entity.InvitationPending,
			ExpiresAt:      time.Now().Add(srv.invitationTTL),
		}

		return orgRepo.CreateInvitation(ctx, invitation)
	})
	if err != nil {
		return nil, err
	}

	srv.publisher.Publish(ctx, service.InvitationCreatedEvent{
		Invitation:   invitation,
		Organization: org,
		Inviter:      inviter,
	})

	return invitation, nil
}

// CancelInvitation withdraws a pending invitation, owner or admin only.
func (srv *organizationService) CancelInvitation(ctx context.Context, userID, invitationID uuid.UUID) error {
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orgRepo := repoFactory.OrganizationRepo()

		invitation, err := orgRepo.FindInvitationByID(ctx, invitationID)
		if errors.Is(err, repository.ErrInvitationNotFound) {
			return domainerrors.ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to find invitation")
		}

		member, err := srv.requireMember(ctx, orgRepo, invitation.OrganizationID, userID)
		if err != nil {
			return err
		}
		if !policy.Allowed(member.Role, policy.ActionCancelInvitation) {
			return domainerrors.ErrForbidden
		}

		if invitation.Status != entity.InvitationPending {
			return domainerrors.ErrInvitationInvalid
		}

		return orgRepo.UpdateInvitationStatus(ctx, invitationID, entity.InvitationCanceled)
	})
}

// AcceptInvitation turns a pending invitation into a membership and makes
// the joined organization the active one on the caller's session.
func (srv *organizationService) AcceptInvitation(ctx context.Context, userID, sessionID, invitationID uuid.UUID) (*entity.Member, error) {
	var (
		member    *entity.Member
		tokenHash string
	)
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orgRepo := repoFactory.OrganizationRepo()

		invitation, err := srv.actionableInvitation(ctx, repoFactory, invitationID, userID)
		if err != nil {
			return err
		}

		member = &entity.Member{
			OrganizationID: invitation.OrganizationID,
			UserID:         userID,
			Role:           invitation.Role,
		}
		if err := orgRepo.CreateMember(ctx, member); err != nil {
			return err
		}

		if err := orgRepo.UpdateInvitationStatus(ctx, invitationID, entity.InvitationAccepted); err != nil {
			return err
		}

		sessionRepo := repoFactory.SessionRepo()

		session, err := sessionRepo.FindByID(ctx, sessionID)
		if errors.Is(err, repository.ErrSessionNotFound) {
			return domainerrors.ErrSessionInvalid
		}
		if err != nil {
			return errors.Wrap(err, "failed to find session")
		}
		if session.UserID != userID {
			return domainerrors.ErrForbidden
		}

		session.ActiveOrganizationID = &invitation.OrganizationID
		tokenHash = session.TokenHash

		return sessionRepo.Update(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	// Drop the cookie-cache copy so the next validation sees the new
	// active organization instead of a stale nil.
	if err := srv.store.Delete(ctx, sessionCacheKey(tokenHash)); err != nil {
		srv.log(ctx).Warn("failed to drop session cache", slog.Any("error", err))
	}

	return member, nil
}

// RejectInvitation declines a pending invitation addressed to the caller.
func (srv *organizationService) RejectInvitation(ctx context.Context, userID uuid.UUID, invitationID uuid.UUID) error {
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		if _, err := srv.actionableInvitation(ctx, repoFactory, invitationID, userID); err != nil {
			return err
		}

		return repoFactory.OrganizationRepo().UpdateInvitationStatus(ctx, invitationID, entity.InvitationRejected)
	})
}

// RemoveMember removes another member, owner or admin only. The last owner
// can never be removed.
func (srv *organizationService) RemoveMember(ctx context.Context, userID, orgID, memberID uuid.UUID) error {
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orgRepo := repoFactory.OrganizationRepo()

		caller, err := srv.requireMember(ctx, orgRepo, orgID, userID)
		if err != nil {
			return err
		}
		if !policy.Allowed(caller.Role, policy.ActionRemoveMember) {
			return domainerrors.ErrForbidden
		}

		target, err := orgRepo.FindMemberByID(ctx, memberID)
		if errors.Is(err, repository.ErrMemberNotFound) {
			return domainerrors.ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to find member")
		}
		if target.OrganizationID != orgID {
			return domainerrors.ErrNotFound
		}

		if err := srv.guardLastOwner(ctx, orgRepo, target); err != nil {
			return err
		}

		return orgRepo.DeleteMember(ctx, memberID)
	})
}

// UpdateMemberRole changes a member's role. Demoting the last owner is rejected.
func (srv *organizationService) UpdateMemberRole(ctx context.Context, userID, orgID, memberID uuid.UUID, role entity.OrgRole) (*entity.Member, error) {
	if !role.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WithDetails("invalid organization role")
	}

	var target *entity.Member
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orgRepo := repoFactory.OrganizationRepo()

		caller, err := srv.requireMember(ctx, orgRepo, orgID, userID)
		if err != nil {
			return err
		}
		if !policy.Allowed(caller.Role, policy.ActionUpdateMemberRole) {
			return domainerrors.ErrForbidden
		}

		target, err = orgRepo.FindMemberByID(ctx, memberID)
		if errors.Is(err, repository.ErrMemberNotFound) {
			return domainerrors.ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to find member")
		}
		if target.OrganizationID != orgID {
			return domainerrors.ErrNotFound
		}

		if target.Role == entity.OrgRoleOwner && role != entity.OrgRoleOwner {
			if err := srv.guardLastOwner(ctx, orgRepo, target); err != nil {
				return err
			}
		}

		if err := orgRepo.UpdateMemberRole(ctx, memberID, role); err != nil {
			return err
		}

		target.Role = role

		return nil
	})
	if err != nil {
		return nil, err
	}

	return target, nil
}

// Leave removes the caller's own membership. The last owner cannot leave.
func (srv *organizationService) Leave(ctx context.Context, userID, orgID uuid.UUID) error {
	return srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orgRepo := repoFactory.OrganizationRepo()

		member, err := srv.requireMember(ctx, orgRepo, orgID, userID)
		if err != nil {
			return err
		}

		if err := srv.guardLastOwner(ctx, orgRepo, member); err != nil {
			return err
		}

		return orgRepo.DeleteMember(ctx, member.ID)
	})
}

// requireMember resolves the caller's membership or fails with ErrNotMember.
func (srv *organizationService) requireMember(ctx context.Context, orgRepo repository.OrganizationRepository, orgID, userID uuid.UUID) (*entity.Member, error) {
	member, err := orgRepo.FindMember(ctx, orgID, userID)
	if errors.Is(err, repository.ErrMemberNotFound) {
		return nil, domainerrors.ErrNotMember
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find membership")
	}

	return member, nil
}

// guardLastOwner refuses removing or demoting the only remaining owner.
func (srv *organizationService) guardLastOwner(ctx context.Context, orgRepo repository.OrganizationRepository, member *entity.Member) error {
	if member.Role != entity.OrgRoleOwner {
		return nil
	}

	owners, err := orgRepo.CountOwners(ctx, member.OrganizationID)
	if err != nil {
		return errors.Wrap(err, "failed to count owners")
	}

	if owners <= 1 {
		return domainerrors.ErrCannotRemoveLastOwner
	}

	return nil
}

// actionableInvitation loads an invitation and checks it is pending, not
// expired and addressed to the caller's email.
func (srv *organizationService) actionableInvitation(ctx context.Context, repoFactory repository.RepositoryFactory, invitationID, userID uuid.UUID) (*entity.Invitation, error) {
	invitation, err := repoFactory.OrganizationRepo().FindInvitationByID(ctx, invitationID)
	if errors.Is(err, repository.ErrInvitationNotFound) {
		return nil, domainerrors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find invitation")
	}

	if !invitation.Actionable(time.Now()) {
		return nil, domainerrors.ErrInvitationInvalid
	}

	user, err := repoFactory.UserRepo().FindByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}

	if !strings.EqualFold(user.Email, invitation.Email) {
		return nil, domainerrors.ErrEmailMismatch
	}

	return invitation, nil
}

package impl

import (
	"context"
	"log/slog"

	"passport/config"
	deliverycontext "passport/internal/delivery/context"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const (
	defaultUserPageSize = 50
	maxUserPageSize     = 200
)

// adminService implements the AdminUsecase interface.
type adminService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	issuer      *sessionIssuer
	logger      *slog.Logger
}

// AdminServiceParams holds dependencies for adminService, injected by Fx.
type AdminServiceParams struct {
	fx.In

	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	Store       service.SecondaryStore
	Publisher   service.EventPublisher
	Config      *config.Config
	Logger      *slog.Logger
}

// NewAdminService is the constructor for adminService.
func NewAdminService(params AdminServiceParams) usecase.AdminUsecase {
	return &adminService{
		userRepo:    params.UserRepo,
		sessionRepo: params.SessionRepo,
		issuer: &sessionIssuer{
			sessionRepo: params.SessionRepo,
			store:       params.Store,
			publisher:   params.Publisher,
			expiresIn:   params.Config.Session.ExpiresIn,
			cacheTTL:    params.Config.Session.CacheTTL,
			logger:      params.Logger,
		},
		logger: params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *adminService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ListUsers pages through all accounts, newest first.
func (srv *adminService) ListUsers(ctx context.Context, adminID uuid.UUID, input usecase.ListUsersInput) ([]*entity.User, error) {
	if _, err := srv.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultUserPageSize
	}
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}

	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	users, err := srv.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}

	return users, nil
}

// SetRole changes a user's platform role. An admin cannot demote themselves,
// which keeps at least the acting admin in place.
func (srv *adminService) SetRole(ctx context.Context, adminID, userID uuid.UUID, role entity.SiteRole) (*entity.User, error) {
	if _, err := srv.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	if !role.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WithDetails("invalid site role")
	}

	if adminID == userID && role != entity.SiteRoleAdmin {
		return nil, domainerrors.ErrForbidden.WrapMessage("admins cannot demote themselves")
	}

	user, err := srv.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domainerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}

	user.Role = role
	if err := srv.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Site role changed", slog.Any("adminID", adminID), slog.Any("userID", userID), slog.String("role", role.String()))

	return user, nil
}

// Impersonate issues a session acting as the target user. The session is
// tagged with the admin's identity and their own session ID so the way back
// is recorded on the session itself.
func (srv *adminService) Impersonate(ctx context.Context, adminID, adminSessionID, targetID uuid.UUID, meta usecase.SessionMeta) (*usecase.AuthOutput, error) {
	if _, err := srv.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	target, err := srv.userRepo.FindByID(ctx, targetID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, domainerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find target user")
	}

	srv.log(ctx).Info("Impersonation started", slog.Any("adminID", adminID), slog.Any("targetID", targetID))

	return srv.issuer.Issue(ctx, target, meta, issueOptions{
		impersonatedBy:      &adminID,
		impersonatorSession: &adminSessionID,
	})
}

// StopImpersonating ends the impersonated session and issues a fresh session
// for the admin behind it. The admin's original raw token is unrecoverable
// (only its hash is stored), so a new session is minted instead.
func (srv *adminService) StopImpersonating(ctx context.Context, impersonatedTokenHash string, meta usecase.SessionMeta) (*usecase.AuthOutput, error) {
	session, err := srv.sessionRepo.FindByTokenHash(ctx, impersonatedTokenHash)
	if errors.Is(err, repository.ErrSessionNotFound) || errors.Is(err, repository.ErrSessionExpired) {
		return nil, domainerrors.ErrSessionInvalid
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find session")
	}

	if session.ImpersonatedBy == nil {
		return nil, domainerrors.ErrForbidden.WrapMessage("session is not an impersonation")
	}

	admin, err := srv.userRepo.FindByID(ctx, *session.ImpersonatedBy)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find impersonating admin")
	}

	if err := srv.sessionRepo.Delete(ctx, session.ID); err != nil {
		return nil, errors.Wrap(err, "failed to delete impersonated session")
	}
	srv.issuer.dropSessionCache(ctx, session.TokenHash)

	srv.log(ctx).Info("Impersonation ended", slog.Any("adminID", admin.ID), slog.Any("targetID", session.UserID))

	return srv.issuer.Issue(ctx, admin, meta, issueOptions{})
}

// RevokeUserSessions ends every session of the target user.
func (srv *adminService) RevokeUserSessions(ctx context.Context, adminID, userID uuid.UUID) error {
	if _, err := srv.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	sessions, err := srv.sessionRepo.FindByUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to list sessions")
	}

	if err := srv.sessionRepo.DeleteByUser(ctx, userID); err != nil {
		return errors.Wrap(err, "failed to delete sessions")
	}

	for _, session := range sessions {
		srv.issuer.dropSessionCache(ctx, session.TokenHash)
	}

	return nil
}

// requireAdmin loads the caller and verifies the site-wide admin role.
func (srv *adminService) requireAdmin(ctx context.Context, adminID uuid.UUID) (*entity.User, error) {
	admin, err := srv.userRepo.FindByID(ctx, adminID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find admin user")
	}

	if !admin.IsAdmin() {
		return nil, domainerrors.ErrForbidden
	}

	return admin, nil
}

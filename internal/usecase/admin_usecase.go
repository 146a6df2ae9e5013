package usecase

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// ListUsersInput defines paging for the admin user listing.
type ListUsersInput struct {
	Limit  int
	Offset int
}

// AdminUsecase defines operations restricted to administrators.
// Every method authorizes the caller's role before acting.
type AdminUsecase interface {
	// ListUsers pages through all accounts, newest first.
	ListUsers(ctx context.Context, adminID uuid.UUID, input ListUsersInput) ([]*entity.User, error)

	// SetRole changes a user's platform role. Admins cannot demote themselves.
	SetRole(ctx context.Context, adminID, userID uuid.UUID, role entity.SiteRole) (*entity.User, error)

	// Impersonate issues a session acting as the target user, tagged with
	// the admin's identity and the admin's own session for the way back.
	Impersonate(ctx context.Context, adminID, adminSessionID, targetID uuid.UUID, meta SessionMeta) (*AuthOutput, error)

	// StopImpersonating ends the impersonated session and issues a fresh
	// session for the admin behind it.
	StopImpersonating(ctx context.Context, impersonatedTokenHash string, meta SessionMeta) (*AuthOutput, error)

	// RevokeUserSessions ends every session of the target user.
	RevokeUserSessions(ctx context.Context, adminID, userID uuid.UUID) error
}

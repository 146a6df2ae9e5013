package usecase

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// SessionInfo is the result of validating a session token.
type SessionInfo struct {
	Session *entity.Session
	User    *entity.User
}

// SessionUsecase defines session lifecycle operations.
// The relational store is authoritative; a short-lived copy in the secondary
// store serves repeated validations.
type SessionUsecase interface {
	// Validate resolves a raw session token to its session and user.
	// When fresh is true the cache is bypassed and the authoritative store is
	// consulted directly. Validation slides the expiry forward once the
	// session is older than the configured update age.
	Validate(ctx context.Context, token string, fresh bool) (*SessionInfo, error)

	// List returns the user's active sessions, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error)

	// SignOut ends the session behind the given raw token.
	SignOut(ctx context.Context, token string) error

	// RevokeByID ends one of the user's sessions by ID.
	RevokeByID(ctx context.Context, userID, sessionID uuid.UUID) error

	// RevokeOthers ends every session of the user except the current one.
	RevokeOthers(ctx context.Context, userID uuid.UUID, currentTokenHash string) error

	// SetActiveOrganization switches the session's active organization.
	// A nil organization ID clears the selection. Membership is enforced.
	SetActiveOrganization(ctx context.Context, sessionID, userID uuid.UUID, orgID *uuid.UUID) error
}

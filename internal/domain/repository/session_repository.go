// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for session persistence.
var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a session exists but is past its expiry.
	ErrSessionExpired = errors.New("session has expired")
)

// SessionRepository defines the authoritative session store operations.
// The secondary-store cache layers on top of this in the session manager;
// this interface is always the source of truth.
type SessionRepository interface {
	// Create persists a new session.
	Create(ctx context.Context, session *entity.Session) error

	// FindByTokenHash retrieves a session by its token hash.
	// Returns ErrSessionExpired for sessions past their expiry.
	FindByTokenHash(ctx context.Context, tokenHash string) (*entity.Session, error)

	// FindByID retrieves a session by its unique ID regardless of expiry.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Session, error)

	// FindByUser retrieves all non-expired sessions for a user.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Session, error)

	// Update persists sliding-window refreshes and active-organization changes.
	Update(ctx context.Context, session *entity.Session) error

	// Delete removes a session by ID, ending it authoritatively.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByTokenHash removes a session by its token hash.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error

	// DeleteByUser removes all sessions for a user ("logout everywhere").
	DeleteByUser(ctx context.Context, userID uuid.UUID) error

	// DeleteByUserExcept removes all of a user's sessions except the one with
	// the given token hash. The caller's own session must survive.
	DeleteByUserExcept(ctx context.Context, userID uuid.UUID, tokenHash string) ([]*entity.Session, error)

	// DeleteExpired removes all expired sessions. Called periodically for cleanup.
	DeleteExpired(ctx context.Context) error
}

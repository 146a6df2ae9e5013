// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrVerificationNotFound is returned when a verification token is not found
// or has already been consumed.
var ErrVerificationNotFound = errors.New("verification token not found")

// VerificationRepository persists single-use verification tokens.
type VerificationRepository interface {
	// Create persists a new verification token.
	Create(ctx context.Context, token *entity.VerificationToken) error

	// Consume atomically retrieves and deletes a token by hash and purpose.
	// A second call with the same hash returns ErrVerificationNotFound,
	// which is what makes tokens single-use.
	Consume(ctx context.Context, tokenHash string, purpose entity.VerificationPurpose) (*entity.VerificationToken, error)

	// DeleteByUser removes all outstanding tokens of a purpose for a user,
	// so a re-request invalidates previously emailed links.
	DeleteByUser(ctx context.Context, userID uuid.UUID, purpose entity.VerificationPurpose) error

	// DeleteExpired removes all expired tokens. Called periodically for cleanup.
	DeleteExpired(ctx context.Context) error
}

// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrTwoFactorNotFound is returned when no two-factor record exists for a user.
var ErrTwoFactorNotFound = errors.New("two-factor record not found")

// TwoFactorRepository persists TOTP secrets and backup codes.
type TwoFactorRepository interface {
	// Upsert creates or replaces the user's two-factor record.
	// Re-running enrollment overwrites a previous unverified attempt.
	Upsert(ctx context.Context, record *entity.TwoFactor) error

	// FindByUser retrieves the user's two-factor record.
	FindByUser(ctx context.Context, userID uuid.UUID) (*entity.TwoFactor, error)

	// MarkVerified flips the record to verified, committing the backup codes.
	// This must happen in the same transaction that sets User.TwoFactorEnabled.
	MarkVerified(ctx context.Context, userID uuid.UUID) error

	// ConsumeBackupCode marks a single backup code as used.
	// Returns ErrTwoFactorNotFound if the code does not exist or was already consumed.
	ConsumeBackupCode(ctx context.Context, userID uuid.UUID, codeHash string) error

	// DeleteByUser removes the user's two-factor record entirely.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

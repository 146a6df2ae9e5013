// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"
	"errors"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrCredentialNotFound is returned when a login credential is not found.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialRepository defines the standard operations for credential persistence.
// A user may hold several credentials, but at most one with the password provider;
// the storage enforces this with a partial unique index.
type CredentialRepository interface {
	// Create persists a new credential (password, social login or passkey marker).
	Create(ctx context.Context, credential *entity.Credential) error

	// FindByProvider retrieves a credential by provider and provider-specific ID.
	FindByProvider(ctx context.Context, provider, providerUserID string) (*entity.Credential, error)

	// FindByUser retrieves all credentials linked to a user.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Credential, error)

	// FindPasswordByUser retrieves the user's password credential, if any.
	// Its absence drives the "set password" flow for social-only accounts.
	FindPasswordByUser(ctx context.Context, userID uuid.UUID) (*entity.Credential, error)

	// UpdatePasswordHash replaces the stored hash of a password credential.
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error

	// Delete removes a credential, unlinking the auth method from the user.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrPasskeyNotFound is returned when a passkey credential is not found.
var ErrPasskeyNotFound = errors.New("passkey not found")

// PasskeyRepository persists WebAuthn credential descriptors.
type PasskeyRepository interface {
	// Create persists a new passkey credential.
	Create(ctx context.Context, passkey *entity.Passkey) error

	// FindByUser retrieves all passkeys registered by a user.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Passkey, error)

	// FindByCredentialID retrieves a passkey by its raw WebAuthn credential ID.
	FindByCredentialID(ctx context.Context, credentialID []byte) (*entity.Passkey, error)

	// UpdateSignCount persists the authenticator counter after an assertion.
	UpdateSignCount(ctx context.Context, id uuid.UUID, signCount uint32) error

	// Delete removes a passkey by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}

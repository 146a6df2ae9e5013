// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// VerificationPurpose tags a verification token with the flow it belongs to.
type VerificationPurpose string

const (
	// PurposePasswordReset authorizes setting a new password.
	PurposePasswordReset VerificationPurpose = "password-reset"
	// PurposeEmailVerify proves ownership of the account email.
	PurposeEmailVerify VerificationPurpose = "email-verify"
	// PurposeDeleteAccount confirms an account deletion request.
	PurposeDeleteAccount VerificationPurpose = "delete-account"
	// PurposeChangeEmail proves ownership of a new email address.
	PurposeChangeEmail VerificationPurpose = "change-email"
)

// VerificationToken is a single-use, expiring token bound to a user/email pair.
// Consuming a token invalidates it atomically; a second consumption attempt fails.
type VerificationToken struct {
	ID        uuid.UUID           // The unique ID for this token record.
	UserID    uuid.UUID           // The user this token was issued for.
	Email     string              // The email the token is bound to (the new address for change-email).
	Purpose   VerificationPurpose // The flow this token belongs to.
	TokenHash string              // SHA-256 hash of the raw token embedded in the emailed link.
	ExpiresAt time.Time           // Expiry after which the token is inert.
	CreatedAt time.Time
}

// Usable reports whether the token can still be consumed for the given purpose.
func (t *VerificationToken) Usable(purpose VerificationPurpose, now time.Time) bool {
	return t.Purpose == purpose && t.ExpiresAt.After(now)
}

// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// TwoFactor holds a user's TOTP secret and backup codes.
// The record is created in a pending state when enrollment starts and only
// marked verified once the user proves possession with a correct code.
// User.TwoFactorEnabled must never be true while Verified is false.
type TwoFactor struct {
	ID          uuid.UUID    // The unique ID for this record.
	UserID      uuid.UUID    // The owning user; one record per user.
	Secret      string       // Base32 TOTP seed.
	BackupCodes []BackupCode // Single-use recovery codes, committed together with verification.
	Verified    bool         // True once the user has entered one correct TOTP code.
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BackupCode is a single-use recovery credential for two-factor authentication.
type BackupCode struct {
	CodeHash string // SHA-256 hash of the plaintext code shown once at enrollment.
	Used     bool   // A consumed code is never accepted again.
}

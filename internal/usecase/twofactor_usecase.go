package usecase

import (
	"context"

	"github.com/google/uuid"
)

// EnableTwoFactorOutput returns the enrollment material shown exactly once.
type EnableTwoFactorOutput struct {
	Secret      string   // Base32 TOTP seed for manual entry.
	URI         string   // otpauth:// provisioning URI.
	QRCode      []byte   // The URI rendered as a PNG.
	BackupCodes []string // Plaintext backup codes; only hashes are stored.
}

// TwoFactorUsecase defines TOTP enrollment and second-factor verification.
// Enrollment is pending until the user proves possession with a correct
// code; User.TwoFactorEnabled never flips before that.
type TwoFactorUsecase interface {
	// Enable starts enrollment after re-verifying the password. A previous
	// unverified enrollment is replaced wholesale.
	Enable(ctx context.Context, userID uuid.UUID, password string) (*EnableTwoFactorOutput, error)

	// ConfirmEnrollment verifies a TOTP code against the pending secret and
	// commits the enrollment atomically.
	ConfirmEnrollment(ctx context.Context, userID uuid.UUID, code string) error

	// Disable removes two-factor after re-verifying the password.
	Disable(ctx context.Context, userID uuid.UUID, password string) error

	// VerifyTotp completes a sign-in: it validates the challenge token from
	// the first factor and the TOTP code, then issues the session.
	VerifyTotp(ctx context.Context, challengeToken, code string, meta SessionMeta) (*AuthOutput, error)

	// VerifyBackupCode completes a sign-in with a single-use backup code.
	VerifyBackupCode(ctx context.Context, challengeToken, code string, meta SessionMeta) (*AuthOutput, error)
}

// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Shared DTOs ---

// SessionMeta carries client metadata captured when a session is issued.
type SessionMeta struct {
	IPAddress string
	UserAgent string
}

// AuthOutput is the result of any operation that may establish a session.
// When TwoFactorRequired is set, no session was created: the client must
// complete the second factor with the challenge token first.
type AuthOutput struct {
	Token             string // The raw opaque session token, handed out exactly once.
	Session           *entity.Session
	User              *entity.User
	TwoFactorRequired bool
	ChallengeToken    string
}

// --- Input DTOs ---

// SignUpInput defines the data required to register a new account.
type SignUpInput struct {
	Name           string
	Email          string
	Password       string
	FavoriteNumber int
	Lang           string
	Meta           SessionMeta
}

// SignInInput defines the data required for a password sign-in.
type SignInInput struct {
	Email    string
	Password string
	Meta     SessionMeta
}

// GoogleSignInInput defines the data required for a Google social sign-in.
type GoogleSignInInput struct {
	IDToken string
	Meta    SessionMeta
}

// ChangePasswordInput defines the data required to change a password while
// signed in. CurrentTokenHash identifies the caller's session so it survives
// when RevokeOtherSessions is set.
type ChangePasswordInput struct {
	UserID           uuid.UUID
	CurrentPassword  string
	NewPassword      string
	RevokeOthers     bool
	CurrentTokenHash string
}

// UpdateProfileInput defines the mutable account profile fields.
// Nil pointers leave the corresponding field untouched.
type UpdateProfileInput struct {
	Name           *string
	Image          *string
	FavoriteNumber *int
	Lang           *string
}

// --- Output DTOs ---

// AccountOutput aggregates the account view: the user, the linked auth
// methods and whether a password credential exists.
type AccountOutput struct {
	User        *entity.User
	Credentials []*entity.Credential
	HasPassword bool
}

// AccountUsecase defines credential and verification operations.
// This is the contract that the delivery layer depends on.
type AccountUsecase interface {
	// SignUp registers a new account and signs it in.
	SignUp(ctx context.Context, input SignUpInput) (*AuthOutput, error)

	// SignIn authenticates with email and password. Accounts with two-factor
	// enabled receive a challenge token instead of a session.
	SignIn(ctx context.Context, input SignInInput) (*AuthOutput, error)

	// SignInWithGoogle authenticates with a Google ID token, linking the
	// Google credential to an existing account by verified email or creating
	// a new account.
	SignInWithGoogle(ctx context.Context, input GoogleSignInInput) (*AuthOutput, error)

	// RequestPasswordReset emails a reset link. It reports success even for
	// unknown addresses so it cannot be used to enumerate accounts.
	RequestPasswordReset(ctx context.Context, email string) error

	// ResetPassword consumes a reset token, sets the new password and revokes
	// every session of the user. Social-only accounts gain a password
	// credential here ("set password").
	ResetPassword(ctx context.Context, token, newPassword string) error

	// ChangePassword verifies the current password and sets a new one.
	ChangePassword(ctx context.Context, input ChangePasswordInput) error

	// SendVerificationEmail emails a verification link, subject to a cooldown.
	SendVerificationEmail(ctx context.Context, userID uuid.UUID) error

	// VerifyEmail consumes a verification token and marks the email verified.
	VerifyEmail(ctx context.Context, token string) error

	// RequestEmailChange emails a confirmation link to the new address.
	RequestEmailChange(ctx context.Context, userID uuid.UUID, newEmail string) error

	// ConfirmEmailChange consumes the token and moves the account to the new
	// address, which is verified by construction.
	ConfirmEmailChange(ctx context.Context, token string) error

	// RequestAccountDeletion emails a deletion confirmation link.
	RequestAccountDeletion(ctx context.Context, userID uuid.UUID) error

	// ConfirmAccountDeletion consumes the token and deletes the account with
	// all dependent data.
	ConfirmAccountDeletion(ctx context.Context, token string) error

	// UpdateProfile updates mutable profile fields.
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*entity.User, error)

	// GetAccount returns the account view for the signed-in user.
	GetAccount(ctx context.Context, userID uuid.UUID) (*AccountOutput, error)
}

package service

import (
	"github.com/google/uuid"
)

// ChallengeKind tags a pending-authentication challenge token.
type ChallengeKind string

const (
	// ChallengeTwoFactor is issued after a correct password when the account
	// has two-factor enabled; the session is only created once the second
	// factor is verified against this challenge.
	ChallengeTwoFactor ChallengeKind = "two-factor"
)

// ChallengeTokenService issues and validates short-lived signed tokens that
// bridge the gap between the first and second authentication factor.
// They are stateless and never grant access by themselves.
type ChallengeTokenService interface {
	// Issue creates a signed challenge token for the given user.
	Issue(userID uuid.UUID, kind ChallengeKind) (string, error)

	// Verify validates a challenge token and returns the user it was issued for.
	Verify(token string, kind ChallengeKind) (uuid.UUID, error)
}

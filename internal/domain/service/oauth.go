package service

import "context"

// OAuthUser is the identity asserted by an external OAuth provider.
type OAuthUser struct {
	ProviderUserID string // The provider's stable subject identifier.
	Email          string
	Name           string
	AvatarURL      string
	EmailVerified  bool
}

// OAuthIdentityService verifies identity assertions from an external OAuth
// provider. Only providers that assert a verified email are accepted, so a
// social sign-in can be linked to an existing account by address.
type OAuthIdentityService interface {
	// VerifyIDToken validates a provider-issued ID token and returns the
	// asserted identity.
	VerifyIDToken(ctx context.Context, idToken string) (*OAuthUser, error)

	// Provider returns the credential provider identifier, e.g. "google".
	Provider() string
}

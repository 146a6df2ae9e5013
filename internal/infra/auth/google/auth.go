// Package google verifies Google-issued identity assertions for social sign-in.
package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"passport/config"
	"passport/internal/domain/entity"
	"passport/internal/domain/service"

	"github.com/pkg/errors"
)

// idTokenClaims represents the claims in a Google ID token
type idTokenClaims struct {
	Iss           string `json:"iss"`            // Issuer
	Sub           string `json:"sub"`            // Subject (user ID)
	Aud           string `json:"aud"`            // Audience (client ID)
	Exp           int64  `json:"exp"`            // Expiration time
	Iat           int64  `json:"iat"`            // Issued at
	Email         string `json:"email"`          // User's email
	EmailVerified bool   `json:"email_verified"` // Email verification status
	Name          string `json:"name"`           // User's full name
	Picture       string `json:"picture"`        // User's profile picture
}

// authService implements service.OAuthIdentityService for Google
type authService struct {
	clientID string
	logger   *slog.Logger
}

// NewAuthService creates a new Google identity verifier
func NewAuthService(cfg *config.Config, logger *slog.Logger) service.OAuthIdentityService {
	return &authService{
		clientID: cfg.GoogleOAuth.ClientID,
		logger:   logger,
	}
}

// Provider returns the credential provider identifier.
func (s *authService) Provider() string {
	return entity.ProviderGoogle
}

// VerifyIDToken validates a Google ID token and returns the asserted identity.
func (s *authService) VerifyIDToken(ctx context.Context, idToken string) (*service.OAuthUser, error) {
	claims, err := s.parseIDToken(idToken)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to parse ID token", slog.Any("error", err))

		return nil, errors.Wrap(err, "invalid ID token")
	}

	if err := s.verifyTokenClaims(claims); err != nil {
		s.logger.ErrorContext(ctx, "Token verification failed", slog.Any("error", err))

		return nil, errors.Wrap(err, "token verification failed")
	}

	return &service.OAuthUser{
		ProviderUserID: claims.Sub,
		Email:          claims.Email,
		Name:           claims.Name,
		AvatarURL:      claims.Picture,
		EmailVerified:  claims.EmailVerified,
	}, nil
}

// parseIDToken parses the JWT token and extracts claims
func (s *authService) parseIDToken(token string) (*idTokenClaims, error) {
	// Split the token into parts
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid JWT format")
	}

	// Decode the payload (second part)
	decoded, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode token payload")
	}

	// Parse JSON claims
	var claims idTokenClaims
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return nil, errors.Wrap(err, "failed to parse token claims")
	}

	return &claims, nil
}

// verifyTokenClaims verifies the token claims
func (s *authService) verifyTokenClaims(claims *idTokenClaims) error {
	// Check issuer
	if claims.Iss != "https://accounts.google.com" && claims.Iss != "accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", claims.Iss)
	}

	// Check audience (client ID)
	if claims.Aud != s.clientID {
		return errors.Errorf("invalid audience: expected %s, got %s", s.clientID, claims.Aud)
	}

	// Check expiration
	now := time.Now().Unix()
	if claims.Exp < now {
		return errors.Errorf("token expired: expired at %d, current time %d", claims.Exp, now)
	}

	// Only verified addresses may be linked to an account.
	if !claims.EmailVerified {
		return errors.New("email not verified")
	}

	return nil
}

package auth

import (
	"github.com/pquerna/otp/totp"

	"passport/config"
	"passport/internal/domain/service"
	"passport/internal/errors"
)

// totpService implements TOTPService on top of pquerna/otp with the
// standard 30-second period and 6-digit codes.
type totpService struct {
	issuer string
}

// NewTOTPService is the constructor for totpService. The application name is
// used as the issuer shown in authenticator apps.
func NewTOTPService(cfg *config.Config) service.TOTPService {
	return &totpService{issuer: cfg.App.Name}
}

// GenerateSecret creates a new base32 seed and its otpauth:// provisioning URI.
func (s *totpService) GenerateSecret(accountEmail string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: accountEmail,
	})
	if err != nil {
		return "", "", errors.Wrap(err, "generate totp key")
	}

	return key.Secret(), key.URL(), nil
}

// Validate checks a 6-digit code against the seed for the current window.
func (s *totpService) Validate(code, secret string) bool {
	return totp.Validate(code, secret)
}

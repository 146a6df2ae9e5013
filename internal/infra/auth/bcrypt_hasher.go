// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"passport/config"
	"passport/internal/domain/errors"
	"passport/internal/domain/service"
)

// bcryptHasher is a concrete implementation of the PasswordHasher interface using bcrypt.
type bcryptHasher struct {
	cost     int
	strength *config.PasswordStrengthConfig
}

// NewBcryptHasher is the constructor for bcryptHasher.
// It returns the implementation as a service.PasswordHasher interface.
func NewBcryptHasher(cfg *config.Config) service.PasswordHasher {
	cost := bcrypt.DefaultCost
	if cfg.Auth != nil && cfg.Auth.BcryptCost >= bcrypt.MinCost && cfg.Auth.BcryptCost <= bcrypt.MaxCost {
		cost = cfg.Auth.BcryptCost
	}

	strength := cfg.PasswordStrength
	if strength == nil {
		strength = &config.PasswordStrengthConfig{MinLength: 8, MaxLength: 128}
	}

	return &bcryptHasher{
		cost:     cost,
		strength: strength,
	}
}

// Hash generates a salted hash from a plaintext password using bcrypt.
// bcrypt automatically handles salt generation.
func (h *bcryptHasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)

	return string(bytes), err
}

// Check compares a plaintext password with a bcrypt hash.
func (h *bcryptHasher) Check(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	// err is nil if the password and hash match.
	return err == nil
}

// ValidatePasswordStrength verifies the plaintext against the configured
// strength policy before it is hashed.
func (h *bcryptHasher) ValidatePasswordStrength(password string) error {
	if len(password) < h.strength.MinLength {
		return errors.ErrPasswordStrength.WithDetails("password is too short")
	}
	if h.strength.MaxLength > 0 && len(password) > h.strength.MaxLength {
		return errors.ErrPasswordStrength.WithDetails("password is too long")
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		case strings.ContainsRune("!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~", r):
			hasSpecial = true
		}
	}

	if h.strength.RequireUppercase && !hasUpper {
		return errors.ErrPasswordStrength.WithDetails("password must contain an uppercase letter")
	}
	if h.strength.RequireLowercase && !hasLower {
		return errors.ErrPasswordStrength.WithDetails("password must contain a lowercase letter")
	}
	if h.strength.RequireNumbers && !hasNumber {
		return errors.ErrPasswordStrength.WithDetails("password must contain a number")
	}
	if h.strength.RequireSpecial && !hasSpecial {
		return errors.ErrPasswordStrength.WithDetails("password must contain a special character")
	}

	return nil
}

package service

// TOTPService wraps time-based one-time password generation and validation.
type TOTPService interface {
	// GenerateSecret creates a new base32 seed and the otpauth:// provisioning
	// URI for the given account email.
	GenerateSecret(accountEmail string) (secret, uri string, err error)

	// Validate checks a 6-digit code against the seed for the current window.
	Validate(code, secret string) bool
}

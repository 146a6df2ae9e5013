// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Credential provider identifiers. A user may hold several credentials,
// but at most one password credential.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
	ProviderPasskey  = "passkey"
)

// Credential represents a single method of logging in.
// A user's email/password is one record, while a linked Google account is another.
type Credential struct {
	ID             uuid.UUID // The unique ID for this specific credential record itself.
	UserID         uuid.UUID // Links this credential to the User it belongs to.
	Provider       string    // The credential provider, e.g. "password", "google", "passkey".
	ProviderUserID string    // The user's unique ID from the external provider (e.g. Google's 'sub' claim).
	PasswordHash   string    // Stores the bcrypt-hashed password, only used when the Provider is "password".
	CreatedAt      time.Time // Timestamp of when this credential was linked to the user account.
}

// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Passkey is a WebAuthn public-key credential descriptor bound to a user.
// The ceremony itself runs through a WebAuthn-capable collaborator; only the
// resulting descriptor is stored here.
type Passkey struct {
	ID           uuid.UUID // The unique ID for this record.
	UserID       uuid.UUID // The owning user.
	Name         string    // User-chosen label, e.g. "MacBook Touch ID".
	CredentialID []byte    // Raw WebAuthn credential ID.
	PublicKey    []byte    // COSE-encoded public key.
	AAGUID       []byte    // Authenticator attestation GUID.
	SignCount    uint32    // Authenticator signature counter, updated on every assertion.
	Transports   []string  // Hints such as "internal" or "usb".
	BackedUp     bool      // Whether the credential is synced by the platform.
	CreatedAt    time.Time
}

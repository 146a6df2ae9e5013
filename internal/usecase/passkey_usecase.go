package usecase

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// PasskeyCeremonyOutput returns the client-facing options of a WebAuthn
// ceremony plus the ID under which its server-side state is parked.
type PasskeyCeremonyOutput struct {
	CeremonyID string
	Options    []byte // JSON forwarded to the browser's WebAuthn API verbatim.
}

// PasskeyUsecase defines WebAuthn credential management and usernameless login.
type PasskeyUsecase interface {
	// BeginRegistration starts a credential-creation ceremony for the user.
	BeginRegistration(ctx context.Context, userID uuid.UUID) (*PasskeyCeremonyOutput, error)

	// FinishRegistration validates the authenticator response and stores the
	// passkey under the user-chosen name.
	FinishRegistration(ctx context.Context, userID uuid.UUID, ceremonyID, name string, response []byte) (*entity.Passkey, error)

	// BeginLogin starts a discoverable assertion ceremony.
	BeginLogin(ctx context.Context) (*PasskeyCeremonyOutput, error)

	// FinishLogin validates the assertion and issues a session for the
	// passkey's owner. Passkeys count as a complete factor: two-factor is
	// not demanded on top.
	FinishLogin(ctx context.Context, ceremonyID string, response []byte, meta SessionMeta) (*AuthOutput, error)

	// List returns the user's registered passkeys.
	List(ctx context.Context, userID uuid.UUID) ([]*entity.Passkey, error)

	// Delete removes one of the user's passkeys.
	Delete(ctx context.Context, userID, passkeyID uuid.UUID) error
}

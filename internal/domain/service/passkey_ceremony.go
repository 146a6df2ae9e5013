package service

import (
	"passport/internal/domain/entity"
)

// PasskeyLookup resolves a credential ID presented during a discoverable
// login to the stored passkey descriptor.
type PasskeyLookup func(credentialID []byte) (*entity.Passkey, error)

// PasskeyCeremonyService runs WebAuthn registration and login ceremonies.
// Options and state are opaque JSON blobs: options go to the client verbatim,
// state is held server-side between the begin and finish halves.
type PasskeyCeremonyService interface {
	// BeginRegistration starts a credential-creation ceremony for the user.
	// Existing passkeys are excluded so the authenticator will not re-register.
	BeginRegistration(user *entity.User, existing []*entity.Passkey) (options, state []byte, err error)

	// FinishRegistration validates the authenticator's attestation response
	// and returns the resulting credential descriptor.
	FinishRegistration(user *entity.User, existing []*entity.Passkey, state, response []byte) (*entity.Passkey, error)

	// BeginLogin starts a discoverable (usernameless) assertion ceremony.
	BeginLogin() (options, state []byte, err error)

	// FinishLogin validates an assertion response, resolving the credential
	// through lookup, and returns the matched passkey with its new sign count.
	FinishLogin(state, response []byte, lookup PasskeyLookup) (*entity.Passkey, error)
}

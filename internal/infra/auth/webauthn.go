package auth

import (
	"encoding/json"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"passport/config"
	"passport/internal/domain/entity"
	"passport/internal/domain/service"
	"passport/internal/errors"
)

// webauthnCeremonies implements PasskeyCeremonyService on go-webauthn.
// Ceremony state is serialized to JSON so callers can park it in the
// secondary store between the begin and finish halves.
type webauthnCeremonies struct {
	wa *webauthn.WebAuthn
}

// NewPasskeyCeremonyService is the constructor for webauthnCeremonies.
func NewPasskeyCeremonyService(cfg *config.Config) (service.PasskeyCeremonyService, error) {
	if cfg.WebAuthn == nil || cfg.WebAuthn.RPID == "" {
		return nil, errors.New("webauthn relying party configuration is required")
	}

	wa, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.WebAuthn.RPID,
		RPDisplayName: cfg.WebAuthn.RPDisplayName,
		RPOrigins:     cfg.WebAuthn.RPOrigins,
	})
	if err != nil {
		return nil, errors.Wrap(err, "configure webauthn")
	}

	return &webauthnCeremonies{wa: wa}, nil
}

// BeginRegistration starts a credential-creation ceremony for the user.
func (s *webauthnCeremonies) BeginRegistration(user *entity.User, existing []*entity.Passkey) ([]byte, []byte, error) {
	ceremonyUser := newCeremonyUser(user, existing)

	// Resident keys make the credential discoverable for usernameless login.
	options := []webauthn.RegistrationOption{
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
	}
	if len(ceremonyUser.credentials) > 0 {
		options = append(options, webauthn.WithExclusions(
			webauthn.Credentials(ceremonyUser.credentials).CredentialDescriptors()))
	}

	creation, session, err := s.wa.BeginRegistration(ceremonyUser, options...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "begin passkey registration")
	}

	return marshalCeremony(creation, session)
}

// FinishRegistration validates the attestation response and returns the
// resulting credential descriptor.
func (s *webauthnCeremonies) FinishRegistration(user *entity.User, existing []*entity.Passkey, state, response []byte) (*entity.Passkey, error) {
	var session webauthn.SessionData
	if err := json.Unmarshal(state, &session); err != nil {
		return nil, errors.Wrap(err, "decode ceremony state")
	}

	parsed, err := protocol.ParseCredentialCreationResponseBytes(response)
	if err != nil {
		return nil, errors.Wrap(err, "parse credential creation response")
	}

	credential, err := s.wa.CreateCredential(newCeremonyUser(user, existing), session, parsed)
	if err != nil {
		return nil, errors.Wrap(err, "validate credential creation response")
	}

	return passkeyFromCredential(user.ID, credential), nil
}

// BeginLogin starts a discoverable assertion ceremony.
func (s *webauthnCeremonies) BeginLogin() ([]byte, []byte, error) {
	assertion, session, err := s.wa.BeginDiscoverableLogin()
	if err != nil {
		return nil, nil, errors.Wrap(err, "begin passkey login")
	}

	return marshalCeremony(assertion, session)
}

// FinishLogin validates an assertion response and returns the matched passkey
// with the authenticator's updated sign count.
func (s *webauthnCeremonies) FinishLogin(state, response []byte, lookup service.PasskeyLookup) (*entity.Passkey, error) {
	var session webauthn.SessionData
	if err := json.Unmarshal(state, &session); err != nil {
		return nil, errors.Wrap(err, "decode ceremony state")
	}

	parsed, err := protocol.ParseCredentialRequestResponseBytes(response)
	if err != nil {
		return nil, errors.Wrap(err, "parse credential assertion response")
	}

	var matched *entity.Passkey
	handler := func(rawID, userHandle []byte) (webauthn.User, error) {
		passkey, err := lookup(rawID)
		if err != nil {
			return nil, err
		}
		matched = passkey

		return &ceremonyUser{
			id:          userHandle,
			name:        passkey.UserID.String(),
			displayName: passkey.Name,
			credentials: []webauthn.Credential{credentialFromPasskey(passkey)},
		}, nil
	}

	_, credential, err := s.wa.ValidatePasskeyLogin(handler, session, parsed)
	if err != nil {
		return nil, errors.Wrap(err, "validate passkey login")
	}

	matched.SignCount = credential.Authenticator.SignCount

	return matched, nil
}

// ceremonyUser adapts a domain user and stored passkeys to webauthn.User.
type ceremonyUser struct {
	id          []byte
	name        string
	displayName string
	credentials []webauthn.Credential
}

func newCeremonyUser(user *entity.User, passkeys []*entity.Passkey) *ceremonyUser {
	credentials := make([]webauthn.Credential, 0, len(passkeys))
	for _, passkey := range passkeys {
		credentials = append(credentials, credentialFromPasskey(passkey))
	}

	return &ceremonyUser{
		id:          user.ID[:],
		name:        user.Email,
		displayName: user.Name,
		credentials: credentials,
	}
}

func (u *ceremonyUser) WebAuthnID() []byte                         { return u.id }
func (u *ceremonyUser) WebAuthnName() string                       { return u.name }
func (u *ceremonyUser) WebAuthnDisplayName() string                { return u.displayName }
func (u *ceremonyUser) WebAuthnIcon() string                       { return "" }
func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

func credentialFromPasskey(passkey *entity.Passkey) webauthn.Credential {
	transports := make([]protocol.AuthenticatorTransport, 0, len(passkey.Transports))
	for _, transport := range passkey.Transports {
		transports = append(transports, protocol.AuthenticatorTransport(transport))
	}

	return webauthn.Credential{
		ID:        passkey.CredentialID,
		PublicKey: passkey.PublicKey,
		Transport: transports,
		Flags: webauthn.CredentialFlags{
			BackupState: passkey.BackedUp,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:    passkey.AAGUID,
			SignCount: passkey.SignCount,
		},
	}
}

func passkeyFromCredential(userID uuid.UUID, credential *webauthn.Credential) *entity.Passkey {
	transports := make([]string, 0, len(credential.Transport))
	for _, transport := range credential.Transport {
		transports = append(transports, string(transport))
	}

	return &entity.Passkey{
		UserID:       userID,
		CredentialID: credential.ID,
		PublicKey:    credential.PublicKey,
		AAGUID:       credential.Authenticator.AAGUID,
		SignCount:    credential.Authenticator.SignCount,
		Transports:   transports,
		BackedUp:     credential.Flags.BackupState,
		CreatedAt:    time.Now(),
	}
}

func marshalCeremony(options any, session *webauthn.SessionData) ([]byte, []byte, error) {
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return nil, nil, errors.Wrap(err, "encode ceremony options")
	}

	stateJSON, err := json.Marshal(session)
	if err != nil {
		return nil, nil, errors.Wrap(err, "encode ceremony state")
	}

	return optionsJSON, stateJSON, nil
}

package impl

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"passport/config"
	deliverycontext "passport/internal/delivery/context"
	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// passkeyService implements the PasskeyUsecase interface.
// Ceremony state lives in the secondary store between the begin and finish
// halves, keyed by a random ceremony ID the client must echo back.
type passkeyService struct {
	userRepo    repository.UserRepository
	passkeyRepo repository.PasskeyRepository
	ceremonies  service.PasskeyCeremonyService
	store       service.SecondaryStore
	issuer      *sessionIssuer
	ceremonyTTL time.Duration
	logger      *slog.Logger
}

// PasskeyServiceParams holds dependencies for passkeyService, injected by Fx.
type PasskeyServiceParams struct {
	fx.In

	UserRepo    repository.UserRepository
	PasskeyRepo repository.PasskeyRepository
	SessionRepo repository.SessionRepository
	Ceremonies  service.PasskeyCeremonyService
	Store       service.SecondaryStore
	Publisher   service.EventPublisher
	Config      *config.Config
	Logger      *slog.Logger
}

// NewPasskeyService is the constructor for passkeyService.
func NewPasskeyService(params PasskeyServiceParams) usecase.PasskeyUsecase {
	return &passkeyService{
		userRepo:    params.UserRepo,
		passkeyRepo: params.PasskeyRepo,
		ceremonies:  params.Ceremonies,
		store:       params.Store,
		issuer: &sessionIssuer{
			sessionRepo: params.SessionRepo,
			store:       params.Store,
			publisher:   params.Publisher,
			expiresIn:   params.Config.Session.ExpiresIn,
			cacheTTL:    params.Config.Session.CacheTTL,
			logger:      params.Logger,
		},
		ceremonyTTL: params.Config.Auth.ChallengeTTL,
		logger:      params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *passkeyService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// parkedCeremony is the secondary-store payload bridging begin and finish.
type parkedCeremony struct {
	UserID uuid.UUID       `json:"userId,omitempty"`
	State  json.RawMessage `json:"state"`
}

func registrationCeremonyKey(id string) string { return "passkey-register:" + id }
func loginCeremonyKey(id string) string        { return "passkey-login:" + id }

// BeginRegistration starts a credential-creation ceremony for the user.
func (srv *passkeyService) BeginRegistration(ctx context.Context, userID uuid.UUID) (*usecase.PasskeyCeremonyOutput, error) {
	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}

	existing, err := srv.passkeyRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list existing passkeys")
	}

	options, state, err := srv.ceremonies.BeginRegistration(user, existing)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin registration ceremony")
	}

	ceremonyID := uuid.New().String()
	if err := srv.parkCeremony(ctx, registrationCeremonyKey(ceremonyID), parkedCeremony{UserID: userID, State: state}); err != nil {
		return nil, err
	}

	return &usecase.PasskeyCeremonyOutput{CeremonyID: ceremonyID, Options: options}, nil
}

// FinishRegistration validates the authenticator response and stores the passkey.
func (srv *passkeyService) FinishRegistration(ctx context.Context, userID uuid.UUID, ceremonyID, name string, response []byte) (*entity.Passkey, error) {
	parked, err := srv.takeCeremony(ctx, registrationCeremonyKey(ceremonyID))
	if err != nil {
		return nil, err
	}

	// The finishing user must be the one who began the ceremony.
	if parked.UserID != userID {
		return nil, domainerrors.ErrPasskeyCeremonyFailed.WrapMessage("ceremony does not belong to this user")
	}

	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}

	existing, err := srv.passkeyRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list existing passkeys")
	}

	passkey, err := srv.ceremonies.FinishRegistration(user, existing, parked.State, response)
	if err != nil {
		srv.log(ctx).Warn("Passkey registration rejected", slog.Any("userID", userID), slog.Any("error", err))

		return nil, domainerrors.ErrPasskeyCeremonyFailed.WrapMessage("attestation response rejected")
	}

	passkey.UserID = userID
	passkey.Name = name
	if passkey.Name == "" {
		passkey.Name = "Passkey"
	}

	if err := srv.passkeyRepo.Create(ctx, passkey); err != nil {
		return nil, errors.Wrap(err, "failed to store passkey")
	}

	srv.log(ctx).Info("Passkey registered", slog.Any("userID", userID), slog.Any("passkeyID", passkey.ID))

	return passkey, nil
}

// BeginLogin starts a discoverable (usernameless) assertion ceremony.
func (srv *passkeyService) BeginLogin(ctx context.Context) (*usecase.PasskeyCeremonyOutput, error) {
	options, state, err := srv.ceremonies.BeginLogin()
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin login ceremony")
	}

	ceremonyID := uuid.New().String()
	if err := srv.parkCeremony(ctx, loginCeremonyKey(ceremonyID), parkedCeremony{State: state}); err != nil {
		return nil, err
	}

	return &usecase.PasskeyCeremonyOutput{CeremonyID: ceremonyID, Options: options}, nil
}

// FinishLogin validates the assertion and issues a session for the passkey's
// owner. A passkey is a complete factor: two-factor is not demanded on top.
func (srv *passkeyService) FinishLogin(ctx context.Context, ceremonyID string, response []byte, meta usecase.SessionMeta) (*usecase.AuthOutput, error) {
	parked, err := srv.takeCeremony(ctx, loginCeremonyKey(ceremonyID))
	if err != nil {
		return nil, err
	}

	lookup := func(credentialID []byte) (*entity.Passkey, error) {
		return srv.passkeyRepo.FindByCredentialID(ctx, credentialID)
	}

	passkey, err := srv.ceremonies.FinishLogin(parked.State, response, lookup)
	if err != nil {
		srv.log(ctx).Warn("Passkey login rejected", slog.Any("error", err))

		return nil, domainerrors.ErrPasskeyCeremonyFailed.WrapMessage("assertion response rejected")
	}

	// Persist the updated counter; a failure here only weakens clone
	// detection for the next assertion.
	if err := srv.passkeyRepo.UpdateSignCount(ctx, passkey.ID, passkey.SignCount); err != nil {
		srv.log(ctx).Warn("Failed to update passkey sign count", slog.Any("passkeyID", passkey.ID), slog.Any("error", err))
	}

	user, err := srv.userRepo.FindByID(ctx, passkey.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find passkey owner")
	}

	return srv.issuer.Issue(ctx, user, meta, issueOptions{})
}

// List returns the user's registered passkeys.
func (srv *passkeyService) List(ctx context.Context, userID uuid.UUID) ([]*entity.Passkey, error) {
	passkeys, err := srv.passkeyRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list passkeys")
	}

	return passkeys, nil
}

// Delete removes one of the user's passkeys.
func (srv *passkeyService) Delete(ctx context.Context, userID, passkeyID uuid.UUID) error {
	passkeys, err := srv.passkeyRepo.FindByUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to list passkeys")
	}

	for _, passkey := range passkeys {
		if passkey.ID == passkeyID {
			return srv.passkeyRepo.Delete(ctx, passkeyID)
		}
	}

	return domainerrors.ErrNotFound
}

// parkCeremony stores ceremony state under a TTL. The secondary store must be
// available for WebAuthn flows; there is no relational fallback.
func (srv *passkeyService) parkCeremony(ctx context.Context, key string, ceremony parkedCeremony) error {
	payload, err := json.Marshal(ceremony)
	if err != nil {
		return errors.Wrap(err, "failed to marshal ceremony state")
	}

	if err := srv.store.Set(ctx, key, string(payload), srv.ceremonyTTL); err != nil {
		return errors.Wrap(err, "failed to park ceremony state")
	}

	return nil
}

// takeCeremony retrieves and removes parked state, making each ceremony
// single-use.
func (srv *passkeyService) takeCeremony(ctx context.Context, key string) (*parkedCeremony, error) {
	value, err := srv.store.Get(ctx, key)
	if errors.Is(err, service.ErrKeyNotFound) {
		return nil, domainerrors.ErrPasskeyCeremonyFailed.WrapMessage("ceremony not found or expired")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load ceremony state")
	}

	if err := srv.store.Delete(ctx, key); err != nil {
		srv.log(ctx).Warn("Failed to delete ceremony state", slog.Any("error", err))
	}

	var parked parkedCeremony
	if err := json.Unmarshal([]byte(value), &parked); err != nil {
		return nil, errors.Wrap(err, "failed to decode ceremony state")
	}

	return &parked, nil
}

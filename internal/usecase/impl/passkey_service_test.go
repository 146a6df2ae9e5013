package impl

import (
	"context"
	"testing"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type passkeyHarness struct {
	factory    *fakeRepoFactory
	store      *fakeStore
	ceremonies *fakeCeremonies
	service    usecase.PasskeyUsecase
}

func newPasskeyHarness() *passkeyHarness {
	factory := newFakeRepoFactory()
	store := newFakeStore()
	ceremonies := &fakeCeremonies{
		passkey: &entity.Passkey{
			CredentialID: []byte("credential-1"),
			PublicKey:    []byte("public-key"),
			SignCount:    1,
		},
	}

	svc := NewPasskeyService(PasskeyServiceParams{
		UserRepo:    factory.users,
		PasskeyRepo: factory.passkeys,
		SessionRepo: factory.sessions,
		Ceremonies:  ceremonies,
		Store:       store,
		Publisher:   &fakePublisher{},
		Config:      newTestConfig(),
		Logger:      newDiscardLogger(),
	})

	return &passkeyHarness{factory: factory, store: store, ceremonies: ceremonies, service: svc}
}

func (h *passkeyHarness) seedUser(t *testing.T) *entity.User {
	t.Helper()

	user := &entity.User{Email: "tester@example.com", Name: "Tester", Role: entity.SiteRoleUser, Lang: "en"}
	require.NoError(t, h.factory.users.Create(context.Background(), user))

	return user
}

func TestPasskeyService_Registration_FullFlow(t *testing.T) {
	h := newPasskeyHarness()
	user := h.seedUser(t)
	ctx := context.Background()

	begin, err := h.service.BeginRegistration(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, begin.CeremonyID)
	assert.NotEmpty(t, begin.Options)

	passkey, err := h.service.FinishRegistration(ctx, user.ID, begin.CeremonyID, "MacBook Touch ID", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "MacBook Touch ID", passkey.Name)
	assert.Equal(t, user.ID, passkey.UserID)

	stored, err := h.factory.passkeys.FindByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestPasskeyService_FinishRegistration_CeremonySingleUse(t *testing.T) {
	h := newPasskeyHarness()
	user := h.seedUser(t)
	ctx := context.Background()

	begin, err := h.service.BeginRegistration(ctx, user.ID)
	require.NoError(t, err)

	_, err = h.service.FinishRegistration(ctx, user.ID, begin.CeremonyID, "Key", []byte(`{}`))
	require.NoError(t, err)

	// Replaying the same ceremony fails.
	_, err = h.service.FinishRegistration(ctx, user.ID, begin.CeremonyID, "Key", []byte(`{}`))
	assert.ErrorIs(t, err, domainerrors.ErrPasskeyCeremonyFailed)
}

func TestPasskeyService_FinishRegistration_WrongUser(t *testing.T) {
	h := newPasskeyHarness()
	user := h.seedUser(t)
	ctx := context.Background()

	begin, err := h.service.BeginRegistration(ctx, user.ID)
	require.NoError(t, err)

	_, err = h.service.FinishRegistration(ctx, uuid.New(), begin.CeremonyID, "Key", []byte(`{}`))

	assert.ErrorIs(t, err, domainerrors.ErrPasskeyCeremonyFailed)
}

func TestPasskeyService_Login_FullFlow(t *testing.T) {
	h := newPasskeyHarness()
	user := h.seedUser(t)
	ctx := context.Background()

	// Register the credential first.
	begin, err := h.service.BeginRegistration(ctx, user.ID)
	require.NoError(t, err)
	registered, err := h.service.FinishRegistration(ctx, user.ID, begin.CeremonyID, "Key", []byte(`{}`))
	require.NoError(t, err)

	login, err := h.service.BeginLogin(ctx)
	require.NoError(t, err)

	out, err := h.service.FinishLogin(ctx, login.CeremonyID, []byte(`{}`), usecase.SessionMeta{IPAddress: "203.0.113.7"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, user.ID, out.Session.UserID)

	// The sign counter advanced.
	stored, err := h.factory.passkeys.FindByCredentialID(ctx, registered.CredentialID)
	require.NoError(t, err)
	assert.Greater(t, stored.SignCount, registered.SignCount)
}

func TestPasskeyService_FinishLogin_ExpiredCeremony(t *testing.T) {
	h := newPasskeyHarness()

	_, err := h.service.FinishLogin(context.Background(), uuid.New().String(), []byte(`{}`), usecase.SessionMeta{})

	assert.ErrorIs(t, err, domainerrors.ErrPasskeyCeremonyFailed)
}

func TestPasskeyService_Delete_OwnershipEnforced(t *testing.T) {
	h := newPasskeyHarness()
	user := h.seedUser(t)
	ctx := context.Background()

	begin, err := h.service.BeginRegistration(ctx, user.ID)
	require.NoError(t, err)
	passkey, err := h.service.FinishRegistration(ctx, user.ID, begin.CeremonyID, "Key", []byte(`{}`))
	require.NoError(t, err)

	// A stranger cannot delete it.
	err = h.service.Delete(ctx, uuid.New(), passkey.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	require.NoError(t, h.service.Delete(ctx, user.ID, passkey.ID))

	remaining, err := h.service.List(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

package impl

import (
	"context"
	"testing"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type twoFactorHarness struct {
	factory   *fakeRepoFactory
	publisher *fakePublisher
	service   usecase.TwoFactorUsecase
}

func newTwoFactorHarness() *twoFactorHarness {
	factory := newFakeRepoFactory()
	publisher := &fakePublisher{}

	svc := NewTwoFactorService(TwoFactorServiceParams{
		TxManager:       &fakeTxManager{factory: factory},
		UserRepo:        factory.users,
		CredentialRepo:  factory.credentials,
		TwoFactorRepo:   factory.twoFactors,
		SessionRepo:     factory.sessions,
		Hasher:          fakeHasher{},
		TOTP:            fakeTOTP{},
		QRCodes:         fakeQRCodes{},
		ChallengeTokens: fakeChallengeTokens{},
		Store:           newFakeStore(),
		Publisher:       publisher,
		Config:          newTestConfig(),
		Logger:          newDiscardLogger(),
	})

	return &twoFactorHarness{factory: factory, publisher: publisher, service: svc}
}

// seedPasswordUser creates a user with a password credential.
func (h *twoFactorHarness) seedPasswordUser(t *testing.T) *entity.User {
	t.Helper()

	ctx := context.Background()
	user := &entity.User{Email: "tester@example.com", Name: "Tester", Role: entity.SiteRoleUser, Lang: "en"}
	require.NoError(t, h.factory.users.Create(ctx, user))
	require.NoError(t, h.factory.credentials.Create(ctx, &entity.Credential{
		UserID:       user.ID,
		Provider:     entity.ProviderPassword,
		PasswordHash: "hashed:Str0ngPass!",
	}))

	return user
}

func TestTwoFactorService_Enable_PendingUntilConfirmed(t *testing.T) {
	h := newTwoFactorHarness()
	user := h.seedPasswordUser(t)
	ctx := context.Background()

	out, err := h.service.Enable(ctx, user.ID, "Str0ngPass!")

	require.NoError(t, err)
	assert.NotEmpty(t, out.Secret)
	assert.Contains(t, out.URI, "otpauth://")
	assert.NotEmpty(t, out.QRCode)
	assert.Len(t, out.BackupCodes, 10)

	// The record is pending and the user flag stays off.
	record, err := h.factory.twoFactors.FindByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, record.Verified)

	stored, err := h.factory.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.TwoFactorEnabled)
}

func TestTwoFactorService_Enable_WrongPassword(t *testing.T) {
	h := newTwoFactorHarness()
	user := h.seedPasswordUser(t)

	_, err := h.service.Enable(context.Background(), user.ID, "wrong-password")

	assert.ErrorIs(t, err, domainerrors.ErrWrongPassword)
}

func TestTwoFactorService_ConfirmEnrollment(t *testing.T) {
	h := newTwoFactorHarness()
	user := h.seedPasswordUser(t)
	ctx := context.Background()

	_, err := h.service.Enable(ctx, user.ID, "Str0ngPass!")
	require.NoError(t, err)

	// Wrong code first.
	err = h.service.ConfirmEnrollment(ctx, user.ID, "000000")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTotpCode)

	require.NoError(t, h.service.ConfirmEnrollment(ctx, user.ID, "123456"))

	record, err := h.factory.twoFactors.FindByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, record.Verified)

	stored, err := h.factory.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.TwoFactorEnabled)
}

func TestTwoFactorService_VerifyTotp_IssuesSession(t *testing.T) {
	h := newTwoFactorHarness()
	user := h.seedPasswordUser(t)
	ctx := context.Background()

	_, err := h.service.Enable(ctx, user.ID, "Str0ngPass!")
	require.NoError(t, err)
	require.NoError(t, h.service.ConfirmEnrollment(ctx, user.ID, "123456"))

	challenge, err := fakeChallengeTokens{}.Issue(user.ID, "two-factor")
	require.NoError(t, err)

	out, err := h.service.VerifyTotp(ctx, challenge, "123456", usecase.SessionMeta{})

	require.NoError(t, err)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, user.ID, out.Session.UserID)
}

func TestTwoFactorService_VerifyTotp_NotEnabled(t *testing.T) {
	h := newTwoFactorHarness()
	user := h.seedPasswordUser(t)

	challenge, err := fakeChallengeTokens{}.Issue(user.ID, "two-factor")
	require.NoError(t, err)

	_, err = h.service.VerifyTotp(context.Background(), challenge, "123456", usecase.SessionMeta{})

	assert.ErrorIs(t, err, domainerrors.ErrTwoFactorNotEnabled)
}

func TestTwoFactorService_VerifyBackupCode_SingleUse(t *testing.T) {
	h := newTwoFactorHarness()
	user := h.seedPasswordUser(t)
	ctx := context.Background()

	out, err := h.service.Enable(ctx, user.ID, "Str0ngPass!")
	require.NoError(t, err)
	require.NoError(t, h.service.ConfirmEnrollment(ctx, user.ID, "123456"))

	challenge, err := fakeChallengeTokens{}.Issue(user.ID, "two-factor")
	require.NoError(t, err)
	code := out.BackupCodes[0]

	auth, err := h.service.VerifyBackupCode(ctx, challenge, code, usecase.SessionMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)

	// The same code is refused the second time.
	_, err = h.service.VerifyBackupCode(ctx, challenge, code, usecase.SessionMeta{})
	assert.ErrorIs(t, err, domainerrors.ErrBackupCodeInvalid)
}

func TestTwoFactorService_Disable(t *testing.T) {
	h := newTwoFactorHarness()
	user := h.seedPasswordUser(t)
	ctx := context.Background()

	_, err := h.service.Enable(ctx, user.ID, "Str0ngPass!")
	require.NoError(t, err)
	require.NoError(t, h.service.ConfirmEnrollment(ctx, user.ID, "123456"))

	require.NoError(t, h.service.Disable(ctx, user.ID, "Str0ngPass!"))

	stored, err := h.factory.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.TwoFactorEnabled)

	_, err = h.factory.twoFactors.FindByUser(ctx, user.ID)
	assert.Error(t, err)
}

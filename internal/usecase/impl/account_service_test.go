package impl

import (
	"context"
	"testing"
	"time"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accountHarness struct {
	factory   *fakeRepoFactory
	store     *fakeStore
	mailer    *fakeMailer
	publisher *fakePublisher
	oauth     *fakeOAuth
	service   usecase.AccountUsecase
}

func newAccountHarness() *accountHarness {
	factory := newFakeRepoFactory()
	store := newFakeStore()
	mailer := &fakeMailer{}
	publisher := &fakePublisher{}
	oauth := &fakeOAuth{user: &service.OAuthUser{
		ProviderUserID: "google-sub-1",
		Email:          "google@example.com",
		Name:           "Google User",
		EmailVerified:  true,
	}}

	svc := NewAccountService(AccountServiceParams{
		TxManager:       &fakeTxManager{factory: factory},
		UserRepo:        factory.users,
		CredentialRepo:  factory.credentials,
		SessionRepo:     factory.sessions,
		Hasher:          fakeHasher{},
		ChallengeTokens: fakeChallengeTokens{},
		OAuthService:    oauth,
		Mailer:          mailer,
		Store:           store,
		Publisher:       publisher,
		Config:          newTestConfig(),
		Logger:          newDiscardLogger(),
	})

	return &accountHarness{
		factory:   factory,
		store:     store,
		mailer:    mailer,
		publisher: publisher,
		oauth:     oauth,
		service:   svc,
	}
}

func (h *accountHarness) signUp(t *testing.T, email, password string) *usecase.AuthOutput {
	t.Helper()

	out, err := h.service.SignUp(context.Background(), usecase.SignUpInput{
		Name:     "Tester",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)

	return out
}

func TestAccountService_SignUp_Success(t *testing.T) {
	h := newAccountHarness()

	out := h.signUp(t, "tester@example.com", "Str0ngPass!")

	require.NotNil(t, out.Session)
	assert.NotEmpty(t, out.Token)
	assert.False(t, out.TwoFactorRequired)
	assert.Equal(t, "tester@example.com", out.User.Email)
	assert.Equal(t, entity.SiteRoleUser, out.User.Role)
	assert.False(t, out.User.EmailVerified)

	// The stored hash must never equal the raw token.
	assert.NotEqual(t, out.Token, out.Session.TokenHash)
	assert.Equal(t, hashToken(out.Token), out.Session.TokenHash)

	// A password credential is linked.
	credential, err := h.factory.credentials.FindPasswordByUser(context.Background(), out.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "hashed:Str0ngPass!", credential.PasswordHash)

	// Sign-up publishes the created event and the session event.
	require.Len(t, h.publisher.events, 2)
	assert.IsType(t, service.UserCreatedEvent{}, h.publisher.events[0])
	assert.IsType(t, service.SessionCreatedEvent{}, h.publisher.events[1])

	// A verification email went out.
	require.Len(t, h.mailer.sent, 1)
	assert.Equal(t, "tester@example.com", h.mailer.sent[0].To)
	assert.Contains(t, h.mailer.sent[0].Link, "https://passport.test/auth/verify-email?token=")
}

func TestAccountService_SignUp_EmailTaken(t *testing.T) {
	h := newAccountHarness()
	h.signUp(t, "tester@example.com", "Str0ngPass!")

	_, err := h.service.SignUp(context.Background(), usecase.SignUpInput{
		Name:     "Other",
		Email:    "TESTER@example.com",
		Password: "Str0ngPass!",
	})

	assert.ErrorIs(t, err, domainerrors.ErrEmailTaken)
}

func TestAccountService_SignIn_Success(t *testing.T) {
	h := newAccountHarness()
	h.signUp(t, "tester@example.com", "Str0ngPass!")

	out, err := h.service.SignIn(context.Background(), usecase.SignInInput{
		Email:    "tester@example.com",
		Password: "Str0ngPass!",
		Meta:     usecase.SessionMeta{IPAddress: "203.0.113.7", UserAgent: "go-test"},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, "203.0.113.7", out.Session.IPAddress)
}

func TestAccountService_SignIn_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	h := newAccountHarness()
	h.signUp(t, "tester@example.com", "Str0ngPass!")

	_, wrongPassErr := h.service.SignIn(context.Background(), usecase.SignInInput{
		Email:    "tester@example.com",
		Password: "wrong-password",
	})
	_, unknownEmailErr := h.service.SignIn(context.Background(), usecase.SignInInput{
		Email:    "nobody@example.com",
		Password: "whatever-pass",
	})

	// Both failures collapse into the same generic error.
	assert.ErrorIs(t, wrongPassErr, domainerrors.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmailErr, domainerrors.ErrInvalidCredentials)
}

func TestAccountService_SignIn_TwoFactorChallenge(t *testing.T) {
	h := newAccountHarness()
	out := h.signUp(t, "tester@example.com", "Str0ngPass!")

	user, err := h.factory.users.FindByID(context.Background(), out.User.ID)
	require.NoError(t, err)
	user.TwoFactorEnabled = true
	require.NoError(t, h.factory.users.Update(context.Background(), user))

	result, err := h.service.SignIn(context.Background(), usecase.SignInInput{
		Email:    "tester@example.com",
		Password: "Str0ngPass!",
	})

	require.NoError(t, err)
	assert.True(t, result.TwoFactorRequired)
	assert.NotEmpty(t, result.ChallengeToken)
	assert.Empty(t, result.Token)
	assert.Nil(t, result.Session)
}

func TestAccountService_SignInWithGoogle_LinksByVerifiedEmail(t *testing.T) {
	h := newAccountHarness()
	existing := h.signUp(t, "google@example.com", "Str0ngPass!")

	out, err := h.service.SignInWithGoogle(context.Background(), usecase.GoogleSignInInput{IDToken: "token"})

	require.NoError(t, err)
	assert.Equal(t, existing.User.ID, out.User.ID)

	credential, err := h.factory.credentials.FindByProvider(context.Background(), entity.ProviderGoogle, "google-sub-1")
	require.NoError(t, err)
	assert.Equal(t, existing.User.ID, credential.UserID)
}

func TestAccountService_SignInWithGoogle_CreatesVerifiedUser(t *testing.T) {
	h := newAccountHarness()

	out, err := h.service.SignInWithGoogle(context.Background(), usecase.GoogleSignInInput{IDToken: "token"})

	require.NoError(t, err)
	assert.True(t, out.User.EmailVerified)
	assert.Equal(t, "google@example.com", out.User.Email)
	assert.NotEmpty(t, out.Token)
}

func TestAccountService_RequestPasswordReset_UnknownEmailStaysQuiet(t *testing.T) {
	h := newAccountHarness()

	err := h.service.RequestPasswordReset(context.Background(), "nobody@example.com")

	require.NoError(t, err)
	assert.Empty(t, h.mailer.sent)
}

func TestAccountService_ResetPassword_RevokesAllSessions(t *testing.T) {
	h := newAccountHarness()
	out := h.signUp(t, "tester@example.com", "Str0ngPass!")

	require.NoError(t, h.service.RequestPasswordReset(context.Background(), "tester@example.com"))
	require.Len(t, h.mailer.sent, 2) // sign-up verification + reset link

	link := h.mailer.sent[1].Link
	raw := link[len("https://passport.test/auth/reset-password?token="):]

	require.NoError(t, h.service.ResetPassword(context.Background(), raw, "N3wPassword!"))

	// The old session is gone.
	sessions, err := h.factory.sessions.FindByUser(context.Background(), out.User.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// The new password works, the old one does not.
	_, err = h.service.SignIn(context.Background(), usecase.SignInInput{Email: "tester@example.com", Password: "Str0ngPass!"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	_, err = h.service.SignIn(context.Background(), usecase.SignInInput{Email: "tester@example.com", Password: "N3wPassword!"})
	assert.NoError(t, err)

	// A second consumption of the same link fails.
	err = h.service.ResetPassword(context.Background(), raw, "An0therPass!")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestAccountService_ChangePassword_WrongCurrent(t *testing.T) {
	h := newAccountHarness()
	out := h.signUp(t, "tester@example.com", "Str0ngPass!")

	err := h.service.ChangePassword(context.Background(), usecase.ChangePasswordInput{
		UserID:          out.User.ID,
		CurrentPassword: "wrong-password",
		NewPassword:     "N3wPassword!",
	})

	assert.ErrorIs(t, err, domainerrors.ErrWrongPassword)
}

func TestAccountService_ChangePassword_RevokeOthersKeepsCurrentSession(t *testing.T) {
	h := newAccountHarness()
	first := h.signUp(t, "tester@example.com", "Str0ngPass!")

	second, err := h.service.SignIn(context.Background(), usecase.SignInInput{Email: "tester@example.com", Password: "Str0ngPass!"})
	require.NoError(t, err)

	err = h.service.ChangePassword(context.Background(), usecase.ChangePasswordInput{
		UserID:           first.User.ID,
		CurrentPassword:  "Str0ngPass!",
		NewPassword:      "N3wPassword!",
		RevokeOthers:     true,
		CurrentTokenHash: second.Session.TokenHash,
	})
	require.NoError(t, err)

	sessions, err := h.factory.sessions.FindByUser(context.Background(), first.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, second.Session.ID, sessions[0].ID)
}

func TestAccountService_SendVerificationEmail_Cooldown(t *testing.T) {
	h := newAccountHarness()
	out := h.signUp(t, "tester@example.com", "Str0ngPass!")

	// Sign-up already sent one; the cooldown counter is warm.
	err := h.service.SendVerificationEmail(context.Background(), out.User.ID)

	assert.ErrorIs(t, err, domainerrors.ErrVerificationCooldown)
}

func TestAccountService_VerifyEmail_Success(t *testing.T) {
	h := newAccountHarness()
	out := h.signUp(t, "tester@example.com", "Str0ngPass!")

	raw := h.mailer.sent[0].Link[len("https://passport.test/auth/verify-email?token="):]

	require.NoError(t, h.service.VerifyEmail(context.Background(), raw))

	user, err := h.factory.users.FindByID(context.Background(), out.User.ID)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
}

func TestAccountService_VerifyEmail_StaleTokenAfterEmailChange(t *testing.T) {
	h := newAccountHarness()
	out := h.signUp(t, "tester@example.com", "Str0ngPass!")

	raw := h.mailer.sent[0].Link[len("https://passport.test/auth/verify-email?token="):]

	// The account moves to another address before the link is clicked.
	user, err := h.factory.users.FindByID(context.Background(), out.User.ID)
	require.NoError(t, err)
	user.Email = "moved@example.com"
	require.NoError(t, h.factory.users.Update(context.Background(), user))

	err = h.service.VerifyEmail(context.Background(), raw)

	assert.ErrorIs(t, err, domainerrors.ErrInvalidToken)
}

func TestAccountService_EmailChange_FullFlow(t *testing.T) {
	h := newAccountHarness()
	out := h.signUp(t, "tester@example.com", "Str0ngPass!")

	require.NoError(t, h.service.RequestEmailChange(context.Background(), out.User.ID, "new@example.com"))

	last := h.mailer.sent[len(h.mailer.sent)-1]
	assert.Equal(t, "new@example.com", last.To)
	raw := last.Link[len("https://passport.test/auth/confirm-email-change?token="):]

	require.NoError(t, h.service.ConfirmEmailChange(context.Background(), raw))

	user, err := h.factory.users.FindByID(context.Background(), out.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.True(t, user.EmailVerified)
}

func TestAccountService_RequestEmailChange_TakenAddress(t *testing.T) {
	h := newAccountHarness()
	out := h.signUp(t, "tester@example.com", "Str0ngPass!")
	h.signUp(t, "other@example.com", "Str0ngPass!")

	err := h.service.RequestEmailChange(context.Background(), out.User.ID, "other@example.com")

	assert.ErrorIs(t, err, domainerrors.ErrEmailTaken)
}

func TestAccountService_AccountDeletion_FullFlow(t *testing.T) {
	h := newAccountHarness()
	out := h.signUp(t, "tester@example.com", "Str0ngPass!")

	require.NoError(t, h.service.RequestAccountDeletion(context.Background(), out.User.ID))

	last := h.mailer.sent[len(h.mailer.sent)-1]
	raw := last.Link[len("https://passport.test/auth/confirm-deletion?token="):]

	require.NoError(t, h.service.ConfirmAccountDeletion(context.Background(), raw))

	_, err := h.factory.users.FindByID(context.Background(), out.User.ID)
	assert.Error(t, err)

	sessions, err := h.factory.sessions.FindByUser(context.Background(), out.User.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// The cookie-cache copy goes with the authoritative row.
	_, err = h.store.Get(context.Background(), sessionCacheKey(out.Session.TokenHash))
	assert.ErrorIs(t, err, service.ErrKeyNotFound)
}

func TestAccountService_GetAccount(t *testing.T) {
	h := newAccountHarness()
	out := h.signUp(t, "tester@example.com", "Str0ngPass!")

	account, err := h.service.GetAccount(context.Background(), out.User.ID)

	require.NoError(t, err)
	assert.True(t, account.HasPassword)
	assert.Len(t, account.Credentials, 1)
	assert.Equal(t, out.User.ID, account.User.ID)
}

func TestAccountService_UpdateProfile_PartialUpdate(t *testing.T) {
	h := newAccountHarness()
	out := h.signUp(t, "tester@example.com", "Str0ngPass!")

	name := "Renamed"
	favorite := 42
	user, err := h.service.UpdateProfile(context.Background(), out.User.ID, usecase.UpdateProfileInput{
		Name:           &name,
		FavoriteNumber: &favorite,
	})

	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.Name)
	assert.Equal(t, 42, user.FavoriteNumber)
	assert.Equal(t, "en", user.Lang)
	assert.WithinDuration(t, time.Now(), user.UpdatedAt, time.Minute)
}

package impl

import (
	"context"
	"testing"
	"time"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminHarness struct {
	factory   *fakeRepoFactory
	store     *fakeStore
	publisher *fakePublisher
	service   usecase.AdminUsecase
}

func newAdminHarness() *adminHarness {
	factory := newFakeRepoFactory()
	store := newFakeStore()
	publisher := &fakePublisher{}

	svc := NewAdminService(AdminServiceParams{
		UserRepo:    factory.users,
		SessionRepo: factory.sessions,
		Store:       store,
		Publisher:   publisher,
		Config:      newTestConfig(),
		Logger:      newDiscardLogger(),
	})

	return &adminHarness{factory: factory, store: store, publisher: publisher, service: svc}
}

func (h *adminHarness) seedUser(t *testing.T, email string, role entity.SiteRole) *entity.User {
	t.Helper()

	user := &entity.User{Email: email, Name: "Tester", Role: role, Lang: "en"}
	require.NoError(t, h.factory.users.Create(context.Background(), user))

	return user
}

func (h *adminHarness) seedSession(t *testing.T, user *entity.User) *entity.Session {
	t.Helper()

	_, hash, err := newOpaqueToken()
	require.NoError(t, err)

	session := &entity.Session{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
	require.NoError(t, h.factory.sessions.Create(context.Background(), session))

	return session
}

func TestAdminService_ListUsers_RequiresAdmin(t *testing.T) {
	h := newAdminHarness()
	admin := h.seedUser(t, "admin@example.com", entity.SiteRoleAdmin)
	user := h.seedUser(t, "user@example.com", entity.SiteRoleUser)

	_, err := h.service.ListUsers(context.Background(), user.ID, usecase.ListUsersInput{})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	users, err := h.service.ListUsers(context.Background(), admin.ID, usecase.ListUsersInput{})
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestAdminService_SetRole(t *testing.T) {
	h := newAdminHarness()
	admin := h.seedUser(t, "admin@example.com", entity.SiteRoleAdmin)
	user := h.seedUser(t, "user@example.com", entity.SiteRoleUser)
	ctx := context.Background()

	promoted, err := h.service.SetRole(ctx, admin.ID, user.ID, entity.SiteRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, entity.SiteRoleAdmin, promoted.Role)

	stored, err := h.factory.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SiteRoleAdmin, stored.Role)
}

func TestAdminService_SetRole_SelfDemotionBlocked(t *testing.T) {
	h := newAdminHarness()
	admin := h.seedUser(t, "admin@example.com", entity.SiteRoleAdmin)

	_, err := h.service.SetRole(context.Background(), admin.ID, admin.ID, entity.SiteRoleUser)

	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestAdminService_Impersonate_TagsSession(t *testing.T) {
	h := newAdminHarness()
	admin := h.seedUser(t, "admin@example.com", entity.SiteRoleAdmin)
	target := h.seedUser(t, "target@example.com", entity.SiteRoleUser)
	adminSession := h.seedSession(t, admin)

	out, err := h.service.Impersonate(context.Background(), admin.ID, adminSession.ID, target.ID, usecase.SessionMeta{IPAddress: "203.0.113.7"})

	require.NoError(t, err)
	assert.Equal(t, target.ID, out.Session.UserID)
	require.NotNil(t, out.Session.ImpersonatedBy)
	assert.Equal(t, admin.ID, *out.Session.ImpersonatedBy)
	require.NotNil(t, out.Session.ImpersonatorSession)
	assert.Equal(t, adminSession.ID, *out.Session.ImpersonatorSession)
}

func TestAdminService_Impersonate_NonAdminRejected(t *testing.T) {
	h := newAdminHarness()
	user := h.seedUser(t, "user@example.com", entity.SiteRoleUser)
	target := h.seedUser(t, "target@example.com", entity.SiteRoleUser)
	session := h.seedSession(t, user)

	_, err := h.service.Impersonate(context.Background(), user.ID, session.ID, target.ID, usecase.SessionMeta{})

	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestAdminService_StopImpersonating(t *testing.T) {
	h := newAdminHarness()
	admin := h.seedUser(t, "admin@example.com", entity.SiteRoleAdmin)
	target := h.seedUser(t, "target@example.com", entity.SiteRoleUser)
	adminSession := h.seedSession(t, admin)
	ctx := context.Background()

	out, err := h.service.Impersonate(ctx, admin.ID, adminSession.ID, target.ID, usecase.SessionMeta{})
	require.NoError(t, err)

	restored, err := h.service.StopImpersonating(ctx, out.Session.TokenHash, usecase.SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, restored.Session.UserID)
	assert.Nil(t, restored.Session.ImpersonatedBy)
	assert.NotEmpty(t, restored.Token)

	// The impersonated session is gone.
	_, err = h.factory.sessions.FindByID(ctx, out.Session.ID)
	assert.Error(t, err)
}

func TestAdminService_StopImpersonating_PlainSessionRejected(t *testing.T) {
	h := newAdminHarness()
	user := h.seedUser(t, "user@example.com", entity.SiteRoleUser)
	session := h.seedSession(t, user)

	_, err := h.service.StopImpersonating(context.Background(), session.TokenHash, usecase.SessionMeta{})

	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestAdminService_RevokeUserSessions(t *testing.T) {
	h := newAdminHarness()
	admin := h.seedUser(t, "admin@example.com", entity.SiteRoleAdmin)
	target := h.seedUser(t, "target@example.com", entity.SiteRoleUser)
	ctx := context.Background()

	for range 3 {
		h.seedSession(t, target)
	}

	require.NoError(t, h.service.RevokeUserSessions(ctx, admin.ID, target.ID))

	sessions, err := h.factory.sessions.FindByUser(ctx, target.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

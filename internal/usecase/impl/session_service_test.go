package impl

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/domain/service"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionHarness struct {
	factory   *fakeRepoFactory
	store     *fakeStore
	publisher *fakePublisher
	service   usecase.SessionUsecase
}

func newSessionHarness() *sessionHarness {
	factory := newFakeRepoFactory()
	store := newFakeStore()
	publisher := &fakePublisher{}

	svc := NewSessionService(SessionServiceParams{
		TxManager:   &fakeTxManager{factory: factory},
		SessionRepo: factory.sessions,
		UserRepo:    factory.users,
		OrgRepo:     factory.organizations,
		Store:       store,
		Publisher:   publisher,
		Config:      newTestConfig(),
		Logger:      newDiscardLogger(),
	})

	return &sessionHarness{factory: factory, store: store, publisher: publisher, service: svc}
}

// seedSession creates a user plus a persisted session and returns the raw token.
func (h *sessionHarness) seedSession(t *testing.T) (*entity.User, *entity.Session, string) {
	t.Helper()

	ctx := context.Background()
	user := &entity.User{Email: "tester@example.com", Name: "Tester", Role: entity.SiteRoleUser, Lang: "en"}
	require.NoError(t, h.factory.users.Create(ctx, user))

	raw, hash, err := newOpaqueToken()
	require.NoError(t, err)

	session := &entity.Session{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
	require.NoError(t, h.factory.sessions.Create(ctx, session))

	return user, session, raw
}

func TestSessionService_Validate_PopulatesCache(t *testing.T) {
	h := newSessionHarness()
	user, session, raw := h.seedSession(t)

	info, err := h.service.Validate(context.Background(), raw, false)

	require.NoError(t, err)
	assert.Equal(t, session.ID, info.Session.ID)
	assert.Equal(t, user.ID, info.User.ID)

	// A cache copy now exists under the token hash.
	_, err = h.store.Get(context.Background(), sessionCacheKey(session.TokenHash))
	assert.NoError(t, err)
}

func TestSessionService_Validate_ServesFromCache(t *testing.T) {
	h := newSessionHarness()
	_, session, raw := h.seedSession(t)

	_, err := h.service.Validate(context.Background(), raw, false)
	require.NoError(t, err)

	// Remove the authoritative row; the cached copy still answers.
	require.NoError(t, h.factory.sessions.Delete(context.Background(), session.ID))

	info, err := h.service.Validate(context.Background(), raw, false)
	require.NoError(t, err)
	assert.Equal(t, session.ID, info.Session.ID)
}

func TestSessionService_Validate_FreshBypassesCache(t *testing.T) {
	h := newSessionHarness()
	_, session, raw := h.seedSession(t)

	_, err := h.service.Validate(context.Background(), raw, false)
	require.NoError(t, err)

	require.NoError(t, h.factory.sessions.Delete(context.Background(), session.ID))

	_, err = h.service.Validate(context.Background(), raw, true)
	assert.ErrorIs(t, err, domainerrors.ErrSessionInvalid)
}

func TestSessionService_Validate_ExpiredSession(t *testing.T) {
	h := newSessionHarness()
	_, session, raw := h.seedSession(t)

	session.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, h.factory.sessions.Update(context.Background(), session))

	_, err := h.service.Validate(context.Background(), raw, false)

	assert.ErrorIs(t, err, domainerrors.ErrSessionInvalid)
}

func TestSessionService_Validate_SlidingRefresh(t *testing.T) {
	h := newSessionHarness()
	_, session, raw := h.seedSession(t)

	// Age the session past the update age with little remaining life.
	session.UpdatedAt = time.Now().Add(-25 * time.Hour)
	session.ExpiresAt = time.Now().Add(time.Hour)
	require.NoError(t, h.factory.sessions.Update(context.Background(), session))

	info, err := h.service.Validate(context.Background(), raw, true)

	require.NoError(t, err)
	assert.Greater(t, info.Session.ExpiresAt, time.Now().Add(6*24*time.Hour))

	stored, err := h.factory.sessions.FindByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Greater(t, stored.ExpiresAt, time.Now().Add(6*24*time.Hour))
}

func TestSessionService_SignOut_Idempotent(t *testing.T) {
	h := newSessionHarness()
	_, session, raw := h.seedSession(t)

	require.NoError(t, h.service.SignOut(context.Background(), raw))

	_, err := h.factory.sessions.FindByID(context.Background(), session.ID)
	assert.Error(t, err)

	// Signing out again succeeds silently.
	assert.NoError(t, h.service.SignOut(context.Background(), raw))
}

func TestSessionService_RevokeByID_ForeignSessionRejected(t *testing.T) {
	h := newSessionHarness()
	_, session, _ := h.seedSession(t)

	err := h.service.RevokeByID(context.Background(), uuid.New(), session.ID)

	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestSessionService_RevokeOthers(t *testing.T) {
	h := newSessionHarness()
	user, current, _ := h.seedSession(t)

	ctx := context.Background()
	for range 3 {
		_, hash, err := newOpaqueToken()
		require.NoError(t, err)
		require.NoError(t, h.factory.sessions.Create(ctx, &entity.Session{
			UserID:    user.ID,
			TokenHash: hash,
			ExpiresAt: time.Now().Add(time.Hour),
		}))
	}

	require.NoError(t, h.service.RevokeOthers(ctx, user.ID, current.TokenHash))

	sessions, err := h.factory.sessions.FindByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, current.ID, sessions[0].ID)
}

func TestSessionService_SetActiveOrganization_RequiresMembership(t *testing.T) {
	h := newSessionHarness()
	user, session, _ := h.seedSession(t)

	ctx := context.Background()
	org := &entity.Organization{Name: "Acme", Slug: "acme"}
	require.NoError(t, h.factory.organizations.CreateOrganization(ctx, org))

	// Not a member yet.
	err := h.service.SetActiveOrganization(ctx, session.ID, user.ID, &org.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotMember)

	require.NoError(t, h.factory.organizations.CreateMember(ctx, &entity.Member{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           entity.OrgRoleMember,
	}))

	require.NoError(t, h.service.SetActiveOrganization(ctx, session.ID, user.ID, &org.ID))

	stored, err := h.factory.sessions.FindByID(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ActiveOrganizationID)
	assert.Equal(t, org.ID, *stored.ActiveOrganizationID)

	// Clearing the selection needs no membership check.
	require.NoError(t, h.service.SetActiveOrganization(ctx, session.ID, user.ID, nil))

	stored, err = h.factory.sessions.FindByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ActiveOrganizationID)
}

// orgTaggingPublisher stands in for the dispatcher whose handlers enrich a
// freshly issued session with an inferred active organization.
type orgTaggingPublisher struct {
	orgID uuid.UUID
}

func (p *orgTaggingPublisher) Publish(_ context.Context, event service.Event) {
	if e, ok := event.(service.SessionCreatedEvent); ok {
		e.Session.ActiveOrganizationID = &p.orgID
	}
}

func TestSessionIssuer_CacheCarriesHandlerEnrichment(t *testing.T) {
	factory := newFakeRepoFactory()
	store := newFakeStore()
	orgID := uuid.New()

	issuer := &sessionIssuer{
		sessionRepo: factory.sessions,
		store:       store,
		publisher:   &orgTaggingPublisher{orgID: orgID},
		expiresIn:   7 * 24 * time.Hour,
		cacheTTL:    5 * time.Minute,
		logger:      newDiscardLogger(),
	}

	ctx := context.Background()
	user := &entity.User{Email: "tester@example.com", Name: "Tester", Role: entity.SiteRoleUser, Lang: "en"}
	require.NoError(t, factory.users.Create(ctx, user))

	out, err := issuer.Issue(ctx, user, usecase.SessionMeta{}, issueOptions{})
	require.NoError(t, err)

	// The cached copy must include what the handlers set, not the
	// pre-dispatch snapshot.
	value, err := store.Get(ctx, sessionCacheKey(out.Session.TokenHash))
	require.NoError(t, err)

	var cached cachedSession
	require.NoError(t, json.Unmarshal([]byte(value), &cached))
	require.NotNil(t, cached.Session.ActiveOrganizationID)
	assert.Equal(t, orgID, *cached.Session.ActiveOrganizationID)
}

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

type orgHarness struct {
	factory   *fakeRepoFactory
	store     *fakeStore
	publisher *fakePublisher
	service   usecase.OrganizationUsecase
}

func newOrgHarness() *orgHarness {
	factory := newFakeRepoFactory()
	store := newFakeStore()
	publisher := &fakePublisher{}

	svc := NewOrganizationService(OrganizationServiceParams{
		TxManager: &fakeTxManager{factory: factory},
		OrgRepo:   factory.organizations,
		UserRepo:  factory.users,
		Store:     store,
		Publisher: publisher,
		Config:    newTestConfig(),
		Logger:    newDiscardLogger(),
	})

	return &orgHarness{factory: factory, store: store, publisher: publisher, service: svc}
}

func (h *orgHarness) seedUser(t *testing.T, email string) *entity.User {
	t.Helper()

	user := &entity.User{Email: email, Name: "Tester", Role: entity.SiteRoleUser, Lang: "en"}
	require.NoError(t, h.factory.users.Create(context.Background(), user))

	return user
}

func (h *orgHarness) seedOrg(t *testing.T, owner *entity.User) *entity.Organization {
	t.Helper()

	org, err := h.service.Create(context.Background(), owner.ID, usecase.CreateOrganizationInput{Name: "Acme Corp"})
	require.NoError(t, err)

	return org
}

func (h *orgHarness) seedSession(t *testing.T, user *entity.User) *entity.Session {
	t.Helper()

	_, hash, err := newOpaqueToken()
	require.NoError(t, err)

	session := &entity.Session{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, h.factory.sessions.Create(context.Background(), session))

	return session
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Corp":          "acme-corp",
		"  Hello -- World  ": "hello-world",
		"Already-Slugged":    "already-slugged",
		"Team #1!":           "team-1",
		"Team ٣ Alpha":       "team-alpha", // non-ASCII digits don't slip in
	}

	for input, expected := range cases {
		assert.Equal(t, expected, slugify(input), input)
	}
}

func TestOrganizationService_Create_CallerBecomesOwner(t *testing.T) {
	h := newOrgHarness()
	owner := h.seedUser(t, "owner@example.com")

	org := h.seedOrg(t, owner)

	assert.Equal(t, "acme-corp", org.Slug)

	member, err := h.factory.organizations.FindMember(context.Background(), org.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrgRoleOwner, member.Role)
}

func TestOrganizationService_Create_SlugTaken(t *testing.T) {
	h := newOrgHarness()
	owner := h.seedUser(t, "owner@example.com")
	h.seedOrg(t, owner)

	_, err := h.service.Create(context.Background(), owner.ID, usecase.CreateOrganizationInput{Name: "Acme Corp"})

	assert.ErrorIs(t, err, domainerrors.ErrSlugTaken)
}

func TestOrganizationService_Invite_FullAcceptFlow(t *testing.T) {
	h := newOrgHarness()
	owner := h.seedUser(t, "owner@example.com")
	invitee := h.seedUser(t, "invitee@example.com")
	org := h.seedOrg(t, owner)
	ctx := context.Background()

	invitation, err := h.service.Invite(ctx, owner.ID, org.ID, "Invitee@example.com", entity.OrgRoleMember)
	require.NoError(t, err)
	assert.Equal(t, "invitee@example.com", invitation.Email)
	assert.Equal(t, entity.InvitationPending, invitation.Status)

	// The invitation event carries organization and inviter for the email.
	var found bool
	for _, event := range h.publisher.events {
		if created, ok := event.(service.InvitationCreatedEvent); ok {
			found = true
			assert.Equal(t, org.ID, created.Organization.ID)
			assert.Equal(t, owner.ID, created.Inviter.ID)
		}
	}
	assert.True(t, found)

	session := h.seedSession(t, invitee)

	member, err := h.service.AcceptInvitation(ctx, invitee.ID, session.ID, invitation.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrgRoleMember, member.Role)

	// Accepting twice fails: the invitation left the pending state.
	_, err = h.service.AcceptInvitation(ctx, invitee.ID, session.ID, invitation.ID)
	assert.ErrorIs(t, err, domainerrors.ErrInvitationInvalid)
}

func TestOrganizationService_AcceptInvitation_SetsActiveOrganization(t *testing.T) {
	h := newOrgHarness()
	owner := h.seedUser(t, "owner@example.com")
	invitee := h.seedUser(t, "invitee@example.com")
	org := h.seedOrg(t, owner)
	ctx := context.Background()

	invitation, err := h.service.Invite(ctx, owner.ID, org.ID, "invitee@example.com", entity.OrgRoleMember)
	require.NoError(t, err)

	session := h.seedSession(t, invitee)

	// A stale cookie-cache copy holding no active organization.
	require.NoError(t, h.store.Set(ctx, sessionCacheKey(session.TokenHash), "{}", time.Minute))

	_, err = h.service.AcceptInvitation(ctx, invitee.ID, session.ID, invitation.ID)
	require.NoError(t, err)

	updated, err := h.factory.sessions.FindByID(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.ActiveOrganizationID)
	assert.Equal(t, org.ID, *updated.ActiveOrganizationID)

	// The cache copy is dropped so the next validation sees the new selection.
	_, err = h.store.Get(ctx, sessionCacheKey(session.TokenHash))
	assert.ErrorIs(t, err, service.ErrKeyNotFound)
}

func TestOrganizationService_Invite_DuplicatePending(t *testing.T) {
	h := newOrgHarness()
	owner := h.seedUser(t, "owner@example.com")
	org := h.seedOrg(t, owner)
	ctx := context.Background()

	_, err := h.service.Invite(ctx, owner.ID, org.ID, "invitee@example.com", entity.OrgRoleMember)
	require.NoError(t, err)

	_, err = h.service.Invite(ctx, owner.ID, org.ID, "invitee@example.com", entity.OrgRoleMember)

	assert.ErrorIs(t, err, domainerrors.ErrDuplicatePendingInvite)
}

func TestOrganizationService_Invite_MemberOnlyForbidden(t *testing.T) {
	h := newOrgHarness()
	owner := h.seedUser(t, "owner@example.com")
	member := h.seedUser(t, "member@example.com")
	org := h.seedOrg(t, owner)
	ctx := context.Background()

	require.NoError(t, h.factory.organizations.CreateMember(ctx, &entity.Member{
		OrganizationID: org.ID,
		UserID:         member.ID,
		Role:           entity.OrgRoleMember,
	}))

	_, err := h.service.Invite(ctx, member.ID, org.ID, "someone@example.com", entity.OrgRoleMember)

	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestOrganizationService_AcceptInvitation_EmailMismatch(t *testing.T) {
	h := newOrgHarness()
	owner := h.seedUser(t, "owner@example.com")
	stranger := h.seedUser(t, "stranger@example.com")
	org := h.seedOrg(t, owner)
	ctx := context.Background()

	invitation, err := h.service.Invite(ctx, owner.ID, org.ID, "invitee@example.com", entity.OrgRoleMember)
	require.NoError(t, err)

	session := h.seedSession(t, stranger)
	_, err = h.service.AcceptInvitation(ctx, stranger.ID, session.ID, invitation.ID)

	assert.ErrorIs(t, err, domainerrors.ErrEmailMismatch)
}

func TestOrganizationService_AcceptInvitation_Expired(t *testing.T) {
	h := newOrgHarness()
	owner := h.seedUser(t, "owner@example.com")
	invitee := h.seedUser(t, "invitee@example.com")
	org := h.seedOrg(t, owner)
	ctx := context.Background()

	invitation, err := h.service.Invite(ctx, owner.ID, org.ID, "invitee@example.com", entity.OrgRoleMember)
	require.NoError(t, err)

	// Force the invitation past its expiry.
	h.factory.organizations.invitations[invitation.ID].ExpiresAt = time.Now().Add(-time.Minute)

	session := h.seedSession(t, invitee)
	_, err = h.service.AcceptInvitation(ctx, invitee.ID, session.ID, invitation.ID)

	assert.ErrorIs(t, err, domainerrors.ErrInvitationInvalid)
}

func TestOrganizationService_LastOwnerGuards(t *testing.T) {
	h := newOrgHarness()
	owner := h.seedUser(t, "owner@example.com")
	org := h.seedOrg(t, owner)
	ctx := context.Background()

	// The only owner cannot leave.
	err := h.service.Leave(ctx, owner.ID, org.ID)
	assert.ErrorIs(t, err, domainerrors.ErrCannotRemoveLastOwner)

	ownerMember, err := h.factory.organizations.FindMember(ctx, org.ID, owner.ID)
	require.NoError(t, err)

	// Nor can they demote themselves.
	_, err = h.service.UpdateMemberRole(ctx, owner.ID, org.ID, ownerMember.ID, entity.OrgRoleMember)
	assert.ErrorIs(t, err, domainerrors.ErrCannotRemoveLastOwner)

	// With a second owner both operations pass.
	second := h.seedUser(t, "second@example.com")
	require.NoError(t, h.factory.organizations.CreateMember(ctx, &entity.Member{
		OrganizationID: org.ID,
		UserID:         second.ID,
		Role:           entity.OrgRoleOwner,
	}))

	require.NoError(t, h.service.Leave(ctx, owner.ID, org.ID))
}

func TestOrganizationService_RemoveMember(t *testing.T) {
	h := newOrgHarness()
	owner := h.seedUser(t, "owner@example.com")
	member := h.seedUser(t, "member@example.com")
	org := h.seedOrg(t, owner)
	ctx := context.Background()

	require.NoError(t, h.factory.organizations.CreateMember(ctx, &entity.Member{
		OrganizationID: org.ID,
		UserID:         member.ID,
		Role:           entity.OrgRoleMember,
	}))

	target, err := h.factory.organizations.FindMember(ctx, org.ID, member.ID)
	require.NoError(t, err)

	// A plain member cannot remove others.
	err = h.service.RemoveMember(ctx, member.ID, org.ID, target.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	require.NoError(t, h.service.RemoveMember(ctx, owner.ID, org.ID, target.ID))

	_, err = h.factory.organizations.FindMember(ctx, org.ID, member.ID)
	assert.Error(t, err)
}

func TestOrganizationService_Delete_OwnerOnly(t *testing.T) {
	h := newOrgHarness()
	owner := h.seedUser(t, "owner@example.com")
	admin := h.seedUser(t, "admin@example.com")
	org := h.seedOrg(t, owner)
	ctx := context.Background()

	require.NoError(t, h.factory.organizations.CreateMember(ctx, &entity.Member{
		OrganizationID: org.ID,
		UserID:         admin.ID,
		Role:           entity.OrgRoleAdmin,
	}))

	err := h.service.Delete(ctx, admin.ID, org.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	require.NoError(t, h.service.Delete(ctx, owner.ID, org.ID))

	_, err = h.factory.organizations.FindOrganizationByID(ctx, org.ID)
	assert.Error(t, err)
}

func TestOrganizationService_Get_RequiresMembership(t *testing.T) {
	h := newOrgHarness()
	owner := h.seedUser(t, "owner@example.com")
	stranger := h.seedUser(t, "stranger@example.com")
	org := h.seedOrg(t, owner)

	_, err := h.service.Get(context.Background(), stranger.ID, org.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotMember)

	out, err := h.service.Get(context.Background(), owner.ID, org.ID)
	require.NoError(t, err)
	assert.Len(t, out.Members, 1)
}

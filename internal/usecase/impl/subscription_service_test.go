package impl

import (
	"context"
	"testing"
	"time"

	"passport/internal/domain/entity"
	domainerrors "passport/internal/domain/errors"
	"passport/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subscriptionHarness struct {
	factory *fakeRepoFactory
	billing *fakeBilling
	service usecase.SubscriptionUsecase
}

func newSubscriptionHarness(billing *fakeBilling) *subscriptionHarness {
	factory := newFakeRepoFactory()

	svc := NewSubscriptionService(SubscriptionServiceParams{
		OrgRepo:  factory.organizations,
		SubRepo:  factory.subscriptions,
		UserRepo: factory.users,
		Billing:  billing,
		Logger:   newDiscardLogger(),
	})

	return &subscriptionHarness{factory: factory, billing: billing, service: svc}
}

// seedMember creates a user, an organization and a membership with the role.
func (h *subscriptionHarness) seedMember(t *testing.T, email string, role entity.OrgRole) (*entity.User, *entity.Organization) {
	t.Helper()

	ctx := context.Background()
	user := &entity.User{Email: email, Name: "Tester", Role: entity.SiteRoleUser, Lang: "en"}
	require.NoError(t, h.factory.users.Create(ctx, user))

	org := &entity.Organization{Name: "Acme", Slug: "acme-" + email}
	require.NoError(t, h.factory.organizations.CreateOrganization(ctx, org))
	require.NoError(t, h.factory.organizations.CreateMember(ctx, &entity.Member{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           role,
	}))

	return user, org
}

func TestSubscriptionService_List_RefreshesMirror(t *testing.T) {
	h := newSubscriptionHarness(&fakeBilling{})
	owner, org := h.seedMember(t, "owner@example.com", entity.OrgRoleOwner)
	ctx := context.Background()

	h.billing.subscriptions = []*entity.Subscription{{
		ProviderID:  "sub_123",
		ReferenceID: org.ID,
		Plan:        "pro",
		Status:      entity.SubscriptionActive,
		PeriodEnd:   time.Now().Add(30 * 24 * time.Hour),
	}}

	listed, err := h.service.List(ctx, owner.ID, org.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "sub_123", listed[0].ProviderID)

	// The provider answer landed in the local mirror.
	mirrored, err := h.factory.subscriptions.FindByReference(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, mirrored, 1)
	assert.Equal(t, "pro", mirrored[0].Plan)
}

func TestSubscriptionService_List_FallsBackToMirror(t *testing.T) {
	h := newSubscriptionHarness(&fakeBilling{listErr: errors.New("stripe is down")})
	owner, org := h.seedMember(t, "owner@example.com", entity.OrgRoleOwner)
	ctx := context.Background()

	require.NoError(t, h.factory.subscriptions.Upsert(ctx, &entity.Subscription{
		ProviderID:  "sub_mirror",
		ReferenceID: org.ID,
		Plan:        "pro",
		Status:      entity.SubscriptionActive,
	}))

	listed, err := h.service.List(ctx, owner.ID, org.ID)

	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "sub_mirror", listed[0].ProviderID)
}

func TestSubscriptionService_List_RequiresMembership(t *testing.T) {
	h := newSubscriptionHarness(&fakeBilling{})
	_, org := h.seedMember(t, "owner@example.com", entity.OrgRoleOwner)

	stranger := &entity.User{Email: "stranger@example.com", Name: "Stranger", Role: entity.SiteRoleUser, Lang: "en"}
	require.NoError(t, h.factory.users.Create(context.Background(), stranger))

	_, err := h.service.List(context.Background(), stranger.ID, org.ID)

	assert.ErrorIs(t, err, domainerrors.ErrNotMember)
}

func TestSubscriptionService_Upgrade_AnyMemberAllowed(t *testing.T) {
	h := newSubscriptionHarness(&fakeBilling{checkoutURL: "https://billing.test/checkout"})
	member, org := h.seedMember(t, "member@example.com", entity.OrgRoleMember)

	redirectURL, err := h.service.Upgrade(context.Background(), member.ID, org.ID, "pro")

	require.NoError(t, err)
	assert.Equal(t, "https://billing.test/checkout", redirectURL)
}

func TestSubscriptionService_Cancel_OwnerOnly(t *testing.T) {
	h := newSubscriptionHarness(&fakeBilling{cancelURL: "https://billing.test/cancel"})
	admin, org := h.seedMember(t, "admin@example.com", entity.OrgRoleAdmin)
	ctx := context.Background()

	// Even an org admin cannot cancel.
	_, err := h.service.Cancel(ctx, admin.ID, org.ID, "sub_123")
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	owner := &entity.User{Email: "owner@example.com", Name: "Owner", Role: entity.SiteRoleUser, Lang: "en"}
	require.NoError(t, h.factory.users.Create(ctx, owner))
	require.NoError(t, h.factory.organizations.CreateMember(ctx, &entity.Member{
		OrganizationID: org.ID,
		UserID:         owner.ID,
		Role:           entity.OrgRoleOwner,
	}))

	redirectURL, err := h.service.Cancel(ctx, owner.ID, org.ID, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.test/cancel", redirectURL)
}

func TestSubscriptionService_Restore_RefreshesMirror(t *testing.T) {
	h := newSubscriptionHarness(&fakeBilling{})
	owner, org := h.seedMember(t, "owner@example.com", entity.OrgRoleOwner)
	ctx := context.Background()

	h.billing.subscriptions = []*entity.Subscription{{
		ProviderID:  "sub_restored",
		ReferenceID: org.ID,
		Plan:        "pro",
		Status:      entity.SubscriptionActive,
	}}

	require.NoError(t, h.service.Restore(ctx, owner.ID, org.ID, "sub_restored"))

	mirrored, err := h.factory.subscriptions.FindByReference(ctx, org.ID)
	require.NoError(t, err)
	assert.Len(t, mirrored, 1)
}

func TestSubscriptionService_Portal_OwnerOnly(t *testing.T) {
	h := newSubscriptionHarness(&fakeBilling{portalURL: "https://billing.test/portal"})
	member, org := h.seedMember(t, "member@example.com", entity.OrgRoleMember)
	ctx := context.Background()

	_, err := h.service.Portal(ctx, member.ID, org.ID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)

	owner := &entity.User{Email: "owner@example.com", Name: "Owner", Role: entity.SiteRoleUser, Lang: "en"}
	require.NoError(t, h.factory.users.Create(ctx, owner))
	require.NoError(t, h.factory.organizations.CreateMember(ctx, &entity.Member{
		OrganizationID: org.ID,
		UserID:         owner.ID,
		Role:           entity.OrgRoleOwner,
	}))

	portalURL, err := h.service.Portal(ctx, owner.ID, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://billing.test/portal", portalURL)
}

package policy

import (
	"testing"

	"passport/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

func TestAllowed_SubscriptionAsymmetry(t *testing.T) {
	// Any member may upgrade.
	assert.True(t, Allowed(entity.OrgRoleMember, ActionUpgradeSubscription))
	assert.True(t, Allowed(entity.OrgRoleAdmin, ActionUpgradeSubscription))
	assert.True(t, Allowed(entity.OrgRoleOwner, ActionUpgradeSubscription))

	// Cancel, restore and portal are owner-only.
	for _, action := range []Action{ActionCancelSubscription, ActionRestoreSubscription, ActionOpenBillingPortal} {
		assert.True(t, Allowed(entity.OrgRoleOwner, action), action)
		assert.False(t, Allowed(entity.OrgRoleAdmin, action), action)
		assert.False(t, Allowed(entity.OrgRoleMember, action), action)
	}
}

func TestAllowed_MembershipManagement(t *testing.T) {
	assert.True(t, Allowed(entity.OrgRoleOwner, ActionInviteMember))
	assert.True(t, Allowed(entity.OrgRoleAdmin, ActionInviteMember))
	assert.False(t, Allowed(entity.OrgRoleMember, ActionInviteMember))

	assert.True(t, Allowed(entity.OrgRoleOwner, ActionDeleteOrg))
	assert.False(t, Allowed(entity.OrgRoleAdmin, ActionDeleteOrg))
}

func TestAllowed_FailsClosed(t *testing.T) {
	assert.False(t, Allowed(entity.OrgRoleOwner, Action("unknown.action")))
	assert.False(t, Allowed(entity.OrgRole("superuser"), ActionInviteMember))
}

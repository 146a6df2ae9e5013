// Package policy centralizes role-based authorization as a declarative
// (role, action) table evaluated by a single check function. Keeping the
// matrix in one place makes the asymmetric subscription rules auditable and
// testable in isolation.
package policy

import "passport/internal/domain/entity"

// Action names a gated organization-scoped operation.
type Action string

const (
	ActionInviteMember     Action = "member.invite"
	ActionRemoveMember     Action = "member.remove"
	ActionUpdateMemberRole Action = "member.update-role"
	ActionCancelInvitation Action = "invitation.cancel"
	ActionUpdateOrg        Action = "organization.update"
	ActionDeleteOrg        Action = "organization.delete"

	// Subscription actions are deliberately asymmetric: any member may start
	// an upgrade, but only owners may cancel, restore or open the portal.
	ActionUpgradeSubscription Action = "subscription.upgrade"
	ActionCancelSubscription  Action = "subscription.cancel"
	ActionRestoreSubscription Action = "subscription.restore"
	ActionOpenBillingPortal   Action = "subscription.portal"
)

// table maps each action to the organization roles allowed to perform it.
// Deny is the default: an action or role absent from the table is refused.
var table = map[Action]map[entity.OrgRole]bool{
	ActionInviteMember:     {entity.OrgRoleOwner: true, entity.OrgRoleAdmin: true},
	ActionRemoveMember:     {entity.OrgRoleOwner: true, entity.OrgRoleAdmin: true},
	ActionUpdateMemberRole: {entity.OrgRoleOwner: true, entity.OrgRoleAdmin: true},
	ActionCancelInvitation: {entity.OrgRoleOwner: true, entity.OrgRoleAdmin: true},
	ActionUpdateOrg:        {entity.OrgRoleOwner: true, entity.OrgRoleAdmin: true},
	ActionDeleteOrg:        {entity.OrgRoleOwner: true},

	ActionUpgradeSubscription: {entity.OrgRoleOwner: true, entity.OrgRoleAdmin: true, entity.OrgRoleMember: true},
	ActionCancelSubscription:  {entity.OrgRoleOwner: true},
	ActionRestoreSubscription: {entity.OrgRoleOwner: true},
	ActionOpenBillingPortal:   {entity.OrgRoleOwner: true},
}

// Allowed reports whether the given organization role may perform the action.
// Unknown actions and unknown roles fail closed.
func Allowed(role entity.OrgRole, action Action) bool {
	allowed, ok := table[action]
	if !ok {
		return false
	}

	return allowed[role]
}

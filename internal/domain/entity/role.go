// Package entity contains the core business objects of the project.
package entity

// SiteRole represents the platform-wide role carried on a User.
// It is independent of any organization membership role.
type SiteRole string

const (
	// SiteRoleUser indicates a regular account.
	SiteRoleUser SiteRole = "user"
	// SiteRoleAdmin indicates a platform administrator who may impersonate
	// users and manage accounts globally.
	SiteRoleAdmin SiteRole = "admin"
)

// String returns the string representation of the SiteRole.
func (r SiteRole) String() string {
	return string(r)
}

// IsValid checks if the SiteRole is a valid value.
func (r SiteRole) IsValid() bool {
	switch r {
	case SiteRoleUser, SiteRoleAdmin:
		return true
	default:
		return false
	}
}

// OrgRole represents the role a member holds within a single organization.
type OrgRole string

const (
	// OrgRoleOwner is the highest organization role. Every organization keeps
	// at least one owner at all times.
	OrgRoleOwner OrgRole = "owner"
	// OrgRoleAdmin may manage members and invitations but not billing.
	OrgRoleAdmin OrgRole = "admin"
	// OrgRoleMember is the default role granted by invitations.
	OrgRoleMember OrgRole = "member"
)

// String returns the string representation of the OrgRole.
func (r OrgRole) String() string {
	return string(r)
}

// IsValid checks if the OrgRole is a valid value.
func (r OrgRole) IsValid() bool {
	switch r {
	case OrgRoleOwner, OrgRoleAdmin, OrgRoleMember:
		return true
	default:
		return false
	}
}

// AtLeastAdmin reports whether the role carries organization management rights.
func (r OrgRole) AtLeastAdmin() bool {
	return r == OrgRoleOwner || r == OrgRoleAdmin
}

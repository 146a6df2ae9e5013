// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the core entity in the system, representing a unique "person" or "account".
// It contains only the most fundamental identity information; credentials, sessions
// and organization memberships hang off it as separate entities.
type User struct {
	ID               uuid.UUID // The Global Unique Identifier (GUID) for the user.
	Email            string    // The user's primary contact email, used as the login identifier.
	Name             string    // The user's display name.
	EmailVerified    bool      // Whether the user has proven ownership of the email address.
	Image            string    // Optional avatar URL.
	Role             SiteRole  // Site-wide role (user or admin), orthogonal to organization roles.
	TwoFactorEnabled bool      // Whether a verified two-factor secret exists for this user.
	FavoriteNumber   int       // Custom profile field carried on the account.
	Lang             string    // Preferred language code, defaults to "en".
	CreatedAt        time.Time // Timestamp of when this user account was created.
	UpdatedAt        time.Time // Timestamp of the last modification to this user's data.
}

// IsAdmin reports whether the user holds the site-wide admin role.
func (u *User) IsAdmin() bool {
	return u.Role == SiteRoleAdmin
}

// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session represents an authenticated browser or device session.
// The raw token is opaque and handed to the client once; only its SHA-256
// hash is persisted. The authoritative record lives in the relational store,
// with a short-lived copy in the secondary store for fast validation.
type Session struct {
	ID                   uuid.UUID  // The unique ID for this session record.
	UserID               uuid.UUID  // Links this session to the User it belongs to.
	TokenHash            string     // SHA-256 hash of the raw opaque token.
	IPAddress            string     // Client IP captured at creation.
	UserAgent            string     // Client user agent captured at creation.
	ActiveOrganizationID *uuid.UUID // The organization currently selected for this session, if any.
	ImpersonatedBy       *uuid.UUID // Admin user ID when this session was created through impersonation.
	ImpersonatorSession  *uuid.UUID // The admin's own session ID, kept so StopImpersonating can restore it.
	ExpiresAt            time.Time  // Authoritative expiry; slides forward on activity past the update age.
	CreatedAt            time.Time  // Timestamp of when this session was created.
	UpdatedAt            time.Time  // Timestamp of the last sliding-window refresh.
}

// Expired reports whether the session is past its authoritative expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// NeedsRefresh reports whether the session is due a sliding-window refresh.
func (s *Session) NeedsRefresh(now time.Time, updateAge time.Duration) bool {
	return now.Sub(s.UpdatedAt) > updateAge
}

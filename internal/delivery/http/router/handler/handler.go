// Package handler contains the echo handlers of the HTTP delivery.
// Handlers translate between the JSON surface and the usecase layer; no
// business rules live here. Entities are mapped to view structs so internal
// fields (token hashes, credential secrets) never reach the wire.
package handler

import (
	"net/http"
	"time"

	"passport/config"
	"passport/internal/domain/entity"
	"passport/internal/usecase"

	"github.com/labstack/echo/v4"
)

// sessionMeta captures the client metadata recorded on every issued session.
func sessionMeta(c echo.Context) usecase.SessionMeta {
	return usecase.SessionMeta{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// setSessionCookie hands the raw opaque token to the browser exactly once.
func setSessionCookie(c echo.Context, cfg *config.Config, token string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.Session.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie on sign-out.
func clearSessionCookie(c echo.Context, cfg *config.Config) {
	c.SetCookie(&http.Cookie{
		Name:     cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// --- View structs ---

// UserView is the public representation of a user account.
type UserView struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	EmailVerified    bool   `json:"email_verified"`
	Image            string `json:"image,omitempty"`
	Role             string `json:"role"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
	FavoriteNumber   int    `json:"favorite_number"`
	Lang             string `json:"lang"`
	CreatedAt        string `json:"created_at"`
}

func newUserView(user *entity.User) *UserView {
	if user == nil {
		return nil
	}

	return &UserView{
		ID:               user.ID.String(),
		Email:            user.Email,
		Name:             user.Name,
		EmailVerified:    user.EmailVerified,
		Image:            user.Image,
		Role:             user.Role.String(),
		TwoFactorEnabled: user.TwoFactorEnabled,
		FavoriteNumber:   user.FavoriteNumber,
		Lang:             user.Lang,
		CreatedAt:        user.CreatedAt.Format(time.RFC3339),
	}
}

func newUserViews(users []*entity.User) []*UserView {
	views := make([]*UserView, 0, len(users))
	for _, user := range users {
		views = append(views, newUserView(user))
	}

	return views
}

// SessionView is the public representation of a session. The token hash
// never leaves the server.
type SessionView struct {
	ID                   string  `json:"id"`
	IPAddress            string  `json:"ip_address"`
	UserAgent            string  `json:"user_agent"`
	ActiveOrganizationID *string `json:"active_organization_id,omitempty"`
	Impersonated         bool    `json:"impersonated,omitempty"`
	ExpiresAt            string  `json:"expires_at"`
	CreatedAt            string  `json:"created_at"`
}

func newSessionView(session *entity.Session) *SessionView {
	if session == nil {
		return nil
	}

	view := &SessionView{
		ID:           session.ID.String(),
		IPAddress:    session.IPAddress,
		UserAgent:    session.UserAgent,
		Impersonated: session.ImpersonatedBy != nil,
		ExpiresAt:    session.ExpiresAt.Format(time.RFC3339),
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
	}
	if session.ActiveOrganizationID != nil {
		orgID := session.ActiveOrganizationID.String()
		view.ActiveOrganizationID = &orgID
	}

	return view
}

func newSessionViews(sessions []*entity.Session) []*SessionView {
	views := make([]*SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, newSessionView(session))
	}

	return views
}

// AuthView is the result of any operation that may establish a session.
type AuthView struct {
	User              *UserView    `json:"user,omitempty"`
	Session           *SessionView `json:"session,omitempty"`
	TwoFactorRequired bool         `json:"two_factor_required,omitempty"`
	ChallengeToken    string       `json:"challenge_token,omitempty"`
}

func newAuthView(out *usecase.AuthOutput) *AuthView {
	return &AuthView{
		User:              newUserView(out.User),
		Session:           newSessionView(out.Session),
		TwoFactorRequired: out.TwoFactorRequired,
		ChallengeToken:    out.ChallengeToken,
	}
}

// OrganizationView is the public representation of an organization.
type OrganizationView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedAt string `json:"created_at"`
}

func newOrganizationView(org *entity.Organization) *OrganizationView {
	if org == nil {
		return nil
	}

	return &OrganizationView{
		ID:        org.ID.String(),
		Name:      org.Name,
		Slug:      org.Slug,
		CreatedAt: org.CreatedAt.Format(time.RFC3339),
	}
}

func newOrganizationViews(orgs []*entity.Organization) []*OrganizationView {
	views := make([]*OrganizationView, 0, len(orgs))
	for _, org := range orgs {
		views = append(views, newOrganizationView(org))
	}

	return views
}

// MemberView is the public representation of an organization membership.
type MemberView struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
	Role           string `json:"role"`
	CreatedAt      string `json:"created_at"`
}

func newMemberView(member *entity.Member) *MemberView {
	if member == nil {
		return nil
	}

	return &MemberView{
		ID:             member.ID.String(),
		OrganizationID: member.OrganizationID.String(),
		UserID:         member.UserID.String(),
		Role:           string(member.Role),
		CreatedAt:      member.CreatedAt.Format(time.RFC3339),
	}
}

func newMemberViews(members []*entity.Member) []*MemberView {
	views := make([]*MemberView, 0, len(members))
	for _, member := range members {
		views = append(views, newMemberView(member))
	}

	return views
}

// InvitationView is the public representation of an organization invitation.
type InvitationView struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	ExpiresAt      string `json:"expires_at"`
	CreatedAt      string `json:"created_at"`
}

func newInvitationView(invitation *entity.Invitation) *InvitationView {
	if invitation == nil {
		return nil
	}

	return &InvitationView{
		ID:             invitation.ID.String(),
		OrganizationID: invitation.OrganizationID.String(),
		Email:          invitation.Email,
		Role:           string(invitation.Role),
		Status:         string(invitation.Status),
		ExpiresAt:      invitation.ExpiresAt.Format(time.RFC3339),
		CreatedAt:      invitation.CreatedAt.Format(time.RFC3339),
	}
}

func newInvitationViews(invitations []*entity.Invitation) []*InvitationView {
	views := make([]*InvitationView, 0, len(invitations))
	for _, invitation := range invitations {
		views = append(views, newInvitationView(invitation))
	}

	return views
}

// PasskeyView is the public representation of a registered passkey.
type PasskeyView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	BackedUp   bool     `json:"backed_up"`
	Transports []string `json:"transports,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

func newPasskeyView(passkey *entity.Passkey) *PasskeyView {
	if passkey == nil {
		return nil
	}

	return &PasskeyView{
		ID:         passkey.ID.String(),
		Name:       passkey.Name,
		BackedUp:   passkey.BackedUp,
		Transports: passkey.Transports,
		CreatedAt:  passkey.CreatedAt.Format(time.RFC3339),
	}
}

func newPasskeyViews(passkeys []*entity.Passkey) []*PasskeyView {
	views := make([]*PasskeyView, 0, len(passkeys))
	for _, passkey := range passkeys {
		views = append(views, newPasskeyView(passkey))
	}

	return views
}

// CredentialView lists a linked auth method without its secrets.
type CredentialView struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	CreatedAt string `json:"created_at"`
}

func newCredentialViews(credentials []*entity.Credential) []*CredentialView {
	views := make([]*CredentialView, 0, len(credentials))
	for _, credential := range credentials {
		views = append(views, &CredentialView{
			ID:        credential.ID.String(),
			Provider:  credential.Provider,
			CreatedAt: credential.CreatedAt.Format(time.RFC3339),
		})
	}

	return views
}

// SubscriptionView is the public representation of a billing subscription.
type SubscriptionView struct {
	ID                string `json:"id"`
	ProviderID        string `json:"provider_id"`
	Plan              string `json:"plan"`
	Status            string `json:"status"`
	PeriodStart       string `json:"period_start"`
	PeriodEnd         string `json:"period_end"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	Seats             int    `json:"seats"`
}

func newSubscriptionViews(subscriptions []*entity.Subscription) []*SubscriptionView {
	views := make([]*SubscriptionView, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		views = append(views, &SubscriptionView{
			ID:                subscription.ID.String(),
			ProviderID:        subscription.ProviderID,
			Plan:              subscription.Plan,
			Status:            string(subscription.Status),
			PeriodStart:       subscription.PeriodStart.Format(time.RFC3339),
			PeriodEnd:         subscription.PeriodEnd.Format(time.RFC3339),
			CancelAtPeriodEnd: subscription.CancelAtPeriodEnd,
			Seats:             subscription.Seats,
		})
	}

	return views
}

package handler

import (
	"log/slog"
	"net/http"

	"passport/internal/delivery/http/middleware"
	"passport/internal/delivery/http/response"
	"passport/internal/domain/entity"
	"passport/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// OrganizationHandlerParams holds dependencies for OrganizationHandler, injected by Fx.
type OrganizationHandlerParams struct {
	fx.In

	OrganizationUC usecase.OrganizationUsecase
	Logger         *slog.Logger
}

// OrganizationHandler holds dependencies for organization handlers
type OrganizationHandler struct {
	organizationUC usecase.OrganizationUsecase
	logger         *slog.Logger
}

// NewOrganizationHandler is the constructor for OrganizationHandler
func NewOrganizationHandler(params OrganizationHandlerParams) *OrganizationHandler {
	return &OrganizationHandler{
		organizationUC: params.OrganizationUC,
		logger:         params.Logger,
	}
}

// CreateOrganizationRequest represents the request body for creating an organization
type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	Slug string `json:"slug" validate:"omitempty,max=100"`
}

// UpdateOrganizationRequest represents the request body for updating an organization.
// Absent fields are left untouched.
type UpdateOrganizationRequest struct {
	Name *string `json:"name" validate:"omitempty,max=100"`
	Slug *string `json:"slug" validate:"omitempty,max=100"`
}

// InviteRequest represents the request body for inviting an email address
type InviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

// UpdateMemberRoleRequest represents the request body for changing a member's role
type UpdateMemberRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// Create creates an organization with the caller as owner
func (h *OrganizationHandler) Create(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	var req CreateOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid organization input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	org, err := h.organizationUC.Create(c.Request().Context(), userID, usecase.CreateOrganizationInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, newOrganizationView(org))
}

// List returns the organizations the caller belongs to
func (h *OrganizationHandler) List(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	orgs, err := h.organizationUC.List(c.Request().Context(), userID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newOrganizationViews(orgs))
}

// Get returns the organization with members and pending invitations
func (h *OrganizationHandler) Get(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid organization ID")
	}

	out, err := h.organizationUC.Get(c.Request().Context(), userID, orgID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]any{
		"organization": newOrganizationView(out.Organization),
		"members":      newMemberViews(out.Members),
		"invitations":  newInvitationViews(out.Invitations),
	})
}

// Update modifies organization fields
func (h *OrganizationHandler) Update(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid organization ID")
	}

	var req UpdateOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid organization input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	org, err := h.organizationUC.Update(c.Request().Context(), userID, orgID, usecase.UpdateOrganizationInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newOrganizationView(org))
}

// Delete removes the organization and everything under it
func (h *OrganizationHandler) Delete(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid organization ID")
	}

	if err := h.organizationUC.Delete(c.Request().Context(), userID, orgID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Organization deleted"})
}

// Invite creates a pending invitation and emails the invitee
func (h *OrganizationHandler) Invite(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid organization ID")
	}

	var req InviteRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid invitation input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	invitation, err := h.organizationUC.Invite(c.Request().Context(), userID, orgID, req.Email, entity.OrgRole(req.Role))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, newInvitationView(invitation))
}

// CancelInvitation withdraws a pending invitation
func (h *OrganizationHandler) CancelInvitation(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	invitationID, err := uuid.Parse(c.Param("invitationId"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid invitation ID")
	}

	if err := h.organizationUC.CancelInvitation(c.Request().Context(), userID, invitationID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Invitation canceled"})
}

// AcceptInvitation turns a pending invitation into a membership. The current
// session is switched to the joined organization.
func (h *OrganizationHandler) AcceptInvitation(c echo.Context) error {
	info, ok := middleware.GetSessionInfo(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	invitationID, err := uuid.Parse(c.Param("invitationId"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid invitation ID")
	}

	member, err := h.organizationUC.AcceptInvitation(c.Request().Context(), info.User.ID, info.Session.ID, invitationID)
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newMemberView(member))
}

// RejectInvitation declines a pending invitation addressed to the caller
func (h *OrganizationHandler) RejectInvitation(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	invitationID, err := uuid.Parse(c.Param("invitationId"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid invitation ID")
	}

	if err := h.organizationUC.RejectInvitation(c.Request().Context(), userID, invitationID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Invitation rejected"})
}

// RemoveMember removes another member from the organization
func (h *OrganizationHandler) RemoveMember(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid organization ID")
	}

	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid member ID")
	}

	if err := h.organizationUC.RemoveMember(c.Request().Context(), userID, orgID, memberID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Member removed"})
}

// UpdateMemberRole changes a member's role within the organization
func (h *OrganizationHandler) UpdateMemberRole(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid organization ID")
	}

	memberID, err := uuid.Parse(c.Param("memberId"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid member ID")
	}

	var req UpdateMemberRoleRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid role input")
	}

	if err := c.Validate(&req); err != nil {
		return response.HandleAppError(c, err)
	}

	member, err := h.organizationUC.UpdateMemberRole(c.Request().Context(), userID, orgID, memberID, entity.OrgRole(req.Role))
	if err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, newMemberView(member))
}

// Leave removes the caller's own membership
func (h *OrganizationHandler) Leave(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "SESSION_INVALID", "無效或已過期的工作階段")
	}

	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid organization ID")
	}

	if err := h.organizationUC.Leave(c.Request().Context(), userID, orgID); err != nil {
		return response.HandleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Left the organization"})
}

package events

import (
	"context"
	"log/slog"

	"passport/internal/domain/repository"
	"passport/internal/domain/service"
	"passport/internal/errors"
)

// sessionOrgHandler sets the active organization on a freshly issued session
// to the user's most recent membership, so clients land in a workspace
// without an extra round trip.
type sessionOrgHandler struct {
	txManager repository.TransactionManager
	logger    *slog.Logger
}

// NewSessionOrgHandler creates the active-organization event handler.
func NewSessionOrgHandler(txManager repository.TransactionManager, logger *slog.Logger) service.EventHandler {
	return &sessionOrgHandler{
		txManager: txManager,
		logger:    logger,
	}
}

// Handle infers the active organization for new sessions.
func (h *sessionOrgHandler) Handle(ctx context.Context, event service.Event) {
	e, ok := event.(service.SessionCreatedEvent)
	if !ok {
		return
	}
	if e.Session.ActiveOrganizationID != nil {
		return
	}

	err := h.txManager.Execute(ctx, func(factory repository.RepositoryFactory) error {
		memberships, err := factory.OrganizationRepo().FindMembershipsByUser(ctx, e.Session.UserID)
		if err != nil {
			return err
		}
		if len(memberships) == 0 {
			return nil
		}

		e.Session.ActiveOrganizationID = &memberships[0].OrganizationID

		return factory.SessionRepo().Update(ctx, e.Session)
	})
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		h.logger.ErrorContext(ctx, "failed to infer active organization",
			slog.String("sessionID", e.Session.ID.String()),
			slog.Any("error", err),
		)
	}
}

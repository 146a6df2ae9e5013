package events

import (
	"context"
	"log/slog"

	"passport/config"
	"passport/internal/domain/service"
)

// mailHandler reacts to domain events that trigger outbound email.
// Mail failures are logged only; the state change that fired the event has
// already committed.
type mailHandler struct {
	mailer  service.Mailer
	appName string
	baseURL string
	logger  *slog.Logger
}

// NewMailHandler creates the email event handler.
func NewMailHandler(cfg *config.Config, mailer service.Mailer, logger *slog.Logger) service.EventHandler {
	return &mailHandler{
		mailer:  mailer,
		appName: cfg.App.Name,
		baseURL: cfg.App.BaseURL,
		logger:  logger,
	}
}

// Handle sends the email corresponding to the event, if any.
func (h *mailHandler) Handle(ctx context.Context, event service.Event) {
	switch e := event.(type) {
	case service.UserCreatedEvent:
		h.send(ctx, service.Mail{
			To:      e.User.Email,
			Name:    e.User.Name,
			Subject: "Welcome to " + h.appName,
			Body:    "Hi " + e.User.Name + ", welcome aboard! Your account is ready.",
		})
	case service.PasswordResetEvent:
		h.send(ctx, service.Mail{
			To:      e.User.Email,
			Name:    e.User.Name,
			Subject: "Your password was changed",
			Body:    "Hi " + e.User.Name + ", your password was just reset. If this wasn't you, contact support immediately.",
		})
	case service.InvitationCreatedEvent:
		h.send(ctx, service.Mail{
			To:      e.Invitation.Email,
			Name:    e.Invitation.Email,
			Subject: e.Inviter.Name + " invited you to " + e.Organization.Name,
			Link:    h.baseURL + "/accept-invitation/" + e.Invitation.ID.String(),
			Body:    e.Inviter.Name + " has invited you to join " + e.Organization.Name + " on " + h.appName + ". Open the link below to respond.",
		})
	}
}

func (h *mailHandler) send(ctx context.Context, mail service.Mail) {
	if err := h.mailer.Send(ctx, mail); err != nil {
		h.logger.ErrorContext(ctx, "event mail delivery failed",
			slog.String("to", mail.To),
			slog.String("subject", mail.Subject),
			slog.Any("error", err),
		)
	}
}

// Package mail implements the email collaborator over the provider's HTTP API.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"passport/config"
	"passport/internal/domain/service"

	"github.com/pkg/errors"
)

// httpMailer implements service.Mailer by posting JSON to the email
// provider's send endpoint.
type httpMailer struct {
	apiURL      string
	apiKey      string
	fromAddress string
	fromName    string
	httpClient  *http.Client
	logger      *slog.Logger
}

// sendRequest is the provider's send payload.
type sendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// NewHTTPMailer creates the mailer from the configured provider credentials.
func NewHTTPMailer(cfg *config.Config, logger *slog.Logger) service.Mailer {
	return &httpMailer{
		apiURL:      cfg.Email.APIURL,
		apiKey:      cfg.Email.APIKey,
		fromAddress: cfg.Email.FromAddress,
		fromName:    cfg.Email.FromName,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Send posts a single message to the provider.
func (m *httpMailer) Send(ctx context.Context, mail service.Mail) error {
	text := mail.Body
	if mail.Link != "" {
		text += "\n\n" + mail.Link
	}

	payload := sendRequest{
		From:    m.fromName + " <" + m.fromAddress + ">",
		To:      mail.To,
		Subject: mail.Subject,
		Text:    text,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)

		return errors.Errorf("email provider returned status %d: %s", resp.StatusCode, string(respBody))
	}

	m.logger.InfoContext(ctx, "email sent",
		slog.String("to", mail.To),
		slog.String("subject", mail.Subject),
	)

	return nil
}

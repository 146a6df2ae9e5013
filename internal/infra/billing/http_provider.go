// Package billing implements the payment collaborator over the provider's
// form-encoded HTTP API.
package billing

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"passport/config"
	"passport/internal/domain/entity"
	"passport/internal/domain/service"

	"github.com/pkg/errors"
)

// httpProvider implements service.BillingProvider. Every mutation comes back
// as a redirect URL the client finishes on the provider's own pages; local
// subscription rows are only a mirror of what the provider reports.
type httpProvider struct {
	apiURL     string
	apiKey     string
	plans      *config.BillingConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPProvider creates the billing adapter from the configured credentials.
func NewHTTPProvider(cfg *config.Config, logger *slog.Logger) service.BillingProvider {
	return &httpProvider{
		apiURL: cfg.Billing.APIURL,
		apiKey: cfg.Billing.APIKey,
		plans:  cfg.Billing,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// subscriptionPayload is the provider's subscription representation.
type subscriptionPayload struct {
	ID                string `json:"id"`
	Plan              string `json:"plan"`
	Status            string `json:"status"`
	PeriodStart       int64  `json:"period_start"`
	PeriodEnd         int64  `json:"period_end"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	Seats             int    `json:"seats"`
}

type listResponse struct {
	Data []subscriptionPayload `json:"data"`
}

type customerResponse struct {
	ID string `json:"id"`
}

type redirectResponse struct {
	URL string `json:"url"`
}

// EnsureCustomer creates or fetches the provider customer for a reference.
func (p *httpProvider) EnsureCustomer(ctx context.Context, referenceID uuid.UUID, email string) (string, error) {
	form := url.Values{}
	form.Set("reference_id", referenceID.String())
	form.Set("email", email)

	var resp customerResponse
	if err := p.postForm(ctx, "/customers", form, &resp); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// ListSubscriptions returns the provider's subscriptions for a reference.
func (p *httpProvider) ListSubscriptions(ctx context.Context, referenceID uuid.UUID) ([]*entity.Subscription, error) {
	endpoint := p.apiURL + "/subscriptions?reference_id=" + url.QueryEscape(referenceID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	var resp listResponse
	if err := p.do(req, &resp); err != nil {
		return nil, err
	}

	subscriptions := make([]*entity.Subscription, 0, len(resp.Data))
	for _, payload := range resp.Data {
		subscriptions = append(subscriptions, &entity.Subscription{
			ProviderID:        payload.ID,
			ReferenceID:       referenceID,
			Plan:              payload.Plan,
			Status:            entity.SubscriptionStatus(payload.Status),
			PeriodStart:       time.Unix(payload.PeriodStart, 0),
			PeriodEnd:         time.Unix(payload.PeriodEnd, 0),
			CancelAtPeriodEnd: payload.CancelAtPeriodEnd,
			Seats:             payload.Seats,
		})
	}

	return subscriptions, nil
}

// Checkout starts an upgrade flow and returns the provider's redirect URL.
func (p *httpProvider) Checkout(ctx context.Context, referenceID uuid.UUID, plan string) (string, error) {
	planConfig, ok := p.plans.PlanByName(plan)
	if !ok {
		return "", errors.Errorf("unknown plan: %s", plan)
	}

	form := url.Values{}
	form.Set("reference_id", referenceID.String())
	form.Set("price_id", planConfig.PriceID)

	var resp redirectResponse
	if err := p.postForm(ctx, "/checkout/sessions", form, &resp); err != nil {
		return "", err
	}

	return resp.URL, nil
}

// Cancel schedules a cancellation at period end.
func (p *httpProvider) Cancel(ctx context.Context, referenceID uuid.UUID, subscriptionID string) (string, error) {
	form := url.Values{}
	form.Set("reference_id", referenceID.String())
	form.Set("subscription_id", subscriptionID)
	form.Set("cancel_at_period_end", "true")

	var resp redirectResponse
	if err := p.postForm(ctx, "/subscriptions/cancel", form, &resp); err != nil {
		return "", err
	}

	return resp.URL, nil
}

// Restore undoes a pending cancellation.
func (p *httpProvider) Restore(ctx context.Context, referenceID uuid.UUID, subscriptionID string) error {
	form := url.Values{}
	form.Set("reference_id", referenceID.String())
	form.Set("subscription_id", subscriptionID)

	return p.postForm(ctx, "/subscriptions/restore", form, nil)
}

// BillingPortal returns a redirect URL to the provider's self-serve portal.
func (p *httpProvider) BillingPortal(ctx context.Context, referenceID uuid.UUID) (string, error) {
	form := url.Values{}
	form.Set("reference_id", referenceID.String())

	var resp redirectResponse
	if err := p.postForm(ctx, "/billing_portal/sessions", form, &resp); err != nil {
		return "", err
	}

	return resp.URL, nil
}

// postForm sends a form-encoded POST and decodes the JSON response into out.
func (p *httpProvider) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	return p.do(req, out)
}

func (p *httpProvider) do(req *http.Request, out any) error {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		p.logger.Error("billing provider request failed",
			slog.String("path", req.URL.Path),
			slog.Int("status", resp.StatusCode),
		)

		return errors.Errorf("billing provider returned status %d: %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode billing provider response")
	}

	return nil
}

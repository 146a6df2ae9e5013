package service

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// BillingProvider defines the external payment/subscription collaborator.
// Local subscription rows are a read-through mirror of the provider's state;
// every mutation goes through this interface and comes back as a redirect URL
// the client completes out-of-band.
type BillingProvider interface {
	// EnsureCustomer creates or fetches the provider customer for a reference.
	EnsureCustomer(ctx context.Context, referenceID uuid.UUID, email string) (string, error)

	// ListSubscriptions returns the provider's subscriptions for a reference.
	ListSubscriptions(ctx context.Context, referenceID uuid.UUID) ([]*entity.Subscription, error)

	// Checkout starts an upgrade/plan-change flow and returns a redirect URL.
	Checkout(ctx context.Context, referenceID uuid.UUID, plan string) (string, error)

	// Cancel schedules a cancellation at period end and returns a redirect URL
	// to the provider's confirmation page.
	Cancel(ctx context.Context, referenceID uuid.UUID, subscriptionID string) (string, error)

	// Restore undoes a pending cancellation.
	Restore(ctx context.Context, referenceID uuid.UUID, subscriptionID string) error

	// BillingPortal returns a redirect URL to the provider's self-serve portal.
	BillingPortal(ctx context.Context, referenceID uuid.UUID) (string, error)
}

package usecase

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
)

// SubscriptionUsecase defines billing operations. The billing provider is
// the source of truth; a local mirror of subscription state is refreshed
// whenever the provider is consulted.
type SubscriptionUsecase interface {
	// List returns the organization's subscriptions, refreshed from the
	// billing provider. Any member may call it; a provider outage falls
	// back to the local mirror.
	List(ctx context.Context, userID, orgID uuid.UUID) ([]*entity.Subscription, error)

	// Upgrade starts a checkout for a plan and returns the redirect URL.
	// Any member may upgrade.
	Upgrade(ctx context.Context, userID, orgID uuid.UUID, plan string) (string, error)

	// Cancel schedules the subscription to end at the period boundary and
	// returns the provider's confirmation URL. Owner only.
	Cancel(ctx context.Context, userID, orgID uuid.UUID, subscriptionID string) (string, error)

	// Restore undoes a pending cancellation. Owner only.
	Restore(ctx context.Context, userID, orgID uuid.UUID, subscriptionID string) error

	// Portal returns a billing-portal URL for self-service management.
	// Owner only.
	Portal(ctx context.Context, userID, orgID uuid.UUID) (string, error)
}

// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"passport/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrSubscriptionNotFound is returned when a subscription mirror row is not found.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// SubscriptionRepository persists the local read-through mirror of the billing
// provider's subscription state. The subscription bridge only reads from it;
// writes happen when provider callbacks are applied.
type SubscriptionRepository interface {
	// Upsert creates or updates the mirror row keyed by provider subscription ID.
	Upsert(ctx context.Context, subscription *entity.Subscription) error

	// FindByReference lists subscriptions for an organization reference ID.
	FindByReference(ctx context.Context, referenceID uuid.UUID) ([]*entity.Subscription, error)
}

// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors the billing provider's subscription state.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription is a read-through mirror of the external billing provider's
// state, keyed by the organization reference id. It is mutated only by
// provider callbacks, never written directly by the subscription bridge.
type Subscription struct {
	ID                uuid.UUID
	ProviderID        string    // The provider's subscription identifier.
	ReferenceID       uuid.UUID // The organization this subscription bills for.
	Plan              string    // Plan identifier, e.g. "starter", "pro".
	Status            SubscriptionStatus
	PriceID           string    // Provider price identifier.
	PeriodStart       time.Time // Start of the current billing period.
	PeriodEnd         time.Time // End of the current billing period.
	CancelAtPeriodEnd bool      // Set when the owner canceled but the period has not ended.
	Seats             int       // Seat count reported by the provider.
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

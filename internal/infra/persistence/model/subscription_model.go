package model

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionModel mirrors the 'subscriptions' table, a local read-through
// mirror of the billing provider's state keyed by the provider's ID.
type SubscriptionModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	ProviderID        string    `gorm:"type:varchar(255);unique;not null"`
	ReferenceID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Plan              string    `gorm:"type:varchar(50);not null"`
	Status            string    `gorm:"type:varchar(20);not null"`
	PriceID           string    `gorm:"type:varchar(255)"`
	PeriodStart       time.Time
	PeriodEnd         time.Time
	CancelAtPeriodEnd bool `gorm:"not null;default:false"`
	Seats             int  `gorm:"not null;default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName explicitly sets the table name for GORM.
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// CredentialModel mirrors the 'credentials' table. One row per linked auth
// method. A partial unique index in the schema guarantees at most one
// password credential per user.
type CredentialModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Provider       string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_credentials_provider_subject,priority:1"`
	ProviderUserID string    `gorm:"type:varchar(255);uniqueIndex:idx_credentials_provider_subject,priority:2"`
	PasswordHash   string    `gorm:"type:varchar(255)"`
	CreatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (CredentialModel) TableName() string {
	return "credentials"
}

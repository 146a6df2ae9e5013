package model

import (
	"time"

	"github.com/google/uuid"
)

// VerificationTokenModel mirrors the 'verification_tokens' table. Rows are
// deleted on consumption, which is what makes tokens single-use.
type VerificationTokenModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Email     string    `gorm:"type:varchar(255);not null"`
	Purpose   string    `gorm:"type:varchar(30);not null"`
	TokenHash string    `gorm:"type:varchar(64);unique;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (VerificationTokenModel) TableName() string {
	return "verification_tokens"
}

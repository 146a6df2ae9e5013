package model

import (
	"time"

	"github.com/google/uuid"
)

// PasskeyModel mirrors the 'passkeys' table, holding WebAuthn credential
// descriptors. Transports are stored comma-joined.
type PasskeyModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index"`
	Name         string    `gorm:"type:varchar(100)"`
	CredentialID []byte    `gorm:"type:bytea;unique;not null"`
	PublicKey    []byte    `gorm:"type:bytea;not null"`
	AAGUID       []byte    `gorm:"type:bytea"`
	SignCount    uint32    `gorm:"not null;default:0"`
	Transports   string    `gorm:"type:varchar(255)"`
	BackedUp     bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (PasskeyModel) TableName() string {
	return "passkeys"
}

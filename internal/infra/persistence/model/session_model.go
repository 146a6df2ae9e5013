package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionModel mirrors the 'sessions' table. Only the SHA-256 hash of the
// opaque token is stored; the raw token never touches the database.
type SessionModel struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	UserID               uuid.UUID  `gorm:"type:uuid;not null;index"`
	TokenHash            string     `gorm:"type:varchar(64);unique;not null"`
	IPAddress            string     `gorm:"type:varchar(45)"`
	UserAgent            string     `gorm:"type:text"`
	ActiveOrganizationID *uuid.UUID `gorm:"type:uuid"`
	ImpersonatedBy       *uuid.UUID `gorm:"type:uuid"`
	ImpersonatorSession  *uuid.UUID `gorm:"type:uuid"`
	ExpiresAt            time.Time  `gorm:"not null;index"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName explicitly sets the table name for GORM.
func (SessionModel) TableName() string {
	return "sessions"
}

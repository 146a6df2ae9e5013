package model

import (
	"time"

	"github.com/google/uuid"
)

// TwoFactorModel mirrors the 'two_factors' table. One row per user; the row
// stays unverified until the user proves possession with a correct code.
type TwoFactorModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	UserID    uuid.UUID `gorm:"type:uuid;unique;not null"`
	Secret    string    `gorm:"type:varchar(64);not null"`
	Verified  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time

	BackupCodes []BackupCodeModel `gorm:"foreignKey:TwoFactorID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (TwoFactorModel) TableName() string {
	return "two_factors"
}

// BackupCodeModel mirrors the 'backup_codes' table. Codes are stored hashed
// and flipped to used on consumption, never deleted, so a replay is visible.
type BackupCodeModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	TwoFactorID uuid.UUID `gorm:"type:uuid;not null;index"`
	CodeHash    string    `gorm:"type:varchar(64);not null;index"`
	Used        bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (BackupCodeModel) TableName() string {
	return "backup_codes"
}

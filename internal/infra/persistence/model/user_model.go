package model

import (
	"time"

	"github.com/google/uuid"
)

// UserModel mirrors the 'users' table. PostgreSQL generates UUIDs via uuid_generate_v7().
type UserModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Email            string    `gorm:"type:varchar(255);unique;not null"`
	Name             string    `gorm:"type:varchar(100)"`
	EmailVerified    bool      `gorm:"not null;default:false"`
	Image            string    `gorm:"type:text"`
	Role             string    `gorm:"type:varchar(20);not null;default:'user'"`
	TwoFactorEnabled bool      `gorm:"not null;default:false"`
	FavoriteNumber   int       `gorm:"not null;default:0"`
	Lang             string    `gorm:"type:varchar(10);not null;default:'en'"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Credentials []CredentialModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Sessions    []SessionModel    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Passkeys    []PasskeyModel    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}

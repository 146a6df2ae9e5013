package model

import (
	"time"

	"github.com/google/uuid"
)

// OrganizationModel mirrors the 'organizations' table.
type OrganizationModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Slug      string    `gorm:"type:varchar(120);unique;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Members     []MemberModel     `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE"`
	Invitations []InvitationModel `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (OrganizationModel) TableName() string {
	return "organizations"
}

// MemberModel mirrors the 'members' table. A user appears at most once per
// organization.
type MemberModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_members_org_user,priority:1"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_members_org_user,priority:2"`
	Role           string    `gorm:"type:varchar(20);not null"`
	CreatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (MemberModel) TableName() string {
	return "members"
}

// InvitationModel mirrors the 'invitations' table. Expired rows keep their
// pending status; consumers check expires_at alongside status.
type InvitationModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index"`
	Email          string    `gorm:"type:varchar(255);not null;index"`
	Role           string    `gorm:"type:varchar(20);not null"`
	InviterID      uuid.UUID `gorm:"type:uuid;not null"`
	Status         string    `gorm:"type:varchar(20);not null;default:'pending'"`
	ExpiresAt      time.Time `gorm:"not null"`
	CreatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (InvitationModel) TableName() string {
	return "invitations"
}

package models

import (
	"time"

	"github.com/videostreampro/adcore/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a viewer or advertiser identity. Advertiser-side operations
// (campaign/ad management) act on behalf of a Team the user belongs to;
// viewer-side serving (spec §4.1) treats ViewerID as an opaque reference
// and never loads this row on the hot path. Pared down from the teacher's
// Customer model (which carried OTP/verification/referral state this
// domain has no use for) to the identity fields auth and attribution need.
type User struct {
	ID    uint      `gorm:"primaryKey" json:"id"`
	UUID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	Email string    `gorm:"type:varchar(255);not null;uniqueIndex:uk_users_email" json:"email"`

	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`

	TeamID *uint `gorm:"index:idx_users_team_id" json:"team_id,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	Team *Team `gorm:"foreignKey:TeamID;references:ID" json:"team,omitempty"`
}

// TableName overrides the pluralized default.
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID and creation timestamp.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = utils.UTCNow()
	}
	return nil
}

// UserFilter represents filter criteria for users.
type UserFilter struct {
	ID     *uint      `json:"id,omitempty"`
	UUID   *uuid.UUID `json:"uuid,omitempty"`
	Email  *string    `json:"email,omitempty"`
	TeamID *uint      `json:"team_id,omitempty"`
}

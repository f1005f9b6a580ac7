package models

import (
	"time"

	"github.com/videostreampro/adcore/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Team owns campaigns. It has no wallet of its own: wallets are keyed by
// user ID, and OwnerUserID marks the team member whose wallet funds the
// team's campaigns and receives refunds issued when a campaign is deleted
// or its budget is lowered (spec §4.9).
type Team struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_teams_uuid" json:"uuid"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	OwnerUserID uint      `gorm:"not null;index:idx_teams_owner_user_id" json:"owner_user_id"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	Campaigns []Campaign `gorm:"foreignKey:TeamID" json:"campaigns,omitempty"`
}

// TableName overrides the pluralized default.
func (Team) TableName() string {
	return "teams"
}

// BeforeCreate assigns a UUID and creation timestamp.
func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	return nil
}

// TeamFilter represents filter criteria for teams.
type TeamFilter struct {
	ID          *uint      `json:"id,omitempty"`
	UUID        *uuid.UUID `json:"uuid,omitempty"`
	OwnerUserID *uint      `json:"owner_user_id,omitempty"`
}

package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/videostreampro/adcore/utils"
	"github.com/google/uuid"
	"github.com/videostreampro/adcore/money"
	"gorm.io/gorm"
)

// CampaignStatus represents the status of a campaign (spec §3).
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

// String returns the string representation of the status.
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid reports whether s is one of the defined statuses.
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusPaused,
		CampaignStatusCompleted, CampaignStatusCancelled:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus.
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus.
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// Campaign is owned by a Team and optionally caps total ad spend across its
// Ads (spec §3). Adapted from the teacher's models/campaign.go: kept the
// UUID identity, BeforeCreate/BeforeUpdate audit-stamp hooks, status enum
// with Scan/Value, and CanTransitionTo state-machine shape, but replaced
// the SMS-specific CustomerID/CampaignSpec JSON blob with first-class
// TeamID ownership and Budget/Spent columns, since budget accounting (not
// message content) is this domain's core concern.
type Campaign struct {
	ID     uint           `gorm:"primaryKey" json:"id"`
	UUID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid;index:idx_campaigns_uuid" json:"uuid"`
	TeamID uint           `gorm:"not null;index:idx_campaigns_team_id" json:"team_id"`
	Status CampaignStatus `gorm:"type:varchar(12);not null;default:'draft';index:idx_campaigns_status" json:"status"`

	Title string `gorm:"type:varchar(255);not null" json:"title"`

	// Budget is nil when the campaign is uncapped. When present, the
	// invariant spent <= *Budget is checked by the impression flow's bill()
	// before each cost-per-view debit.
	Budget *money.Cents `json:"budget,omitempty"`
	Spent  money.Cents  `gorm:"not null;default:0" json:"spent"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt *time.Time `gorm:"index:idx_campaigns_updated_at" json:"updated_at,omitempty"`

	Ads []Ad `gorm:"foreignKey:CampaignID" json:"ads,omitempty"`
}

// TableName overrides the pluralized default.
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate assigns a UUID, default status, and creation timestamp.
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate stamps UpdatedAt.
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// CanTransitionTo enforces the campaign lifecycle state machine (spec §4.9).
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusActive || newStatus == CampaignStatusCancelled
	case CampaignStatusActive:
		return newStatus == CampaignStatusPaused ||
			newStatus == CampaignStatusCompleted ||
			newStatus == CampaignStatusCancelled
	case CampaignStatusPaused:
		return newStatus == CampaignStatusActive ||
			newStatus == CampaignStatusCompleted ||
			newStatus == CampaignStatusCancelled
	default:
		return false
	}
}

// IsWithinWindow reports whether now falls inside [StartDate, EndDate],
// treating a nil bound as unconstrained (spec §4.5 eligibility predicate).
func (c *Campaign) IsWithinWindow(now time.Time) bool {
	if c.StartDate != nil && c.StartDate.After(now) {
		return false
	}
	if c.EndDate != nil && c.EndDate.Before(now) {
		return false
	}
	return true
}

// RemainingBudget returns Budget-Spent, or money.Unlimited when uncapped.
func (c *Campaign) RemainingBudget() money.Cents {
	if c.Budget == nil {
		return money.Unlimited
	}
	remaining := *c.Budget - c.Spent
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CampaignFilter represents filter criteria for campaigns.
type CampaignFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	TeamID        *uint           `json:"team_id,omitempty"`
	Status        *CampaignStatus `json:"status,omitempty"`
	Title         *string         `json:"title,omitempty"`
	ActiveAt      *time.Time      `json:"active_at,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}

// GetStatusDisplayName returns a human-readable status name.
func (c *Campaign) GetStatusDisplayName() string {
	switch c.Status {
	case CampaignStatusDraft:
		return "Draft"
	case CampaignStatusActive:
		return "Active"
	case CampaignStatusPaused:
		return "Paused"
	case CampaignStatusCompleted:
		return "Completed"
	case CampaignStatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

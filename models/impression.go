package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/videostreampro/adcore/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/videostreampro/adcore/money"
	"gorm.io/gorm"
)

// ImpressionStatus is the reservation state machine (spec §4.2/§4.8):
// reserved -> served -> confirmed, with expired/cancelled terminal states
// reachable from reserved or served.
type ImpressionStatus string

const (
	ImpressionStatusReserved  ImpressionStatus = "reserved"
	ImpressionStatusServed    ImpressionStatus = "served"
	ImpressionStatusConfirmed ImpressionStatus = "confirmed"
	ImpressionStatusExpired   ImpressionStatus = "expired"
	ImpressionStatusCancelled ImpressionStatus = "cancelled"
)

// Valid reports whether s is one of the defined statuses.
func (s ImpressionStatus) Valid() bool {
	switch s {
	case ImpressionStatusReserved, ImpressionStatusServed, ImpressionStatusConfirmed,
		ImpressionStatusExpired, ImpressionStatusCancelled:
		return true
	default:
		return false
	}
}

// Scan implements sql.Scanner.
func (s *ImpressionStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = ImpressionStatus(v)
	case []byte:
		*s = ImpressionStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ImpressionStatus", value)
	}
	return nil
}

// Value implements driver.Valuer.
func (s ImpressionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ImpressionStatus: %s", s)
	}
	return string(s), nil
}

// IsTerminal reports whether the status cannot transition further.
func (s ImpressionStatus) IsTerminal() bool {
	return s == ImpressionStatusConfirmed || s == ImpressionStatusExpired || s == ImpressionStatusCancelled
}

// ImpressionAction is the viewer action reported at confirm time
// (spec §4.8).
type ImpressionAction string

const (
	ImpressionActionView     ImpressionAction = "view"
	ImpressionActionClick    ImpressionAction = "click"
	ImpressionActionSkip     ImpressionAction = "skip"
	ImpressionActionComplete ImpressionAction = "complete"
	ImpressionActionPause    ImpressionAction = "pause"
	ImpressionActionResume   ImpressionAction = "resume"
	ImpressionActionMute     ImpressionAction = "mute"
	ImpressionActionUnmute   ImpressionAction = "unmute"
)

// Valid reports whether a is one of the defined actions.
func (a ImpressionAction) Valid() bool {
	switch a {
	case ImpressionActionView, ImpressionActionClick, ImpressionActionSkip,
		ImpressionActionComplete, ImpressionActionPause, ImpressionActionResume,
		ImpressionActionMute, ImpressionActionUnmute:
		return true
	default:
		return false
	}
}

// Billable reports whether the action is a view. The confirm flow does not
// consult it: the cost-per-view debit is taken when an impression is
// confirmed with the "served" event.
func (a ImpressionAction) Billable() bool {
	return a == ImpressionActionView
}

// DeviceType is the viewer's device class, carried for reporting/targeting
// and stored as a narrow enum the way Campaign/Ad statuses are.
type DeviceType string

const (
	DeviceTypeDesktop DeviceType = "desktop"
	DeviceTypeMobile  DeviceType = "mobile"
	DeviceTypeTablet  DeviceType = "tablet"
	DeviceTypeTV      DeviceType = "tv"
	DeviceTypeUnknown DeviceType = "unknown"
)

// Impression is a single reserved/served/confirmed ad placement
// (spec §3/§4.2/§4.8). Grounded on Transaction's append-mostly,
// status-driven row shape, generalized to carry the viewer-identity and
// token fields the spec's serve/confirm flow needs. Either ViewerID or
// AnonID is set, never both, matching spec §4.1's authenticated-or-
// anonymous viewer identity rule.
type Impression struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_impressions_uuid;index:idx_impressions_uuid" json:"uuid"`
	Token      string           `gorm:"type:varchar(512);not null;uniqueIndex:uk_impressions_token" json:"-"`
	AdID       uint             `gorm:"not null;index:idx_impressions_ad_id" json:"ad_id"`
	CampaignID uint             `gorm:"not null;index:idx_impressions_campaign_id" json:"campaign_id"`
	Status     ImpressionStatus `gorm:"type:varchar(12);not null;default:'reserved';index:idx_impressions_status" json:"status"`
	Action     ImpressionAction `gorm:"type:varchar(12)" json:"action,omitempty"`

	CostCents money.Cents `gorm:"not null;default:0" json:"cost_cents"`

	ViewerID  *uint   `gorm:"index:idx_impressions_viewer_id" json:"viewer_id,omitempty"`
	AnonID    *string `gorm:"type:varchar(128);index:idx_impressions_anon_id" json:"anon_id,omitempty"`
	SessionID *string `gorm:"type:varchar(128);index:idx_impressions_session_id" json:"session_id,omitempty"`

	VideoID  string         `gorm:"type:varchar(255);not null;index:idx_impressions_video_id" json:"video_id"`
	Category *string        `gorm:"type:varchar(100)" json:"category,omitempty"`
	Tags     pq.StringArray `gorm:"type:text[]" json:"tags,omitempty"`

	Device DeviceType `gorm:"type:varchar(10);not null;default:'unknown'" json:"device"`
	OS     string     `gorm:"type:varchar(30)" json:"os,omitempty"`

	ExpiresAt   time.Time  `gorm:"not null;index:idx_impressions_expires_at" json:"expires_at"`
	ServedAt    *time.Time `json:"served_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	Ad       Ad       `gorm:"foreignKey:AdID;references:ID" json:"ad,omitempty"`
	Campaign Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
}

// TableName overrides the pluralized default.
func (Impression) TableName() string {
	return "impressions"
}

// BeforeCreate assigns a UUID and creation timestamp.
func (i *Impression) BeforeCreate(tx *gorm.DB) error {
	if i.UUID == uuid.Nil {
		i.UUID = uuid.New()
	}
	if i.Status == "" {
		i.Status = ImpressionStatusReserved
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate stamps UpdatedAt.
func (i *Impression) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	i.UpdatedAt = &now
	return nil
}

// IsExpired reports whether now is past ExpiresAt and the impression has
// not already reached a terminal state.
func (i *Impression) IsExpired(now time.Time) bool {
	return !i.Status.IsTerminal() && now.After(i.ExpiresAt)
}

// CanTransitionTo enforces the reservation state machine (spec §4.2/§4.8).
func (i *Impression) CanTransitionTo(newStatus ImpressionStatus) bool {
	switch i.Status {
	case ImpressionStatusReserved:
		return newStatus == ImpressionStatusServed ||
			newStatus == ImpressionStatusConfirmed ||
			newStatus == ImpressionStatusExpired ||
			newStatus == ImpressionStatusCancelled
	case ImpressionStatusServed:
		return newStatus == ImpressionStatusConfirmed ||
			newStatus == ImpressionStatusExpired ||
			newStatus == ImpressionStatusCancelled
	default:
		return false
	}
}

// ImpressionFilter represents filter criteria for impressions.
type ImpressionFilter struct {
	ID            *uint             `json:"id,omitempty"`
	UUID          *uuid.UUID        `json:"uuid,omitempty"`
	Token         *string           `json:"token,omitempty"`
	AdID          *uint             `json:"ad_id,omitempty"`
	CampaignID    *uint             `json:"campaign_id,omitempty"`
	Status        *ImpressionStatus `json:"status,omitempty"`
	ViewerID      *uint             `json:"viewer_id,omitempty"`
	AnonID        *string           `json:"anon_id,omitempty"`
	ExpiresBefore *time.Time        `json:"expires_before,omitempty"`
}

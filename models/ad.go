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

// AdStatus represents the status of an ad creative within a campaign
// (spec §3). Grounded on Campaign's status-enum pattern but carries the
// creative-review states (under_review/rejected) this domain adds on top
// of the campaign lifecycle.
type AdStatus string

const (
	AdStatusDraft       AdStatus = "draft"
	AdStatusUnderReview AdStatus = "under_review"
	AdStatusActive      AdStatus = "active"
	AdStatusPaused      AdStatus = "paused"
	AdStatusCompleted   AdStatus = "completed"
	AdStatusRejected    AdStatus = "rejected"
)

// Valid reports whether s is one of the defined statuses.
func (s AdStatus) Valid() bool {
	switch s {
	case AdStatusDraft, AdStatusUnderReview, AdStatusActive, AdStatusPaused,
		AdStatusCompleted, AdStatusRejected:
		return true
	default:
		return false
	}
}

// Scan implements sql.Scanner.
func (s *AdStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = AdStatus(v)
	case []byte:
		*s = AdStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into AdStatus", value)
	}
	return nil
}

// Value implements driver.Valuer.
func (s AdStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid AdStatus: %s", s)
	}
	return string(s), nil
}

// Ad is a single creative belonging to a Campaign (spec §3). A nil Budget
// means the ad's spend is only bounded by its parent campaign's budget
// (spec §4.4's two-level fallback: ad budget, else campaign budget, else
// uncapped). Modeled after Campaign's GORM conventions; Categories/Tags use
// lib/pq's array type rather than a join table since both are small,
// read-mostly sets consulted on every candidate-fetch (spec §4.5).
type Ad struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_ads_uuid;index:idx_ads_uuid" json:"uuid"`
	CampaignID uint     `gorm:"not null;index:idx_ads_campaign_id" json:"campaign_id"`
	Status     AdStatus `gorm:"type:varchar(16);not null;default:'draft';index:idx_ads_status" json:"status"`

	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	Budget *money.Cents `json:"budget,omitempty"`
	Spent  money.Cents  `gorm:"not null;default:0" json:"spent"`

	// BidCents is the advertiser's declared cost-per-view ceiling. It is
	// stored and updated with the ad; the scorer does not read it.
	BidCents money.Cents `gorm:"not null;default:0" json:"bid_cents"`

	Categories pq.StringArray `gorm:"type:text[]" json:"categories,omitempty"`
	Tags       pq.StringArray `gorm:"type:text[]" json:"tags,omitempty"`

	MediaURL     string `gorm:"type:text;not null" json:"media_url"`
	ThumbnailURL string `gorm:"type:text" json:"thumbnail_url,omitempty"`
	ClickURL     string `gorm:"type:text" json:"click_url,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_ads_created_at" json:"created_at"`
	UpdatedAt *time.Time `gorm:"index:idx_ads_updated_at" json:"updated_at,omitempty"`

	Campaign Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
}

// TableName overrides the pluralized default.
func (Ad) TableName() string {
	return "ads"
}

// BeforeCreate assigns a UUID, default status, and creation timestamp.
func (a *Ad) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.Status == "" {
		a.Status = AdStatusDraft
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate stamps UpdatedAt.
func (a *Ad) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	a.UpdatedAt = &now
	return nil
}

// CanTransitionTo enforces the ad lifecycle state machine (spec §4.9).
func (a *Ad) CanTransitionTo(newStatus AdStatus) bool {
	switch a.Status {
	case AdStatusDraft:
		return newStatus == AdStatusUnderReview || newStatus == AdStatusRejected
	case AdStatusUnderReview:
		return newStatus == AdStatusActive || newStatus == AdStatusRejected
	case AdStatusActive:
		return newStatus == AdStatusPaused ||
			newStatus == AdStatusCompleted ||
			newStatus == AdStatusRejected
	case AdStatusPaused:
		return newStatus == AdStatusActive ||
			newStatus == AdStatusCompleted ||
			newStatus == AdStatusRejected
	default:
		return false
	}
}

// IsEligible reports whether the ad is active and its own remaining budget
// is not zero. An ad with no budget of its own (RemainingBudget returns
// money.InheritBudget) counts as eligible; the campaign's status, date
// window and budget are not consulted.
func (a *Ad) IsEligible() bool {
	if a.Status != AdStatusActive {
		return false
	}
	return a.RemainingBudget() != 0
}

// RemainingBudget returns the ad's own remaining budget, or
// money.InheritBudget when the ad has no budget of its own and the
// campaign's budget governs instead.
func (a *Ad) RemainingBudget() money.Cents {
	if a.Budget == nil {
		return money.InheritBudget
	}
	remaining := *a.Budget - a.Spent
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasCategory reports whether the ad is tagged with the given category.
func (a *Ad) HasCategory(category string) bool {
	for _, c := range a.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// MatchingTagCount counts how many of the given tags the ad shares,
// comparing case-sensitively. The scorer's tag-overlap signal does not use
// it; that signal is computed by tagOverlap.
func (a *Ad) MatchingTagCount(tags []string) int {
	set := make(map[string]struct{}, len(a.Tags))
	for _, t := range a.Tags {
		set[t] = struct{}{}
	}
	count := 0
	for _, t := range tags {
		if _, ok := set[t]; ok {
			count++
		}
	}
	return count
}

// AdFilter represents filter criteria for ads.
type AdFilter struct {
	ID         *uint      `json:"id,omitempty"`
	UUID       *uuid.UUID `json:"uuid,omitempty"`
	CampaignID *uint      `json:"campaign_id,omitempty"`
	Status     *AdStatus  `json:"status,omitempty"`
	Category   *string    `json:"category,omitempty"`
}

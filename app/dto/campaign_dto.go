package dto

import "time"

// CreateCampaignRequest is the body of POST /teams/:team/campaigns
// (spec §4.9). TeamID is filled in from the route/auth context, not the
// JSON body.
type CreateCampaignRequest struct {
	TeamID    uint       `json:"-"`
	Title     string     `json:"title" validate:"required,max=255"`
	Budget    *int64     `json:"budget,omitempty" validate:"omitempty,min=0"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// CreateCampaignResponse mirrors the teacher's create-response shape.
type CreateCampaignResponse struct {
	Message   string `json:"message"`
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// UpdateCampaignRequest is the body of PUT /teams/:team/campaigns/:campaign.
// Nil fields are left unchanged.
type UpdateCampaignRequest struct {
	TeamID     uint       `json:"-"`
	UUID       string     `json:"-"`
	Title      *string    `json:"title,omitempty" validate:"omitempty,max=255"`
	Budget     *int64     `json:"budget,omitempty" validate:"omitempty,min=0"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Status     *string    `json:"status,omitempty" validate:"omitempty,oneof=draft active paused completed cancelled"`
}

// UpdateCampaignResponse mirrors CreateCampaignResponse.
type UpdateCampaignResponse struct {
	Message   string `json:"message"`
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	Budget    *int64 `json:"budget,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

// DeleteCampaignRequest identifies the campaign to hard-delete.
type DeleteCampaignRequest struct {
	TeamID uint   `json:"-"`
	UUID   string `json:"-"`
}

// DeleteCampaignResponse reports the refund credited back to the owner's
// wallet, if any (spec §4.9).
type DeleteCampaignResponse struct {
	Message      string `json:"message"`
	RefundCents  int64  `json:"refund_cents"`
}

package dto

// CreateAdRequest is the body of POST /teams/:team/campaigns/:campaign/ads
// (spec §4.9). TeamID/CampaignUUID are filled in from the route, not JSON.
type CreateAdRequest struct {
	TeamID       uint     `json:"-"`
	CampaignUUID string   `json:"-"`
	Title        string   `json:"title" validate:"required,max=255"`
	Description  string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	Budget       *int64   `json:"budget,omitempty" validate:"omitempty,min=0"`
	BidCents     int64    `json:"bid_cents,omitempty" validate:"omitempty,min=0"`
	Categories   []string `json:"categories,omitempty" validate:"omitempty,dive,max=100"`
	Tags         []string `json:"tags,omitempty" validate:"omitempty,dive,max=100"`
	MediaURL     string   `json:"media_url" validate:"required,url"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty" validate:"omitempty,url"`
	ClickURL     string   `json:"click_url,omitempty" validate:"omitempty,url"`
}

// CreateAdResponse mirrors the campaign create-response shape.
type CreateAdResponse struct {
	Message   string `json:"message"`
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// UpdateAdRequest is the body of PUT .../ads/:ad. Nil fields are left
// unchanged.
type UpdateAdRequest struct {
	TeamID       uint     `json:"-"`
	CampaignUUID string   `json:"-"`
	UUID         string   `json:"-"`
	Title        *string  `json:"title,omitempty" validate:"omitempty,max=255"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Budget       *int64   `json:"budget,omitempty" validate:"omitempty,min=0"`
	BidCents     *int64   `json:"bid_cents,omitempty" validate:"omitempty,min=0"`
	Categories   []string `json:"categories,omitempty" validate:"omitempty,dive,max=100"`
	Tags         []string `json:"tags,omitempty" validate:"omitempty,dive,max=100"`
	Status       *string  `json:"status,omitempty" validate:"omitempty,oneof=draft under_review active paused completed rejected"`
}

// UpdateAdResponse mirrors CreateAdResponse.
type UpdateAdResponse struct {
	Message   string `json:"message"`
	UUID      string `json:"uuid"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

// DeleteAdRequest identifies the ad to delete.
type DeleteAdRequest struct {
	TeamID       uint   `json:"-"`
	CampaignUUID string `json:"-"`
	UUID         string `json:"-"`
}

// DeleteAdResponse confirms deletion and the campaign budget freed.
type DeleteAdResponse struct {
	Message      string `json:"message"`
	FreedBudget  int64  `json:"freed_budget_cents"`
}

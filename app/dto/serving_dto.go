package dto

// ServeAdRequest is the body of POST /ad/serve (spec §6). Exactly one of
// UserID/AnonID must be present, and category/tags are each optional but
// at least one should be set for a targeted fetch.
type ServeAdRequest struct {
	VideoID   string   `json:"videoId" validate:"required,min=1"`
	Category  *string  `json:"category,omitempty" validate:"omitempty,max=100"`
	Tags      []string `json:"tags,omitempty" validate:"omitempty,dive,max=100"`
	UserID    *uint    `json:"user_id,omitempty"`
	AnonID    *string  `json:"anon_id,omitempty" validate:"omitempty,max=255"`
	SessionID *string  `json:"sessionId,omitempty" validate:"omitempty,max=255"`

	UserAgent string `json:"-"`
	IPAddress string `json:"-"`
}

// ServeAdResponse carries the served creative plus the impression token the
// player must present back to /impression/confirm.
type ServeAdResponse struct {
	Ad              ServedAd `json:"ad"`
	ImpressionToken string   `json:"impressionToken"`
	CostCents       int64    `json:"costCents"`
	ExpiresAt       string   `json:"expiresAt"`
}

// ServedAd is the creative payload handed to the player (spec §4.7).
type ServedAd struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	VideoURL     string   `json:"videoUrl"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	Categories   []string `json:"categories,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	CTALink      string   `json:"ctaLink,omitempty"`
}

// NoAdResponse is returned (with an HTTP 200 status) when no eligible
// candidate exists for the request.
type NoAdResponse struct {
	Reason string `json:"reason"`
}

// ConfirmMetadata carries optional player telemetry attached to a confirm
// event (spec §6).
type ConfirmMetadata struct {
	UserAgent     *string  `json:"userAgent,omitempty"`
	IPAddress     *string  `json:"ipAddress,omitempty"`
	ViewDuration  *int     `json:"viewDuration,omitempty" validate:"omitempty,min=0"`
	VideoProgress *float64 `json:"videoProgress,omitempty" validate:"omitempty,min=0,max=100"`
}

// ConfirmImpressionRequest is the body of POST /impression/confirm
// (spec §4.8/§6). Exactly one of UserID/AnonID may be present.
type ConfirmImpressionRequest struct {
	Token    string           `json:"token" validate:"required"`
	Event    string           `json:"event" validate:"required,oneof=served clicked completed skipped"`
	UserID   *uint            `json:"user_id,omitempty"`
	AnonID   *string          `json:"anon_id,omitempty" validate:"omitempty,max=255"`
	Metadata *ConfirmMetadata `json:"metadata,omitempty"`
}

// BillingDetails is attached to the confirm response only for the "served"
// event, the only event that mutates budget.
type BillingDetails struct {
	CostCents       int64 `json:"costCents"`
	RemainingBudget int64 `json:"remainingBudget"`
}

// ConfirmImpressionResponse is the body of a successful confirm.
type ConfirmImpressionResponse struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	BillingDetails *BillingDetails `json:"billingDetails,omitempty"`
}

// ImpressionDebugResponse backs the supplemental GET /impression/:token
// lookup used to inspect reservation state while integrating a player.
type ImpressionDebugResponse struct {
	UUID        string  `json:"uuid"`
	AdID        string  `json:"ad_id"`
	Status      string  `json:"status"`
	Action      string  `json:"action"`
	CostCents   int64   `json:"cost_cents"`
	VideoID     string  `json:"video_id"`
	ExpiresAt   string  `json:"expires_at"`
	ServedAt    *string `json:"served_at,omitempty"`
	ConfirmedAt *string `json:"confirmed_at,omitempty"`
}

package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/videostreampro/adcore/app/dto"
	"github.com/videostreampro/adcore/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateServeRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *dto.ServeAdRequest
		wantErr bool
	}{
		{"valid with user_id", &dto.ServeAdRequest{VideoID: "v1", UserID: uintPtr(1)}, false},
		{"valid with anon_id", &dto.ServeAdRequest{VideoID: "v1", AnonID: strPtr("a1")}, false},
		{"missing video id", &dto.ServeAdRequest{UserID: uintPtr(1)}, true},
		{"neither user_id nor anon_id", &dto.ServeAdRequest{VideoID: "v1"}, true},
		{"both user_id and anon_id", &dto.ServeAdRequest{VideoID: "v1", UserID: uintPtr(1), AnonID: strPtr("a1")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateServeRequest(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadCampaignsDedupesAndSkipsMissing(t *testing.T) {
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{
		1: {ID: 1},
	}}
	flow := &AdServerFlowImpl{campaignRepo: campaignRepo}

	ads := []*models.Ad{
		{ID: 1, CampaignID: 1},
		{ID: 2, CampaignID: 1},
		{ID: 3, CampaignID: 99},
	}

	campaigns, err := flow.loadCampaigns(context.Background(), ads)
	require.NoError(t, err)
	assert.Len(t, campaigns, 1)
	assert.Contains(t, campaigns, uint(1))
	assert.NotContains(t, campaigns, uint(99))
}

func TestToResponseFormatsServedAd(t *testing.T) {
	flow := &AdServerFlowImpl{}
	expires := time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC)
	ad := &models.Ad{
		Title:        "Spring Sale",
		Description:  "20% off",
		MediaURL:     "https://cdn.example.com/ad.mp4",
		ThumbnailURL: "https://cdn.example.com/thumb.jpg",
		ClickURL:     "https://example.com/sale",
		Categories:   []string{"retail"},
		Tags:         []string{"sale", "spring"},
	}
	impression := &models.Impression{
		Token:     "tok-123",
		CostCents: 25,
		ExpiresAt: expires,
	}

	resp := flow.toResponse(impression, ad)
	assert.Equal(t, "Spring Sale", resp.Ad.Title)
	assert.Equal(t, "https://cdn.example.com/ad.mp4", resp.Ad.VideoURL)
	assert.Equal(t, "tok-123", resp.ImpressionToken)
	assert.Equal(t, int64(25), resp.CostCents)
	assert.Equal(t, expires.Format(time.RFC3339), resp.ExpiresAt)
}

package businessflow

import (
	"testing"

	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/money"
	"github.com/stretchr/testify/assert"
)

func cents(v int64) *money.Cents {
	c := money.Cents(v)
	return &c
}

func TestTagOverlap(t *testing.T) {
	tests := []struct {
		name      string
		requested []string
		adTags    []string
		want      float64
	}{
		{"empty requested", nil, []string{"sports"}, 0},
		{"empty ad tags", []string{"sports"}, nil, 0},
		{"full overlap", []string{"sports", "news"}, []string{"SPORTS", "news"}, 1},
		{"partial overlap", []string{"sports", "news"}, []string{"sports", "finance"}, 1.0 / 3.0},
		{"no overlap", []string{"sports"}, []string{"finance"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tagOverlap(tt.requested, tt.adTags), 0.0001)
		})
	}
}

func TestCategoryMatch(t *testing.T) {
	sports := "Sports"
	assert.Equal(t, float64(0), categoryMatch(nil, []string{"sports"}))
	assert.Equal(t, float64(1), categoryMatch(&sports, []string{"sports", "news"}))
	news := "news"
	assert.Equal(t, float64(0), categoryMatch(&news, []string{"sports"}))
}

func TestBudgetFactor(t *testing.T) {
	t.Run("ad budget takes precedence", func(t *testing.T) {
		ad := &models.Ad{Budget: cents(1000), Spent: 400}
		campaign := &models.Campaign{Budget: cents(1_000_000)}
		assert.InDelta(t, 0.6, budgetFactor(ad, campaign), 0.0001)
	})
	t.Run("falls back to campaign budget", func(t *testing.T) {
		ad := &models.Ad{}
		campaign := &models.Campaign{Budget: cents(1000), Spent: 750}
		assert.InDelta(t, 0.25, budgetFactor(ad, campaign), 0.0001)
	})
	t.Run("unlimited scores zero", func(t *testing.T) {
		ad := &models.Ad{}
		campaign := &models.Campaign{}
		assert.Equal(t, float64(0), budgetFactor(ad, campaign))
	})
	t.Run("overspent ad scores zero, not negative", func(t *testing.T) {
		ad := &models.Ad{Budget: cents(100), Spent: 500}
		campaign := &models.Campaign{}
		assert.Equal(t, float64(0), budgetFactor(ad, campaign))
	})
	t.Run("ad budget of exactly zero falls back to campaign", func(t *testing.T) {
		ad := &models.Ad{Budget: cents(0)}
		campaign := &models.Campaign{Budget: cents(1000), Spent: 750}
		assert.InDelta(t, 0.25, budgetFactor(ad, campaign), 0.0001)
	})
}

func TestScoreWeightReweighting(t *testing.T) {
	weights := ScoringWeights{Tag: 0.35, Category: 0.25, Budget: 0.25, Bid: 0.15}
	ad := &models.Ad{Tags: []string{"sports"}, Categories: []string{"sports"}}
	campaign := &models.Campaign{}

	category := "sports"

	t.Run("category and tags both requested", func(t *testing.T) {
		got := score(weights, &category, []string{"sports"}, ad, campaign)
		want := weights.Tag*1 + weights.Category*1 + weights.Budget*0 + weights.Bid*bidAmountFactor
		assert.InDelta(t, want, got, 0.0001)
	})

	t.Run("category only folds tag weight in", func(t *testing.T) {
		got := score(weights, &category, nil, ad, campaign)
		want := (weights.Tag+weights.Category)*1 + weights.Budget*0 + weights.Bid*bidAmountFactor
		assert.InDelta(t, want, got, 0.0001)
	})

	t.Run("tags only folds category weight in", func(t *testing.T) {
		got := score(weights, nil, []string{"sports"}, ad, campaign)
		want := (weights.Tag+weights.Category)*1 + weights.Budget*0 + weights.Bid*bidAmountFactor
		assert.InDelta(t, want, got, 0.0001)
	})

	t.Run("neither signal scores on budget and bid alone", func(t *testing.T) {
		got := score(weights, nil, nil, ad, campaign)
		want := (weights.Budget*0 + weights.Bid*bidAmountFactor) / (weights.Budget + weights.Bid)
		assert.InDelta(t, want, got, 0.0001)
	})
}

func TestHasSufficientBudget(t *testing.T) {
	t.Run("ad budget governs when set", func(t *testing.T) {
		ad := &models.Ad{Budget: cents(100), Spent: 96}
		campaign := &models.Campaign{Budget: cents(1_000_000)}
		assert.True(t, hasSufficientBudget(ad, campaign, 4))
		assert.False(t, hasSufficientBudget(ad, campaign, 5))
	})
	t.Run("falls back to campaign budget", func(t *testing.T) {
		ad := &models.Ad{}
		campaign := &models.Campaign{Budget: cents(10), Spent: 10}
		assert.False(t, hasSufficientBudget(ad, campaign, 1))
	})
	t.Run("uncapped always sufficient", func(t *testing.T) {
		ad := &models.Ad{}
		campaign := &models.Campaign{}
		assert.True(t, hasSufficientBudget(ad, campaign, 1_000_000))
	})
	t.Run("ad budget of exactly zero falls back to campaign", func(t *testing.T) {
		ad := &models.Ad{Budget: cents(0)}
		campaign := &models.Campaign{Budget: cents(10), Spent: 10}
		assert.False(t, hasSufficientBudget(ad, campaign, 1))
	})
}

func TestRankCandidatesFiltersAndSorts(t *testing.T) {
	weights := ScoringWeights{Tag: 0.35, Category: 0.25, Budget: 0.25, Bid: 0.15}
	campaign := &models.Campaign{ID: 1}
	campaigns := map[uint]*models.Campaign{1: campaign}

	goodMatch := &models.Ad{ID: 1, CampaignID: 1, Tags: []string{"sports"}}
	poorMatch := &models.Ad{ID: 2, CampaignID: 1, Tags: []string{"finance"}}
	overBudget := &models.Ad{ID: 3, CampaignID: 1, Budget: cents(10), Spent: 10}

	ads := []*models.Ad{poorMatch, goodMatch, overBudget}
	ranked := rankCandidates(weights, 0.1, 5, nil, []string{"sports"}, ads, campaigns)

	if assert.Len(t, ranked, 1) {
		assert.Equal(t, uint(1), ranked[0].ad.ID)
	}
}

func TestRankCandidatesSkipsMissingCampaign(t *testing.T) {
	weights := ScoringWeights{Tag: 0.35, Category: 0.25, Budget: 0.25, Bid: 0.15}
	orphan := &models.Ad{ID: 1, CampaignID: 99, Tags: []string{"sports"}}
	ranked := rankCandidates(weights, 0, 5, nil, []string{"sports"}, []*models.Ad{orphan}, map[uint]*models.Campaign{})
	assert.Empty(t, ranked)
}

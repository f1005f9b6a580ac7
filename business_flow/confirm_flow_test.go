package businessflow

import (
	"context"
	"testing"

	"github.com/videostreampro/adcore/app/dto"
	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint) *uint    { return &v }
func strPtr(v string) *string { return &v }

func TestReconcileViewer(t *testing.T) {
	t.Run("user_id always wins and clears anon_id", func(t *testing.T) {
		impression := &models.Impression{AnonID: strPtr("anon-1")}
		reconcileViewer(impression, uintPtr(7), nil)
		require.NotNil(t, impression.ViewerID)
		assert.Equal(t, uint(7), *impression.ViewerID)
		assert.Nil(t, impression.AnonID)
	})

	t.Run("anon_id sets only when no viewer is set yet", func(t *testing.T) {
		impression := &models.Impression{}
		reconcileViewer(impression, nil, strPtr("anon-1"))
		require.NotNil(t, impression.AnonID)
		assert.Equal(t, "anon-1", *impression.AnonID)
	})

	t.Run("anon_id is ignored once a viewer is already attached", func(t *testing.T) {
		impression := &models.Impression{ViewerID: uintPtr(3)}
		reconcileViewer(impression, nil, strPtr("anon-1"))
		assert.Nil(t, impression.AnonID)
		assert.Equal(t, uint(3), *impression.ViewerID)
	})

	t.Run("neither id given leaves the impression untouched", func(t *testing.T) {
		impression := &models.Impression{ViewerID: uintPtr(3)}
		reconcileViewer(impression, nil, nil)
		assert.Equal(t, uint(3), *impression.ViewerID)
		assert.Nil(t, impression.AnonID)
	})
}

func TestBillPrefersAdBudgetOverCampaign(t *testing.T) {
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{1: {ID: 1, Budget: cents(10000)}}}
	flow := &ImpressionFlowImpl{adRepo: &fakeAdRepo{}, campaignRepo: campaignRepo}

	ad := &models.Ad{ID: 1, CampaignID: 1, Budget: cents(500), Spent: 100}
	impression := &models.Impression{AdID: 1, CostCents: 50}

	details, err := billWithFixedLookups(flow, impression, ad, campaignRepo.campaigns[1])
	require.NoError(t, err)
	assert.Equal(t, int64(50), details.CostCents)
	assert.Equal(t, int64(350), details.RemainingBudget)
	assert.Equal(t, money.Cents(150), ad.Spent)
	assert.Equal(t, money.Cents(0), campaignRepo.campaigns[1].Spent, "ad has its own budget, so the campaign's spend must not move")
}

func TestBillFallsBackToCampaignBudget(t *testing.T) {
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{1: {ID: 1, Budget: cents(1000), Spent: 900}}}
	ad := &models.Ad{ID: 1, CampaignID: 1}
	impression := &models.Impression{AdID: 1, CostCents: 50}

	flow := &ImpressionFlowImpl{adRepo: &fakeAdRepo{}, campaignRepo: campaignRepo}
	details, err := billWithFixedLookups(flow, impression, ad, campaignRepo.campaigns[1])
	require.NoError(t, err)
	assert.Equal(t, int64(50), details.RemainingBudget)
	assert.Equal(t, money.Cents(950), campaignRepo.campaigns[1].Spent)
}

func TestBillTreatsZeroAdBudgetAsUnset(t *testing.T) {
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{1: {ID: 1, Budget: cents(1000), Spent: 900}}}
	ad := &models.Ad{ID: 1, CampaignID: 1, Budget: cents(0)}
	impression := &models.Impression{AdID: 1, CostCents: 50}

	flow := &ImpressionFlowImpl{adRepo: &fakeAdRepo{}, campaignRepo: campaignRepo}
	details, err := billWithFixedLookups(flow, impression, ad, campaignRepo.campaigns[1])
	require.NoError(t, err)
	assert.Equal(t, int64(50), details.RemainingBudget)
	assert.Equal(t, money.Cents(950), campaignRepo.campaigns[1].Spent, "budget of exactly 0 falls back to the campaign, not a zero cap")
	assert.Equal(t, money.Cents(0), ad.Spent)
}

func TestBillRejectsOverspendOnAdBudget(t *testing.T) {
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{1: {ID: 1}}}
	ad := &models.Ad{ID: 1, CampaignID: 1, Budget: cents(100), Spent: 80}
	impression := &models.Impression{AdID: 1, CostCents: 50}

	flow := &ImpressionFlowImpl{adRepo: &fakeAdRepo{}, campaignRepo: campaignRepo}
	_, err := billWithFixedLookups(flow, impression, ad, campaignRepo.campaigns[1])
	assert.ErrorIs(t, err, ErrBudgetExceeded)
}

func TestBillRejectsOverspendOnCampaignBudget(t *testing.T) {
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{1: {ID: 1, Budget: cents(100), Spent: 80}}}
	ad := &models.Ad{ID: 1, CampaignID: 1}
	impression := &models.Impression{AdID: 1, CostCents: 50}

	flow := &ImpressionFlowImpl{adRepo: &fakeAdRepo{}, campaignRepo: campaignRepo}
	_, err := billWithFixedLookups(flow, impression, ad, campaignRepo.campaigns[1])
	assert.ErrorIs(t, err, ErrBudgetExceeded)
}

func TestBillUncappedRecordsSpendWithoutLimit(t *testing.T) {
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{1: {ID: 1}}}
	ad := &models.Ad{ID: 1, CampaignID: 1}
	impression := &models.Impression{AdID: 1, CostCents: 50}

	flow := &ImpressionFlowImpl{adRepo: &fakeAdRepo{}, campaignRepo: campaignRepo}
	details, err := billWithFixedLookups(flow, impression, ad, campaignRepo.campaigns[1])
	require.NoError(t, err)
	assert.Equal(t, int64(money.Unlimited), details.RemainingBudget)
	assert.Equal(t, money.Cents(50), campaignRepo.campaigns[1].Spent)
}

// billWithFixedLookups drives ImpressionFlowImpl.bill against a
// pre-populated ad/campaign pair without needing ByIDForUpdate locking
// semantics, which only matter against a real transactional database.
func billWithFixedLookups(flow *ImpressionFlowImpl, impression *models.Impression, ad *models.Ad, campaign *models.Campaign) (*dto.BillingDetails, error) {
	adRepo := flow.adRepo.(*fakeAdRepo)
	campaignRepo := flow.campaignRepo.(*fakeCampaignRepo)
	adRepo.byID = ad
	campaignRepo.campaigns[campaign.ID] = campaign
	return flow.bill(context.Background(), impression)
}

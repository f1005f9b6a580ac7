package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCampaignRepo stubs the repository.CampaignRepository interface,
// serving in-memory campaigns keyed by ID.
type fakeCampaignRepo struct {
	campaigns map[uint]*models.Campaign
}

func (f *fakeCampaignRepo) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	return nil, nil
}
func (f *fakeCampaignRepo) Save(ctx context.Context, entity *models.Campaign) error { return nil }
func (f *fakeCampaignRepo) SaveBatch(ctx context.Context, entities []*models.Campaign) error {
	return nil
}
func (f *fakeCampaignRepo) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	return 0, nil
}
func (f *fakeCampaignRepo) Exists(ctx context.Context, filter models.CampaignFilter) (bool, error) {
	return false, nil
}
func (f *fakeCampaignRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	return f.campaigns[id], nil
}
func (f *fakeCampaignRepo) ByUUID(ctx context.Context, uuid string) (*models.Campaign, error) {
	for _, c := range f.campaigns {
		if c.UUID.String() == uuid {
			return c, nil
		}
	}
	return nil, nil
}
func (f *fakeCampaignRepo) ByTeamID(ctx context.Context, teamID uint, limit, offset int) ([]*models.Campaign, error) {
	return nil, nil
}
func (f *fakeCampaignRepo) ByStatus(ctx context.Context, status models.CampaignStatus, limit, offset int) ([]*models.Campaign, error) {
	return nil, nil
}
func (f *fakeCampaignRepo) Update(ctx context.Context, campaign *models.Campaign) error { return nil }
func (f *fakeCampaignRepo) UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error {
	return nil
}
func (f *fakeCampaignRepo) CountByTeamID(ctx context.Context, teamID uint) (int, error) {
	return 0, nil
}
func (f *fakeCampaignRepo) ActiveWithinWindow(ctx context.Context, now time.Time, limit, offset int) ([]*models.Campaign, error) {
	return nil, nil
}
func (f *fakeCampaignRepo) ByIDForUpdate(ctx context.Context, id uint) (*models.Campaign, error) {
	return f.campaigns[id], nil
}
func (f *fakeCampaignRepo) Delete(ctx context.Context, id uint) error { return nil }

// fakeAdRepo stubs repository.AdRepository, serving a fixed set of ads per
// campaign.
type fakeAdRepo struct {
	byCampaign   map[uint][]*models.Ad
	byUUID       map[string]*models.Ad
	byID         *models.Ad
	callsToCount int
}

func (f *fakeAdRepo) ByFilter(ctx context.Context, filter models.AdFilter, orderBy string, limit, offset int) ([]*models.Ad, error) {
	return nil, nil
}
func (f *fakeAdRepo) Save(ctx context.Context, entity *models.Ad) error { return nil }
func (f *fakeAdRepo) SaveBatch(ctx context.Context, entities []*models.Ad) error { return nil }
func (f *fakeAdRepo) Count(ctx context.Context, filter models.AdFilter) (int64, error) {
	return 0, nil
}
func (f *fakeAdRepo) Exists(ctx context.Context, filter models.AdFilter) (bool, error) {
	return false, nil
}
func (f *fakeAdRepo) ByID(ctx context.Context, id uint) (*models.Ad, error) { return f.byID, nil }
func (f *fakeAdRepo) ByUUID(ctx context.Context, uuid string) (*models.Ad, error) {
	return f.byUUID[uuid], nil
}
func (f *fakeAdRepo) ByCampaignID(ctx context.Context, campaignID uint, limit, offset int) ([]*models.Ad, error) {
	f.callsToCount++
	return f.byCampaign[campaignID], nil
}
func (f *fakeAdRepo) Update(ctx context.Context, ad *models.Ad) error { return nil }
func (f *fakeAdRepo) UpdateStatus(ctx context.Context, id uint, status models.AdStatus) error {
	return nil
}
func (f *fakeAdRepo) EligibleCandidates(ctx context.Context, now time.Time, category *string, tags []string, limit int) ([]*models.Ad, error) {
	return nil, nil
}
func (f *fakeAdRepo) ByIDForUpdate(ctx context.Context, id uint) (*models.Ad, error) {
	return f.byID, nil
}
func (f *fakeAdRepo) Delete(ctx context.Context, id uint) error { return nil }

func TestValidateAdBudgetUnlimitedCampaign(t *testing.T) {
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{1: {ID: 1}}}
	adRepo := &fakeAdRepo{}

	result, err := validateAdBudget(context.Background(), campaignRepo, adRepo, nil, 1, nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, money.Unlimited, result.RemainingBudget)
	assert.Equal(t, 0, adRepo.callsToCount, "unlimited campaigns should never scan ads")
}

func TestValidateAdBudgetMissingCampaign(t *testing.T) {
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{}}
	adRepo := &fakeAdRepo{}

	_, err := validateAdBudget(context.Background(), campaignRepo, adRepo, nil, 99, nil)
	assert.ErrorIs(t, err, ErrCampaignNotFound)
}

func TestValidateAdBudgetWithinRemaining(t *testing.T) {
	budget := cents(10000)
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{1: {ID: 1, Budget: budget}}}
	adRepo := &fakeAdRepo{byCampaign: map[uint][]*models.Ad{
		1: {{Budget: cents(3000)}, {Budget: cents(2000)}, {Budget: nil}},
	}}

	requested := int64(4000)
	result, err := validateAdBudget(context.Background(), campaignRepo, adRepo, nil, 1, &requested)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, money.Cents(5000), result.AllocatedBudget)
	assert.Equal(t, money.Cents(5000), result.RemainingBudget)
}

func TestValidateAdBudgetExceedsRemaining(t *testing.T) {
	budget := cents(10000)
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{1: {ID: 1, Budget: budget}}}
	adRepo := &fakeAdRepo{byCampaign: map[uint][]*models.Ad{
		1: {{Budget: cents(9000)}},
	}}

	requested := int64(2000)
	result, err := validateAdBudget(context.Background(), campaignRepo, adRepo, nil, 1, &requested)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, money.Cents(1000), result.RemainingBudget)
}

func TestValidateAdBudgetOverspentClampsToZero(t *testing.T) {
	budget := cents(1000)
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{1: {ID: 1, Budget: budget}}}
	adRepo := &fakeAdRepo{byCampaign: map[uint][]*models.Ad{
		1: {{Budget: cents(5000)}},
	}}

	result, err := validateAdBudget(context.Background(), campaignRepo, adRepo, nil, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, money.Cents(0), result.RemainingBudget)
	assert.True(t, result.Valid, "nil requestedBudget always validates once the campaign itself is known")
}

func TestAllocatedBudgetWithoutCacheRecomputesEveryCall(t *testing.T) {
	adRepo := &fakeAdRepo{byCampaign: map[uint][]*models.Ad{
		1: {{Budget: cents(100)}, {Budget: cents(200)}},
	}}

	first, err := allocatedBudget(context.Background(), adRepo, nil, 1)
	require.NoError(t, err)
	second, err := allocatedBudget(context.Background(), adRepo, nil, 1)
	require.NoError(t, err)

	assert.Equal(t, money.Cents(300), first)
	assert.Equal(t, money.Cents(300), second)
	assert.Equal(t, 2, adRepo.callsToCount, "no cache means every call re-scans the ads")
}

func TestInvalidateAllocatedBudgetNilCacheIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		invalidateAllocatedBudget(context.Background(), nil, 1)
	})
}

func TestAllocatedBudgetCacheKey(t *testing.T) {
	assert.Equal(t, "campaign:42:allocated", allocatedBudgetCacheKey(42))
}

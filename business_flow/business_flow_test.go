package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/money"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTeamRepo struct {
	teams map[uint]*models.Team
}

func (f *fakeTeamRepo) ByFilter(ctx context.Context, filter models.TeamFilter, orderBy string, limit, offset int) ([]*models.Team, error) {
	return nil, nil
}
func (f *fakeTeamRepo) Save(ctx context.Context, entity *models.Team) error      { return nil }
func (f *fakeTeamRepo) SaveBatch(ctx context.Context, entities []*models.Team) error { return nil }
func (f *fakeTeamRepo) Count(ctx context.Context, filter models.TeamFilter) (int64, error) {
	return 0, nil
}
func (f *fakeTeamRepo) Exists(ctx context.Context, filter models.TeamFilter) (bool, error) {
	return false, nil
}
func (f *fakeTeamRepo) ByID(ctx context.Context, id uint) (*models.Team, error) {
	return f.teams[id], nil
}
func (f *fakeTeamRepo) ByUUID(ctx context.Context, uuid string) (*models.Team, error) { return nil, nil }

type fakeWalletRepo struct {
	byOwner map[uint]*models.Wallet
	saved   []*models.Wallet
}

func (f *fakeWalletRepo) ByFilter(ctx context.Context, filter models.WalletFilter, orderBy string, limit, offset int) ([]*models.Wallet, error) {
	return nil, nil
}
func (f *fakeWalletRepo) Save(ctx context.Context, entity *models.Wallet) error {
	entity.ID = uint(len(f.saved) + 1)
	f.saved = append(f.saved, entity)
	if f.byOwner == nil {
		f.byOwner = map[uint]*models.Wallet{}
	}
	f.byOwner[entity.OwnerID] = entity
	return nil
}
func (f *fakeWalletRepo) SaveBatch(ctx context.Context, entities []*models.Wallet) error { return nil }
func (f *fakeWalletRepo) Count(ctx context.Context, filter models.WalletFilter) (int64, error) {
	return 0, nil
}
func (f *fakeWalletRepo) Exists(ctx context.Context, filter models.WalletFilter) (bool, error) {
	return false, nil
}
func (f *fakeWalletRepo) ByID(ctx context.Context, id uint) (*models.Wallet, error) { return nil, nil }
func (f *fakeWalletRepo) ByUUID(ctx context.Context, uuid string) (*models.Wallet, error) {
	return nil, nil
}
func (f *fakeWalletRepo) ByOwnerID(ctx context.Context, ownerID uint) (*models.Wallet, error) {
	return f.byOwner[ownerID], nil
}
func (f *fakeWalletRepo) ByOwnerIDForUpdate(ctx context.Context, ownerID uint) (*models.Wallet, error) {
	return f.byOwner[ownerID], nil
}
func (f *fakeWalletRepo) Credit(ctx context.Context, walletID uint, amount money.Cents, txType models.TransactionType, campaignID, adID *uint, description string) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}
func (f *fakeWalletRepo) Debit(ctx context.Context, walletID uint, amount money.Cents, txType models.TransactionType, campaignID, adID *uint, description string) (*models.Transaction, error) {
	return &models.Transaction{}, nil
}

func TestGetCampaignOwnershipCheck(t *testing.T) {
	id := uuid.New()
	repo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{
		1: {ID: 1, UUID: id, TeamID: 7},
	}}

	t.Run("found and owned", func(t *testing.T) {
		c, err := getCampaign(context.Background(), repo, id.String(), 7)
		require.NoError(t, err)
		assert.Equal(t, uint(1), c.ID)
	})
	t.Run("not found", func(t *testing.T) {
		_, err := getCampaign(context.Background(), repo, uuid.New().String(), 7)
		assert.ErrorIs(t, err, ErrCampaignNotFound)
	})
	t.Run("owned by a different team", func(t *testing.T) {
		_, err := getCampaign(context.Background(), repo, id.String(), 8)
		assert.ErrorIs(t, err, ErrCampaignAccessDenied)
	})
}

func TestGetAdOwnershipCheck(t *testing.T) {
	adID := uuid.New()
	campaignRepo := &fakeCampaignRepo{campaigns: map[uint]*models.Campaign{1: {ID: 1, TeamID: 7}}}
	adRepo := &fakeAdRepo{byUUID: map[string]*models.Ad{
		adID.String(): {ID: 1, UUID: adID, CampaignID: 1},
	}}

	t.Run("found and owned", func(t *testing.T) {
		ad, err := getAd(context.Background(), adRepo, campaignRepo, adID.String(), 7)
		require.NoError(t, err)
		assert.Equal(t, uint(1), ad.ID)
	})
	t.Run("not found", func(t *testing.T) {
		_, err := getAd(context.Background(), adRepo, campaignRepo, uuid.New().String(), 7)
		assert.ErrorIs(t, err, ErrAdNotFound)
	})
	t.Run("parent campaign owned by a different team", func(t *testing.T) {
		_, err := getAd(context.Background(), adRepo, campaignRepo, adID.String(), 99)
		assert.ErrorIs(t, err, ErrAdAccessDenied)
	})
}

func TestCanUpdateCampaign(t *testing.T) {
	assert.True(t, canUpdateCampaign(models.CampaignStatusDraft))
	assert.True(t, canUpdateCampaign(models.CampaignStatusActive))
	assert.True(t, canUpdateCampaign(models.CampaignStatusPaused))
	assert.False(t, canUpdateCampaign(models.CampaignStatusCompleted))
	assert.False(t, canUpdateCampaign(models.CampaignStatusCancelled))
}

func TestCanUpdateAd(t *testing.T) {
	assert.True(t, canUpdateAd(models.AdStatusDraft))
	assert.True(t, canUpdateAd(models.AdStatusUnderReview))
	assert.True(t, canUpdateAd(models.AdStatusActive))
	assert.True(t, canUpdateAd(models.AdStatusPaused))
	assert.False(t, canUpdateAd(models.AdStatusRejected))
}

func TestGetOrCreateWalletCreatesOnFirstUse(t *testing.T) {
	walletRepo := &fakeWalletRepo{}

	wallet, err := getOrCreateWallet(context.Background(), walletRepo, 42)
	require.NoError(t, err)
	assert.Equal(t, uint(42), wallet.OwnerID)
	assert.Len(t, walletRepo.saved, 1)

	again, err := getOrCreateWallet(context.Background(), walletRepo, 42)
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, again.ID)
	assert.Len(t, walletRepo.saved, 1, "second call should reuse the existing wallet, not create another")
}

func TestTeamOwnerID(t *testing.T) {
	teamRepo := &fakeTeamRepo{teams: map[uint]*models.Team{5: {ID: 5, OwnerUserID: 99}}}

	ownerID, err := teamOwnerID(context.Background(), teamRepo, 5)
	require.NoError(t, err)
	assert.Equal(t, uint(99), ownerID)

	_, err = teamOwnerID(context.Background(), teamRepo, 404)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestValidateCampaignDates(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)
	beforeFuture := now.Add(24 * time.Hour)

	tests := []struct {
		name    string
		start   *time.Time
		end     *time.Time
		wantErr error
	}{
		{"no dates given", nil, nil, nil},
		{"start in the past", &past, &future, ErrStartDateInPast},
		{"end before start", &future, &beforeFuture, ErrStartDateAfterEndDate},
		{"valid window", &future, ptrTime(future.Add(72 * time.Hour)), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCampaignDates(tt.start, tt.end, now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

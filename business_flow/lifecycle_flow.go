// Package businessflow contains the core business logic and use cases for
// ad decisioning, impression billing, and campaign/ad lifecycle management.
package businessflow

import (
	"context"
	"errors"
	"time"

	"github.com/videostreampro/adcore/app/dto"
	"github.com/videostreampro/adcore/internal/cache"
	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/money"
	"github.com/videostreampro/adcore/repository"
	"gorm.io/gorm"
)

// CampaignFlow manages campaign creation, update, and deletion, moving
// budget through the team owner's wallet (spec §4.9).
type CampaignFlow interface {
	CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*dto.CreateCampaignResponse, error)
	UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest) (*dto.UpdateCampaignResponse, error)
	DeleteCampaign(ctx context.Context, req *dto.DeleteCampaignRequest) (*dto.DeleteCampaignResponse, error)
}

// CampaignFlowImpl implements CampaignFlow. Grounded on the teacher's
// CampaignFlowImpl (struct of repositories + db, WithTransaction-wrapped
// mutations, BusinessError-wrapped failures).
type CampaignFlowImpl struct {
	campaignRepo repository.CampaignRepository
	teamRepo     repository.TeamRepository
	walletRepo   repository.WalletRepository
	db           *gorm.DB
	budgetCache  *cache.TTLCache
}

// NewCampaignFlow creates a new campaign lifecycle flow instance.
// budgetCache may be nil; when set, a campaign delete drops its memoized
// ad-allocation sum along with the ads it cascades away.
func NewCampaignFlow(campaignRepo repository.CampaignRepository, teamRepo repository.TeamRepository, walletRepo repository.WalletRepository, db *gorm.DB, budgetCache *cache.TTLCache) CampaignFlow {
	return &CampaignFlowImpl{campaignRepo: campaignRepo, teamRepo: teamRepo, walletRepo: walletRepo, db: db, budgetCache: budgetCache}
}

// CreateCampaign inserts the campaign row, then debits the team owner's
// wallet for its budget allocation; a funding failure rolls the campaign
// back rather than leaving an unfunded campaign on the books (spec §4.9).
func (s *CampaignFlowImpl) CreateCampaign(ctx context.Context, req *dto.CreateCampaignRequest) (*dto.CreateCampaignResponse, error) {
	if req.Title == "" {
		return nil, ErrCampaignTitleRequired
	}
	if err := validateCampaignDates(req.StartDate, req.EndDate, time.Now().UTC()); err != nil {
		return nil, err
	}

	ownerID, err := teamOwnerID(ctx, s.teamRepo, req.TeamID)
	if err != nil {
		return nil, NewBusinessError("TEAM_LOOKUP_FAILED", "failed to resolve team owner", err)
	}

	var campaign *models.Campaign
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		campaign = &models.Campaign{
			TeamID:    req.TeamID,
			Title:     req.Title,
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
		}
		if req.Budget != nil {
			b := money.Cents(*req.Budget)
			campaign.Budget = &b
		}
		if err := s.campaignRepo.Save(txCtx, campaign); err != nil {
			return err
		}

		if req.Budget != nil && *req.Budget > 0 {
			wallet, err := getOrCreateWallet(txCtx, s.walletRepo, ownerID)
			if err != nil {
				return err
			}
			_, err = s.walletRepo.Debit(txCtx, wallet.ID, money.Cents(*req.Budget), models.TransactionTypeDebit, &campaign.ID, nil, "campaign budget allocation")
			if err != nil {
				return translateWalletErr(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "campaign creation failed", err)
	}

	return &dto.CreateCampaignResponse{
		Message:   "campaign created",
		UUID:      campaign.UUID.String(),
		Status:    string(campaign.Status),
		CreatedAt: campaign.CreatedAt.Format(time.RFC3339),
	}, nil
}

// UpdateCampaign applies field edits and, when the budget changes, moves
// the delta through the owner's wallet: a raise debits, a cut refunds
// (spec §4.9).
func (s *CampaignFlowImpl) UpdateCampaign(ctx context.Context, req *dto.UpdateCampaignRequest) (*dto.UpdateCampaignResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.TeamID)
	if err != nil {
		return nil, err
	}
	if !canUpdateCampaign(campaign.Status) {
		return nil, ErrCampaignUpdateNotAllowed
	}

	startDate, endDate := campaign.StartDate, campaign.EndDate
	if req.StartDate != nil {
		startDate = req.StartDate
	}
	if req.EndDate != nil {
		endDate = req.EndDate
	}
	if err := validateCampaignDates(startDate, endDate, time.Now().UTC()); err != nil {
		return nil, err
	}

	ownerID, err := teamOwnerID(ctx, s.teamRepo, req.TeamID)
	if err != nil {
		return nil, NewBusinessError("TEAM_LOOKUP_FAILED", "failed to resolve team owner", err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if req.Title != nil {
			campaign.Title = *req.Title
		}
		campaign.StartDate = startDate
		campaign.EndDate = endDate
		if req.Status != nil {
			newStatus := models.CampaignStatus(*req.Status)
			if !campaign.CanTransitionTo(newStatus) {
				return ErrInvalidStatusTransition
			}
			campaign.Status = newStatus
		}

		if req.Budget != nil {
			var oldBudget money.Cents
			if campaign.Budget != nil {
				oldBudget = *campaign.Budget
			}
			newBudget := money.Cents(*req.Budget)
			delta := newBudget - oldBudget

			if delta > 0 {
				wallet, err := getOrCreateWallet(txCtx, s.walletRepo, ownerID)
				if err != nil {
					return err
				}
				if _, err := s.walletRepo.Debit(txCtx, wallet.ID, delta, models.TransactionTypeDebit, &campaign.ID, nil, "campaign budget increase"); err != nil {
					return translateWalletErr(err)
				}
			} else if delta < 0 {
				wallet, err := getOrCreateWallet(txCtx, s.walletRepo, ownerID)
				if err != nil {
					return err
				}
				if _, err := s.walletRepo.Credit(txCtx, wallet.ID, -delta, models.TransactionTypeCredit, &campaign.ID, nil, "campaign budget decrease refund"); err != nil {
					return err
				}
			}
			campaign.Budget = &newBudget
		}

		return s.campaignRepo.Update(txCtx, &campaign)
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "campaign update failed", err)
	}

	var budgetOut *int64
	if campaign.Budget != nil {
		v := int64(*campaign.Budget)
		budgetOut = &v
	}
	return &dto.UpdateCampaignResponse{
		Message:   "campaign updated",
		UUID:      campaign.UUID.String(),
		Status:    string(campaign.Status),
		Budget:    budgetOut,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// DeleteCampaign hard-deletes the campaign (CampaignRepository.Delete also
// deletes its ads and their impressions, with explicit statements rather
// than a database cascade) and refunds budget-spent to the
// owner's wallet (spec §4.9).
func (s *CampaignFlowImpl) DeleteCampaign(ctx context.Context, req *dto.DeleteCampaignRequest) (*dto.DeleteCampaignResponse, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.TeamID)
	if err != nil {
		return nil, err
	}

	ownerID, err := teamOwnerID(ctx, s.teamRepo, req.TeamID)
	if err != nil {
		return nil, NewBusinessError("TEAM_LOOKUP_FAILED", "failed to resolve team owner", err)
	}

	var refund money.Cents
	if campaign.Budget != nil {
		refund = *campaign.Budget - campaign.Spent
		if refund < 0 {
			refund = 0
		}
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.campaignRepo.Delete(txCtx, campaign.ID); err != nil {
			return err
		}
		if refund > 0 {
			wallet, err := getOrCreateWallet(txCtx, s.walletRepo, ownerID)
			if err != nil {
				return err
			}
			if _, err := s.walletRepo.Credit(txCtx, wallet.ID, refund, models.TransactionTypeCredit, &campaign.ID, nil, "campaign deletion refund"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_DELETE_FAILED", "campaign deletion failed", err)
	}
	invalidateAllocatedBudget(ctx, s.budgetCache, campaign.ID)

	return &dto.DeleteCampaignResponse{
		Message:     "campaign deleted",
		RefundCents: int64(refund),
	}, nil
}

// translateWalletErr maps money's ledger-level ErrInsufficientFunds onto the
// business-layer sentinel of the same name, so handler error-mapping
// (which matches on ErrInsufficientFunds via errors.Is) sees it through the
// BusinessError unwrap chain. Any other wallet error passes through
// unchanged.
func translateWalletErr(err error) error {
	if errors.Is(err, money.ErrInsufficientFunds) {
		return ErrInsufficientFunds
	}
	return err
}

// validateCampaignDates enforces spec §4.9: the start date cannot be in
// the past at creation/update time, and the end date must follow it.
func validateCampaignDates(start, end *time.Time, now time.Time) error {
	if start != nil && start.Before(now.Truncate(24*time.Hour)) {
		return ErrStartDateInPast
	}
	if start != nil && end != nil && !end.After(*start) {
		return ErrStartDateAfterEndDate
	}
	return nil
}

// AdFlow manages ad creative creation, update, and deletion, keeping the
// parent campaign's allocated spend in sync (spec §4.9).
type AdFlow interface {
	CreateAd(ctx context.Context, req *dto.CreateAdRequest) (*dto.CreateAdResponse, error)
	UpdateAd(ctx context.Context, req *dto.UpdateAdRequest) (*dto.UpdateAdResponse, error)
	DeleteAd(ctx context.Context, req *dto.DeleteAdRequest) (*dto.DeleteAdResponse, error)
}

// AdFlowImpl implements AdFlow.
type AdFlowImpl struct {
	adRepo       repository.AdRepository
	campaignRepo repository.CampaignRepository
	db           *gorm.DB
	budgetCache  *cache.TTLCache
}

// NewAdFlow creates a new ad lifecycle flow instance. budgetCache may be
// nil, in which case validateAdBudget recomputes the allocated-budget sum
// on every call instead of memoizing it.
func NewAdFlow(adRepo repository.AdRepository, campaignRepo repository.CampaignRepository, db *gorm.DB, budgetCache *cache.TTLCache) AdFlow {
	return &AdFlowImpl{adRepo: adRepo, campaignRepo: campaignRepo, db: db, budgetCache: budgetCache}
}

// CreateAd validates the requested budget against the campaign's remaining
// allocation, inserts the ad, and books the requested budget as allocated
// campaign spend; a failed allocation rolls the ad creation back
// (spec §4.4/§4.9).
func (s *AdFlowImpl) CreateAd(ctx context.Context, req *dto.CreateAdRequest) (*dto.CreateAdResponse, error) {
	if req.Title == "" {
		return nil, ErrAdTitleRequired
	}

	var ad *models.Ad
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		campaign, err := getCampaign(txCtx, s.campaignRepo, req.CampaignUUID, req.TeamID)
		if err != nil {
			return err
		}

		var requested money.Cents
		if req.Budget != nil {
			requested = money.Cents(*req.Budget)
		}
		result, err := validateAdBudget(txCtx, s.campaignRepo, s.adRepo, s.budgetCache, campaign.ID, req.Budget)
		if err != nil {
			return err
		}
		if !result.Valid {
			return ErrInsufficientBudget
		}

		ad = &models.Ad{
			CampaignID:   campaign.ID,
			Title:        req.Title,
			Description:  req.Description,
			BidCents:     money.Cents(req.BidCents),
			Categories:   req.Categories,
			Tags:         req.Tags,
			MediaURL:     req.MediaURL,
			ThumbnailURL: req.ThumbnailURL,
			ClickURL:     req.ClickURL,
		}
		if req.Budget != nil {
			ad.Budget = &requested
		}
		if err := s.adRepo.Save(txCtx, ad); err != nil {
			return err
		}

		if requested > 0 {
			campaign.Spent += requested
			if err := s.campaignRepo.Update(txCtx, &campaign); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("AD_CREATION_FAILED", "ad creation failed", err)
	}
	invalidateAllocatedBudget(ctx, s.budgetCache, ad.CampaignID)

	return &dto.CreateAdResponse{
		Message:   "ad created",
		UUID:      ad.UUID.String(),
		Status:    string(ad.Status),
		CreatedAt: ad.CreatedAt.Format(time.RFC3339),
	}, nil
}

// UpdateAd re-validates a changed budget against the campaign's remaining
// allocation (net of the ad's own prior allocation) and adjusts the
// campaign's booked spend by the difference (spec §4.9).
func (s *AdFlowImpl) UpdateAd(ctx context.Context, req *dto.UpdateAdRequest) (*dto.UpdateAdResponse, error) {
	ad, err := getAd(ctx, s.adRepo, s.campaignRepo, req.UUID, req.TeamID)
	if err != nil {
		return nil, err
	}
	if !canUpdateAd(ad.Status) {
		return nil, ErrAdUpdateNotAllowed
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		campaign, err := s.campaignRepo.ByID(txCtx, ad.CampaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return ErrCampaignNotFound
		}

		if req.Budget != nil {
			var oldBudget money.Cents
			if ad.Budget != nil {
				oldBudget = *ad.Budget
			}
			newBudget := money.Cents(*req.Budget)

			// Exclude the ad's own prior allocation before re-validating,
			// since it's already booked into campaign.Spent.
			campaignWithoutOld := *campaign
			campaignWithoutOld.Spent -= oldBudget
			remaining := campaignWithoutOld.RemainingBudget()
			if remaining != money.Unlimited && newBudget > remaining {
				return ErrInsufficientBudget
			}

			campaign.Spent = campaign.Spent - oldBudget + newBudget
			if err := s.campaignRepo.Update(txCtx, campaign); err != nil {
				return err
			}
			ad.Budget = &newBudget
		}
		if req.Title != nil {
			ad.Title = *req.Title
		}
		if req.Description != nil {
			ad.Description = *req.Description
		}
		if req.BidCents != nil {
			ad.BidCents = money.Cents(*req.BidCents)
		}
		if req.Categories != nil {
			ad.Categories = req.Categories
		}
		if req.Tags != nil {
			ad.Tags = req.Tags
		}
		if req.Status != nil {
			newStatus := models.AdStatus(*req.Status)
			if !ad.CanTransitionTo(newStatus) {
				return ErrInvalidStatusTransition
			}
			ad.Status = newStatus
		}
		return s.adRepo.Update(txCtx, &ad)
	})
	if err != nil {
		return nil, NewBusinessError("AD_UPDATE_FAILED", "ad update failed", err)
	}
	if req.Budget != nil {
		invalidateAllocatedBudget(ctx, s.budgetCache, ad.CampaignID)
	}

	return &dto.UpdateAdResponse{
		Message:   "ad updated",
		UUID:      ad.UUID.String(),
		Status:    string(ad.Status),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// DeleteAd hard-deletes the ad and frees any budget it had booked against
// the campaign (spec §3/§4.9).
func (s *AdFlowImpl) DeleteAd(ctx context.Context, req *dto.DeleteAdRequest) (*dto.DeleteAdResponse, error) {
	ad, err := getAd(ctx, s.adRepo, s.campaignRepo, req.UUID, req.TeamID)
	if err != nil {
		return nil, err
	}

	var freed money.Cents
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		campaign, err := s.campaignRepo.ByID(txCtx, ad.CampaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return ErrCampaignNotFound
		}
		if ad.Budget != nil {
			freed = *ad.Budget
			campaign.Spent -= freed
			if campaign.Spent < 0 {
				campaign.Spent = 0
			}
			if err := s.campaignRepo.Update(txCtx, campaign); err != nil {
				return err
			}
		}
		return s.adRepo.Delete(txCtx, ad.ID)
	})
	if err != nil {
		return nil, NewBusinessError("AD_DELETE_FAILED", "ad deletion failed", err)
	}
	if ad.Budget != nil {
		invalidateAllocatedBudget(ctx, s.budgetCache, ad.CampaignID)
	}

	return &dto.DeleteAdResponse{
		Message:     "ad deleted",
		FreedBudget: int64(freed),
	}, nil
}

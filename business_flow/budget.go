package businessflow

import (
	"context"
	"fmt"

	"github.com/videostreampro/adcore/internal/cache"
	"github.com/videostreampro/adcore/money"
	"github.com/videostreampro/adcore/repository"
)

// adBudgetCheck carries the outcome of validating a requested ad budget
// against its campaign's remaining allocation (spec §4.4).
type adBudgetCheck struct {
	Valid           bool
	CampaignBudget  money.Cents
	AllocatedBudget money.Cents
	RemainingBudget money.Cents
}

func allocatedBudgetCacheKey(campaignID uint) string {
	return fmt.Sprintf("campaign:%d:allocated", campaignID)
}

// invalidateAllocatedBudget drops the memoized ad-allocation sum for a
// campaign. Called after any write that changes an ad's booked budget or
// removes a campaign's ads, so the next validateAdBudget call recomputes
// from the repository instead of serving a stale sum.
func invalidateAllocatedBudget(ctx context.Context, budgetCache *cache.TTLCache, campaignID uint) {
	if budgetCache == nil {
		return
	}
	budgetCache.Invalidate(ctx, allocatedBudgetCacheKey(campaignID))
}

// validateAdBudget computes a campaign's existing ad allocation and checks
// whether requestedBudget still fits within what's left (spec §4.4). A nil
// campaign budget is unlimited and always validates. A nil requestedBudget
// means the caller isn't asking for a capped allocation, so it always
// validates once the campaign is found, even when RemainingBudget is 0.
//
// The allocated-budget sum is memoized in budgetCache (nil disables
// memoization), since it otherwise requires scanning every ad under the
// campaign on every create/update call.
func validateAdBudget(ctx context.Context, campaignRepo repository.CampaignRepository, adRepo repository.AdRepository, budgetCache *cache.TTLCache, campaignID uint, requestedBudget *int64) (adBudgetCheck, error) {
	campaign, err := campaignRepo.ByID(ctx, campaignID)
	if err != nil {
		return adBudgetCheck{}, err
	}
	if campaign == nil {
		return adBudgetCheck{}, ErrCampaignNotFound
	}

	if campaign.Budget == nil || *campaign.Budget == 0 {
		return adBudgetCheck{Valid: true, RemainingBudget: money.Unlimited}, nil
	}

	allocated, err := allocatedBudget(ctx, adRepo, budgetCache, campaignID)
	if err != nil {
		return adBudgetCheck{}, err
	}

	remaining := *campaign.Budget - allocated
	if remaining < 0 {
		remaining = 0
	}

	result := adBudgetCheck{
		CampaignBudget:  *campaign.Budget,
		AllocatedBudget: allocated,
		RemainingBudget: remaining,
	}
	if requestedBudget == nil {
		result.Valid = true
		return result, nil
	}
	result.Valid = money.Cents(*requestedBudget) <= remaining
	return result, nil
}

// allocatedBudget sums the booked budget across a campaign's ads, serving a
// cached value when present.
func allocatedBudget(ctx context.Context, adRepo repository.AdRepository, budgetCache *cache.TTLCache, campaignID uint) (money.Cents, error) {
	key := allocatedBudgetCacheKey(campaignID)
	if budgetCache != nil {
		var cached int64
		if budgetCache.Get(ctx, key, &cached) {
			return money.Cents(cached), nil
		}
	}

	ads, err := adRepo.ByCampaignID(ctx, campaignID, 0, 0)
	if err != nil {
		return 0, err
	}
	var allocated money.Cents
	for _, ad := range ads {
		if ad.Budget != nil {
			allocated += *ad.Budget
		}
	}

	if budgetCache != nil {
		_ = budgetCache.Set(ctx, key, int64(allocated))
	}
	return allocated, nil
}

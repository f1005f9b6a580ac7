package businessflow

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/videostreampro/adcore/models"
)

// ScoringWeights controls how the four scoring factors combine into a
// composite score (spec §4.6). Operator-configurable; see
// config.AdServingConfig.
type ScoringWeights struct {
	Tag      float64
	Category float64
	Budget   float64
	Bid      float64
}

// bidAmountFactor is a placeholder signal until real-time bidding lands;
// every candidate currently scores the same on this factor (spec §4.6).
const bidAmountFactor = 0.5

// candidateScore pairs an ad with its composite score for selection.
type candidateScore struct {
	ad    *models.Ad
	score float64
}

// tagOverlap computes the case-insensitive Jaccard similarity between the
// viewer's requested tags and the ad's tags (spec §4.6). Returns 0 when
// either set is empty.
func tagOverlap(requested []string, adTags []string) float64 {
	if len(requested) == 0 || len(adTags) == 0 {
		return 0
	}
	req := make(map[string]struct{}, len(requested))
	for _, t := range requested {
		req[strings.ToLower(t)] = struct{}{}
	}
	union := make(map[string]struct{}, len(requested)+len(adTags))
	for t := range req {
		union[t] = struct{}{}
	}
	intersect := 0
	for _, t := range adTags {
		lt := strings.ToLower(t)
		if _, ok := req[lt]; ok {
			intersect++
		}
		union[lt] = struct{}{}
	}
	if len(union) == 0 {
		return 0
	}
	return float64(intersect) / float64(len(union))
}

// categoryMatch returns 1 when the requested category (case-insensitive)
// is one of the ad's categories, else 0 (spec §4.6).
func categoryMatch(requested *string, adCategories []string) float64 {
	if requested == nil {
		return 0
	}
	want := strings.ToLower(*requested)
	for _, c := range adCategories {
		if strings.ToLower(c) == want {
			return 1
		}
	}
	return 0
}

// budgetFactor scores how much headroom an ad's governing budget has left,
// in [0,1]. It uses the ad's own budget when it has one set and nonzero,
// else the parent campaign's (spec §4.4's fallback, spec §4.6's budget
// signal; Budget == 0 is treated the same as unset, matching
// confirm_flow.go's bill()). An uncapped ad/campaign scores 0: it isn't
// budget-constrained, so the signal carries no information either way.
func budgetFactor(ad *models.Ad, campaign *models.Campaign) float64 {
	if ad.Budget != nil && *ad.Budget != 0 {
		budget := int64(*ad.Budget)
		if budget <= 0 {
			return 0
		}
		remaining := budget - int64(ad.Spent)
		if remaining < 0 {
			return 0
		}
		return float64(remaining) / float64(budget)
	}
	if campaign.Budget != nil {
		budget := int64(*campaign.Budget)
		if budget <= 0 {
			return 0
		}
		remaining := budget - int64(campaign.Spent)
		if remaining < 0 {
			return 0
		}
		return float64(remaining) / float64(budget)
	}
	return 0
}

// score computes the composite selection score for a candidate (spec
// §4.6). The weights assigned to the tag and category terms shift
// depending on which targeting signals the request actually supplied:
// a category-only request folds the tag weight into the category term,
// a tags-only request folds the category weight into the tag term, and a
// fallback request (neither) drops both and scores purely on budget/bid.
func score(weights ScoringWeights, requestedCategory *string, requestedTags []string, ad *models.Ad, campaign *models.Campaign) float64 {
	hasCategory := requestedCategory != nil
	hasTags := len(requestedTags) > 0

	budget := budgetFactor(ad, campaign)

	switch {
	case hasCategory && hasTags:
		return weights.Tag*tagOverlap(requestedTags, ad.Tags) +
			weights.Category*categoryMatch(requestedCategory, ad.Categories) +
			weights.Budget*budget +
			weights.Bid*bidAmountFactor
	case hasCategory:
		return (weights.Tag+weights.Category)*categoryMatch(requestedCategory, ad.Categories) +
			weights.Budget*budget +
			weights.Bid*bidAmountFactor
	case hasTags:
		return (weights.Tag+weights.Category)*tagOverlap(requestedTags, ad.Tags) +
			weights.Budget*budget +
			weights.Bid*bidAmountFactor
	default:
		total := weights.Budget + weights.Bid
		if total <= 0 {
			return 0
		}
		return (weights.Budget*budget + weights.Bid*bidAmountFactor) / total
	}
}

// hasSufficientBudget reports whether the ad (or its governing campaign,
// when the ad has no budget of its own, or one explicitly set to 0) has at
// least cost remaining (spec §4.6/§4.4).
func hasSufficientBudget(ad *models.Ad, campaign *models.Campaign, cost int64) bool {
	if ad.Budget != nil && *ad.Budget != 0 {
		return int64(*ad.Budget)-int64(ad.Spent) >= cost
	}
	if campaign.Budget != nil {
		return int64(*campaign.Budget)-int64(campaign.Spent) >= cost
	}
	return true
}

// rankCandidates scores every candidate, discards the ones that fail the
// budget floor or fall below minScore, and returns the rest sorted by
// descending score. Ties are broken by a uniform random shuffle of all
// survivors before a stable sort, so repeated calls with identical inputs don't
// always favor the same ad (spec §4.6).
func rankCandidates(weights ScoringWeights, minScore float64, costPerViewCents int64, requestedCategory *string, requestedTags []string, ads []*models.Ad, campaigns map[uint]*models.Campaign) []candidateScore {
	scored := make([]candidateScore, 0, len(ads))
	for _, ad := range ads {
		campaign := campaigns[ad.CampaignID]
		if campaign == nil {
			continue
		}
		if !hasSufficientBudget(ad, campaign, costPerViewCents) {
			continue
		}
		s := score(weights, requestedCategory, requestedTags, ad, campaign)
		if s < minScore {
			continue
		}
		scored = append(scored, candidateScore{ad: ad, score: s})
	}

	rand.Shuffle(len(scored), func(i, j int) {
		scored[i], scored[j] = scored[j], scored[i]
	})
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	return scored
}

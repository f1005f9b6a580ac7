package businessflow

import (
	"context"

	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/money"
	"github.com/videostreampro/adcore/repository"
)

// fetchCandidates retrieves eligible ad candidates for a serve request
// (spec §4.5). It first tries the targeted query (category/tag match), and
// falls back to every active, in-window ad when that comes up empty, so a
// request naming a category nobody has bought still gets served something.
// Both queries are uniform-random and capped at maxCandidates.
func fetchCandidates(ctx context.Context, adRepo repository.AdRepository, now money.Clock, category *string, tags []string, maxCandidates int) ([]*models.Ad, error) {
	candidates, err := adRepo.EligibleCandidates(ctx, now.Now(), category, tags, maxCandidates)
	if err != nil {
		return nil, err
	}
	if len(candidates) > 0 {
		return candidates, nil
	}
	if category == nil && len(tags) == 0 {
		return candidates, nil
	}
	return adRepo.EligibleCandidates(ctx, now.Now(), nil, nil, maxCandidates)
}

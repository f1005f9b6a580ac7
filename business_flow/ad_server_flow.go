// Package businessflow contains the core business logic and use cases for
// ad decisioning, impression billing, and campaign/ad lifecycle management.
package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/videostreampro/adcore/app/dto"
	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/money"
	"github.com/videostreampro/adcore/repository"
	"github.com/videostreampro/adcore/token"
	"gorm.io/gorm"
)

// ServingParams carries the operator-tunable constants the candidate
// fetcher, scorer, and reservation loop consult (spec §9 open questions,
// resolved as configuration; populated from config.AdServingConfig at
// wiring time).
type ServingParams struct {
	Weights            ScoringWeights
	MinScore           float64
	MaxCandidates      int
	CostPerViewCents   int64
	ImpressionTTL      time.Duration
	MaxReserveAttempts int
}

// AdServerFlow serves ads against a viewer request and reserves the
// resulting impression (spec §4.7).
type AdServerFlow interface {
	ServeAd(ctx context.Context, req *dto.ServeAdRequest) (*dto.ServeAdResponse, error)
}

// AdServerFlowImpl implements AdServerFlow. Grounded on the teacher's
// CampaignFlowImpl shape: a struct of repositories plus a db handle for
// WithTransaction, methods returning dto responses wrapped in
// BusinessError.
type AdServerFlowImpl struct {
	adRepo         repository.AdRepository
	campaignRepo   repository.CampaignRepository
	impressionRepo repository.ImpressionRepository
	codec          *token.Codec
	clock          money.Clock
	cfg            ServingParams
	db             *gorm.DB
}

// NewAdServerFlow creates a new ad server flow instance.
func NewAdServerFlow(
	adRepo repository.AdRepository,
	campaignRepo repository.CampaignRepository,
	impressionRepo repository.ImpressionRepository,
	codec *token.Codec,
	clock money.Clock,
	cfg ServingParams,
	db *gorm.DB,
) AdServerFlow {
	return &AdServerFlowImpl{
		adRepo:         adRepo,
		campaignRepo:   campaignRepo,
		impressionRepo: impressionRepo,
		codec:          codec,
		clock:          clock,
		cfg:            cfg,
		db:             db,
	}
}

// ServeAd validates the request, fetches and scores candidates, then
// reserves the best one it can, retrying the next-best candidate up to
// MaxReserveAttempts times if another request wins the race on the same ad
// (spec §4.7).
func (s *AdServerFlowImpl) ServeAd(ctx context.Context, req *dto.ServeAdRequest) (*dto.ServeAdResponse, error) {
	if err := validateServeRequest(req); err != nil {
		return nil, NewBusinessError("SERVE_VALIDATION_FAILED", "serve request validation failed", err)
	}

	fetchMode := "targeted"
	if req.Category == nil && len(req.Tags) == 0 {
		fetchMode = "untargeted"
	}
	candidates, err := fetchCandidates(ctx, s.adRepo, s.clock, req.Category, req.Tags, s.cfg.MaxCandidates)
	if err != nil {
		return nil, NewBusinessError("CANDIDATE_FETCH_FAILED", "failed to fetch ad candidates", err)
	}
	candidatesFetched.WithLabelValues(fetchMode).Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		reservationOutcomes.WithLabelValues("no_candidates").Inc()
		return nil, ErrNoEligibleCandidates
	}

	campaigns, err := s.loadCampaigns(ctx, candidates)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "failed to load candidate campaigns", err)
	}

	ranked := rankCandidates(s.cfg.Weights, s.cfg.MinScore, s.cfg.CostPerViewCents, req.Category, req.Tags, candidates, campaigns)
	if len(ranked) == 0 {
		reservationOutcomes.WithLabelValues("no_candidates").Inc()
		return nil, ErrNoEligibleCandidates
	}
	scoreDistribution.Observe(ranked[0].score)

	attempts := s.cfg.MaxReserveAttempts
	if attempts <= 0 || attempts > len(ranked) {
		attempts = len(ranked)
	}

	for i := 0; i < attempts; i++ {
		impression, ad, err := s.reserve(ctx, ranked[i].ad.ID, req)
		if err == nil {
			reservationOutcomes.WithLabelValues("reserved").Inc()
			return s.toResponse(impression, ad), nil
		}
		if !IsInsufficientBudget(err) && !IsAdNotFound(err) {
			return nil, err
		}
		reservationOutcomes.WithLabelValues("budget_exceeded").Inc()
	}
	reservationOutcomes.WithLabelValues("exhausted").Inc()
	return nil, ErrReserveAttemptsExhausted
}

// reserve re-reads the candidate ad and its campaign under row locks,
// re-verifies eligibility (another request may have exhausted the budget
// since scoring), and inserts the reserved impression (spec §4.7).
func (s *AdServerFlowImpl) reserve(ctx context.Context, adID uint, req *dto.ServeAdRequest) (*models.Impression, *models.Ad, error) {
	var (
		impression *models.Impression
		ad         *models.Ad
	)
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		ad, err = s.adRepo.ByIDForUpdate(txCtx, adID)
		if err != nil {
			return err
		}
		if ad == nil || ad.Status != models.AdStatusActive {
			return ErrAdNotFound
		}
		campaign, err := s.campaignRepo.ByIDForUpdate(txCtx, ad.CampaignID)
		if err != nil {
			return err
		}
		if campaign == nil || campaign.Status != models.CampaignStatusActive {
			return ErrAdNotFound
		}
		if !hasSufficientBudget(ad, campaign, s.cfg.CostPerViewCents) {
			return ErrInsufficientBudget
		}

		now := s.clock.Now()
		expiresAt := now.Add(s.cfg.ImpressionTTL)

		imp := &models.Impression{
			AdID:       ad.ID,
			CampaignID: campaign.ID,
			Status:     models.ImpressionStatusReserved,
			Action:     models.ImpressionActionView,
			CostCents:  money.Cents(s.cfg.CostPerViewCents),
			ViewerID:   req.UserID,
			AnonID:     req.AnonID,
			SessionID:  req.SessionID,
			VideoID:    req.VideoID,
			Category:   req.Category,
			Tags:       req.Tags,
			ExpiresAt:  expiresAt,
			ServedAt:   &now,
		}
		if err := s.impressionRepo.Save(txCtx, imp); err != nil {
			return err
		}

		// Per spec §4.2: encode the real token once the impression row
		// (and its real ID) exists, then persist it.
		tok, err := s.codec.Encode(strconv.FormatUint(uint64(imp.ID), 10), expiresAt)
		if err != nil {
			return fmt.Errorf("encode impression token: %w", err)
		}
		imp.Token = tok
		if err := s.impressionRepo.Update(txCtx, imp); err != nil {
			return err
		}

		impression = imp
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return impression, ad, nil
}

func (s *AdServerFlowImpl) loadCampaigns(ctx context.Context, ads []*models.Ad) (map[uint]*models.Campaign, error) {
	campaigns := make(map[uint]*models.Campaign)
	for _, ad := range ads {
		if _, ok := campaigns[ad.CampaignID]; ok {
			continue
		}
		campaign, err := s.campaignRepo.ByID(ctx, ad.CampaignID)
		if err != nil {
			return nil, err
		}
		if campaign != nil {
			campaigns[ad.CampaignID] = campaign
		}
	}
	return campaigns, nil
}

func (s *AdServerFlowImpl) toResponse(impression *models.Impression, ad *models.Ad) *dto.ServeAdResponse {
	return &dto.ServeAdResponse{
		Ad: dto.ServedAd{
			ID:           ad.UUID.String(),
			Title:        ad.Title,
			Description:  ad.Description,
			VideoURL:     ad.MediaURL,
			ThumbnailURL: ad.ThumbnailURL,
			Categories:   ad.Categories,
			Tags:         ad.Tags,
			CTALink:      ad.ClickURL,
		},
		ImpressionToken: impression.Token,
		CostCents:       int64(impression.CostCents),
		ExpiresAt:       impression.ExpiresAt.Format(time.RFC3339),
	}
}

// validateServeRequest enforces spec §6's body contract: a video ID, and
// exactly one of user_id/anon_id.
func validateServeRequest(req *dto.ServeAdRequest) error {
	if req.VideoID == "" {
		return fmt.Errorf("videoId is required")
	}
	if (req.UserID == nil) == (req.AnonID == nil) {
		return fmt.Errorf("exactly one of user_id or anon_id is required")
	}
	return nil
}

// Package businessflow contains the core business logic and use cases for
// ad decisioning, impression billing, and campaign/ad lifecycle management.
package businessflow

import (
	"context"
	"time"

	"github.com/videostreampro/adcore/app/dto"
	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/money"
	"github.com/videostreampro/adcore/repository"
	"github.com/videostreampro/adcore/token"
	"gorm.io/gorm"
)

// RevenueNotifier fires the fire-and-forget creator-revenue notification
// after a billable confirm commits (spec §6 "Creator Revenue"). Failures
// are the notifier's problem to log; ConfirmFlow never surfaces them.
type RevenueNotifier interface {
	NotifyAdConfirmed(ctx context.Context, videoID string, viewerID *uint, adUUID string, costCents int64)
}

// ImpressionFlow verifies impression tokens and applies the confirm event
// state machine, billing the "served" event and tracking the rest
// (spec §4.8).
type ImpressionFlow interface {
	Confirm(ctx context.Context, req *dto.ConfirmImpressionRequest) (*dto.ConfirmImpressionResponse, error)
	Lookup(ctx context.Context, tok string) (*dto.ImpressionDebugResponse, error)
}

// ImpressionFlowImpl implements ImpressionFlow.
type ImpressionFlowImpl struct {
	impressionRepo repository.ImpressionRepository
	adRepo         repository.AdRepository
	campaignRepo   repository.CampaignRepository
	codec          *token.Codec
	clock          money.Clock
	notifier       RevenueNotifier
	db             *gorm.DB
}

// NewImpressionFlow creates a new impression confirm flow instance.
func NewImpressionFlow(
	impressionRepo repository.ImpressionRepository,
	adRepo repository.AdRepository,
	campaignRepo repository.CampaignRepository,
	codec *token.Codec,
	clock money.Clock,
	notifier RevenueNotifier,
	db *gorm.DB,
) ImpressionFlow {
	return &ImpressionFlowImpl{
		impressionRepo: impressionRepo,
		adRepo:         adRepo,
		campaignRepo:   campaignRepo,
		codec:          codec,
		clock:          clock,
		notifier:       notifier,
		db:             db,
	}
}

// confirmTransition maps a confirm event onto the impression status it
// requires the impression to already be in, and the status it produces
// (spec §4.8's exact event table). This is deliberately narrower than
// Impression.CanTransitionTo, which also allows the expiry-sweep and
// cancellation paths this flow never takes.
var confirmTransition = map[string]struct {
	from models.ImpressionStatus
	to   models.ImpressionStatus
}{
	"served":    {models.ImpressionStatusReserved, models.ImpressionStatusServed},
	"clicked":   {models.ImpressionStatusServed, models.ImpressionStatusConfirmed},
	"completed": {models.ImpressionStatusServed, models.ImpressionStatusConfirmed},
	"skipped":   {models.ImpressionStatusServed, models.ImpressionStatusConfirmed},
}

var confirmAction = map[string]models.ImpressionAction{
	"served":    models.ImpressionActionView,
	"clicked":   models.ImpressionActionClick,
	"completed": models.ImpressionActionComplete,
	"skipped":   models.ImpressionActionSkip,
}

// Confirm verifies the token, validates the event transition, and applies
// the "served" billing path or the click/complete/skip tracking path
// (spec §4.8).
func (f *ImpressionFlowImpl) Confirm(ctx context.Context, req *dto.ConfirmImpressionRequest) (*dto.ConfirmImpressionResponse, error) {
	if (req.UserID != nil) && (req.AnonID != nil) {
		return nil, NewBusinessError("CONFIRM_VALIDATION_FAILED", "user_id and anon_id are mutually exclusive", ErrInvalidImpressionToken)
	}
	transition, ok := confirmTransition[req.Event]
	if !ok {
		confirmOutcomes.WithLabelValues(req.Event, "invalid_transition").Inc()
		return nil, NewBusinessErrorf("INVALID_EVENT", "unknown confirm event %q", ErrInvalidStatusTransition, req.Event)
	}

	if _, err := f.codec.Decode(req.Token); err != nil {
		if err == token.ErrExpired {
			confirmOutcomes.WithLabelValues(req.Event, "expired").Inc()
			return nil, ErrImpressionExpired
		}
		confirmOutcomes.WithLabelValues(req.Event, "not_found").Inc()
		return nil, ErrInvalidImpressionToken
	}

	var (
		resp     *dto.ConfirmImpressionResponse
		notified *models.Impression
	)
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		impression, err := f.impressionRepo.ByToken(txCtx, req.Token)
		if err != nil {
			return err
		}
		if impression == nil {
			return ErrImpressionNotFound
		}

		// Re-lock the impression by ID now that we know it, so the
		// check-then-transition below is atomic under concurrent confirms.
		locked, err := f.impressionRepo.ByIDForUpdate(txCtx, impression.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrImpressionNotFound
		}
		impression = locked

		now := f.clock.Now()
		if impression.Status == models.ImpressionStatusExpired || impression.IsExpired(now) {
			return ErrImpressionExpired
		}
		if impression.Status != transition.from {
			return ErrInvalidStatusTransition
		}

		reconcileViewer(impression, req.UserID, req.AnonID)
		impression.Action = confirmAction[req.Event]
		impression.Status = transition.to
		impression.ConfirmedAt = &now

		var billing *dto.BillingDetails
		if req.Event == "served" {
			billing, err = f.bill(txCtx, impression)
			if err != nil {
				return err
			}
		}

		if err := f.impressionRepo.Update(txCtx, impression); err != nil {
			return err
		}

		resp = &dto.ConfirmImpressionResponse{
			Success:        true,
			Message:        "impression confirmed",
			BillingDetails: billing,
		}
		notified = impression
		return nil
	})
	if err != nil {
		outcome := "failed"
		if IsImpressionExpired(err) {
			outcome = "expired"
		} else if IsImpressionNotFound(err) {
			outcome = "not_found"
		} else if IsInvalidStatusTransition(err) {
			outcome = "invalid_transition"
		} else if IsBudgetExceeded(err) {
			outcome = "budget_exceeded"
			budgetExceededTotal.Inc()
		}
		confirmOutcomes.WithLabelValues(req.Event, outcome).Inc()
		return nil, err
	}
	confirmOutcomes.WithLabelValues(req.Event, "ok").Inc()

	if req.Event == "served" && f.notifier != nil {
		ad, adErr := f.adRepo.ByID(ctx, notified.AdID)
		var adUUID string
		if adErr == nil && ad != nil {
			adUUID = ad.UUID.String()
		}
		f.notifier.NotifyAdConfirmed(ctx, notified.VideoID, notified.ViewerID, adUUID, int64(notified.CostCents))
	}
	return resp, nil
}

// bill debits the impression's cost from the ad's own budget when it has
// one, else from the parent campaign's (spec §4.4's fallback), rejecting
// the confirm with BudgetExceeded rather than letting spend cross budget.
func (f *ImpressionFlowImpl) bill(ctx context.Context, impression *models.Impression) (*dto.BillingDetails, error) {
	ad, err := f.adRepo.ByIDForUpdate(ctx, impression.AdID)
	if err != nil {
		return nil, err
	}
	if ad == nil {
		return nil, ErrAdNotFound
	}
	campaign, err := f.campaignRepo.ByIDForUpdate(ctx, ad.CampaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	cost := impression.CostCents
	var remaining money.Cents

	if ad.Budget != nil && *ad.Budget != 0 {
		newSpent := ad.Spent + cost
		if newSpent > *ad.Budget {
			return nil, ErrBudgetExceeded
		}
		ad.Spent = newSpent
		if err := f.adRepo.Update(ctx, ad); err != nil {
			return nil, err
		}
		remaining = *ad.Budget - ad.Spent
	} else {
		if campaign.Budget != nil {
			newSpent := campaign.Spent + cost
			if newSpent > *campaign.Budget {
				return nil, ErrBudgetExceeded
			}
			campaign.Spent = newSpent
			remaining = *campaign.Budget - campaign.Spent
		} else {
			campaign.Spent += cost
			remaining = money.Unlimited
		}
		if err := f.campaignRepo.Update(ctx, campaign); err != nil {
			return nil, err
		}
	}

	return &dto.BillingDetails{
		CostCents:       int64(cost),
		RemainingBudget: int64(remaining),
	}, nil
}

// reconcileViewer applies spec §4.8's anon-to-user promotion: a later
// confirm naming a user_id clears any anon_id already on the impression,
// while a confirm naming only an anon_id sets it only if no viewer is set
// yet.
func reconcileViewer(impression *models.Impression, userID *uint, anonID *string) {
	if userID != nil {
		impression.ViewerID = userID
		impression.AnonID = nil
		return
	}
	if anonID != nil && impression.ViewerID == nil {
		impression.AnonID = anonID
	}
}

// Lookup backs the supplemental debug endpoint GET /impression/:token.
func (f *ImpressionFlowImpl) Lookup(ctx context.Context, tok string) (*dto.ImpressionDebugResponse, error) {
	impression, err := f.impressionRepo.ByToken(ctx, tok)
	if err != nil {
		return nil, err
	}
	if impression == nil {
		return nil, ErrImpressionNotFound
	}
	ad, err := f.adRepo.ByID(ctx, impression.AdID)
	if err != nil {
		return nil, err
	}
	adUUID := ""
	if ad != nil {
		adUUID = ad.UUID.String()
	}

	resp := &dto.ImpressionDebugResponse{
		UUID:      impression.UUID.String(),
		AdID:      adUUID,
		Status:    string(impression.Status),
		Action:    string(impression.Action),
		CostCents: int64(impression.CostCents),
		VideoID:   impression.VideoID,
		ExpiresAt: impression.ExpiresAt.Format(time.RFC3339),
	}
	if impression.ServedAt != nil {
		s := impression.ServedAt.Format(time.RFC3339)
		resp.ServedAt = &s
	}
	if impression.ConfirmedAt != nil {
		c := impression.ConfirmedAt.Format(time.RFC3339)
		resp.ConfirmedAt = &c
	}
	return resp, nil
}


// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/money"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// TeamRepository defines operations for teams.
type TeamRepository interface {
	Repository[models.Team, models.TeamFilter]
	ByID(ctx context.Context, id uint) (*models.Team, error)
	ByUUID(ctx context.Context, uuid string) (*models.Team, error)
}

// UserRepository defines operations for users.
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByID(ctx context.Context, id uint) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
}

// CampaignRepository defines the interface for campaign data access.
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByID(ctx context.Context, id uint) (*models.Campaign, error)
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ByTeamID(ctx context.Context, teamID uint, limit, offset int) ([]*models.Campaign, error)
	ByStatus(ctx context.Context, status models.CampaignStatus, limit, offset int) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error
	CountByTeamID(ctx context.Context, teamID uint) (int, error)
	ActiveWithinWindow(ctx context.Context, now time.Time, limit, offset int) ([]*models.Campaign, error)
	// ByIDForUpdate locks the campaign row for the duration of the caller's
	// transaction, the read side of the two-level budget fallback
	// (spec §4.4).
	ByIDForUpdate(ctx context.Context, id uint) (*models.Campaign, error)
	// Delete hard-deletes the campaign along with its ads and their
	// impressions (spec §4.9's cascading campaign delete).
	Delete(ctx context.Context, id uint) error
}

// AdRepository defines the interface for ad data access.
type AdRepository interface {
	Repository[models.Ad, models.AdFilter]
	ByID(ctx context.Context, id uint) (*models.Ad, error)
	ByUUID(ctx context.Context, uuid string) (*models.Ad, error)
	ByCampaignID(ctx context.Context, campaignID uint, limit, offset int) ([]*models.Ad, error)
	Update(ctx context.Context, ad *models.Ad) error
	UpdateStatus(ctx context.Context, id uint, status models.AdStatus) error
	// EligibleCandidates returns active ads within the campaign's date
	// window, matching category/tag filters with remaining budget, the
	// candidate-fetch step of ad serving (spec §4.5). Passing a nil
	// category and empty tags drops the category/tag predicate entirely,
	// used for the fallback query when a filtered fetch comes up empty.
	// Results are ordered randomly and capped at limit.
	EligibleCandidates(ctx context.Context, now time.Time, category *string, tags []string, limit int) ([]*models.Ad, error)
	// ByIDForUpdate locks the ad row, used together with
	// CampaignRepository.ByIDForUpdate when debiting spend (spec §4.4).
	ByIDForUpdate(ctx context.Context, id uint) (*models.Ad, error)
	// Delete hard-deletes the ad along with its impressions (spec §3: ads
	// are hard-deleted on request).
	Delete(ctx context.Context, id uint) error
}

// ImpressionRepository defines the interface for impression data access.
type ImpressionRepository interface {
	Repository[models.Impression, models.ImpressionFilter]
	ByID(ctx context.Context, id uint) (*models.Impression, error)
	ByUUID(ctx context.Context, uuid string) (*models.Impression, error)
	ByToken(ctx context.Context, token string) (*models.Impression, error)
	// ByIDForUpdate locks the impression row so the confirm flow's
	// check-then-transition is atomic (spec §4.8).
	ByIDForUpdate(ctx context.Context, id uint) (*models.Impression, error)
	Update(ctx context.Context, impression *models.Impression) error
	ExpireOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// WalletRepository defines the interface for wallet data access and the
// Wallet Ledger operations spec §4.3 names.
type WalletRepository interface {
	Repository[models.Wallet, models.WalletFilter]
	ByID(ctx context.Context, id uint) (*models.Wallet, error)
	ByUUID(ctx context.Context, uuid string) (*models.Wallet, error)
	ByOwnerID(ctx context.Context, ownerID uint) (*models.Wallet, error)
	// ByOwnerIDForUpdate locks the owning user's wallet row for the
	// duration of the caller's transaction.
	ByOwnerIDForUpdate(ctx context.Context, ownerID uint) (*models.Wallet, error)
	// Credit and Debit mutate a locked wallet's balance and append the
	// corresponding ledger Transaction row, atomically, within the
	// caller-supplied transaction context.
	Credit(ctx context.Context, walletID uint, amount money.Cents, txType models.TransactionType, campaignID, adID *uint, description string) (*models.Transaction, error)
	Debit(ctx context.Context, walletID uint, amount money.Cents, txType models.TransactionType, campaignID, adID *uint, description string) (*models.Transaction, error)
}

// TransactionRepository defines the interface for ledger entry data access.
type TransactionRepository interface {
	Repository[models.Transaction, models.TransactionFilter]
	ByID(ctx context.Context, id uint) (*models.Transaction, error)
	ByUUID(ctx context.Context, uuid string) (*models.Transaction, error)
	ByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]*models.Transaction, error)
	ByWalletID(ctx context.Context, walletID uint, limit, offset int) ([]*models.Transaction, error)
	ByCampaignID(ctx context.Context, campaignID uint, limit, offset int) ([]*models.Transaction, error)
}

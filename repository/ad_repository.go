package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func pqStringArray(tags []string) pq.StringArray {
	return pq.StringArray(tags)
}

// AdRepositoryImpl implements AdRepository. Grounded on the teacher's
// campaign_repository.go/wallet_repository.go shape (BaseRepository
// embedding, getDB/getDBForWrite, applyFilter convention) generalized to
// a new entity the teacher never had.
type AdRepositoryImpl struct {
	*BaseRepository[models.Ad, models.AdFilter]
}

// NewAdRepository creates a new ad repository.
func NewAdRepository(db *gorm.DB) AdRepository {
	return &AdRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Ad, models.AdFilter](db),
	}
}

// ByID retrieves an ad by ID.
func (r *AdRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Ad, error) {
	db := r.getDB(ctx)
	var ad models.Ad
	err := db.Last(&ad, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ad, nil
}

// ByIDForUpdate locks the ad row within the caller's transaction.
func (r *AdRepositoryImpl) ByIDForUpdate(ctx context.Context, id uint) (*models.Ad, error) {
	db := r.getDB(ctx)
	var ad models.Ad
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ad, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ad, nil
}

// ByUUID retrieves an ad by UUID.
func (r *AdRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Ad, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}
	filter := models.AdFilter{UUID: &parsedUUID}
	ads, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(ads) == 0 {
		return nil, nil
	}
	return ads[0], nil
}

// ByCampaignID retrieves ads for a campaign with pagination.
func (r *AdRepositoryImpl) ByCampaignID(ctx context.Context, campaignID uint, limit, offset int) ([]*models.Ad, error) {
	filter := models.AdFilter{CampaignID: &campaignID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// Update updates an ad.
func (r *AdRepositoryImpl) Update(ctx context.Context, ad *models.Ad) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}
	now := utils.UTCNow()
	ad.UpdatedAt = &now
	err = db.Save(ad).Error
	return err
}

// UpdateStatus updates only the status of an ad.
func (r *AdRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.AdStatus) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}
	err = db.Model(&models.Ad{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": utils.UTCNow()}).Error
	return err
}

// Delete hard-deletes an ad along with its impressions (spec §3). Runs as
// two statements rather than a database cascade, mirroring
// CampaignRepositoryImpl.Delete: Impression carries no DeletedAt column to
// cascade into.
func (r *AdRepositoryImpl) Delete(ctx context.Context, id uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	if err = db.Exec(`DELETE FROM impressions WHERE ad_id = ?`, id).Error; err != nil {
		return err
	}
	err = db.Exec(`DELETE FROM ads WHERE id = ?`, id).Error
	return err
}

// EligibleCandidates returns active ads within the campaign's date window,
// matching an optional category and any of the given tags (union: either
// predicate matching is enough when both are supplied), with strictly
// positive remaining budget, in uniform random order capped at limit
// (spec §4.5). Budget filtering happens twice: here as a coarse SQL
// predicate to keep the candidate set small, and again precisely in Go by
// hasSufficientBudget in the ad server flow once loaded, since the campaign-inherited
// budget case can't be expressed in this query alone. Passing both
// category and tags nil/empty drops the match predicate entirely — the
// caller uses this for the spec's empty-result fallback query.
func (r *AdRepositoryImpl) EligibleCandidates(ctx context.Context, now time.Time, category *string, tags []string, limit int) ([]*models.Ad, error) {
	db := r.getDB(ctx)
	var ads []*models.Ad

	query := db.Joins("JOIN campaigns ON campaigns.id = ads.campaign_id").
		Where("ads.status = ?", models.AdStatusActive).
		Where("campaigns.status = ?", models.CampaignStatusActive).
		Where("ads.budget IS NULL OR ads.budget > ads.spent").
		Where("campaigns.start_date IS NULL OR campaigns.start_date <= ?", now).
		Where("campaigns.end_date IS NULL OR campaigns.end_date >= ?", now)

	hasCategory := category != nil
	hasTags := len(tags) > 0
	switch {
	case hasCategory && hasTags:
		query = query.Where("? = ANY(ads.categories) OR ads.tags && ?", *category, pqStringArray(tags))
	case hasCategory:
		query = query.Where("? = ANY(ads.categories)", *category)
	case hasTags:
		query = query.Where("ads.tags && ?", pqStringArray(tags))
	}

	query = query.Order("RANDOM()")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&ads).Error; err != nil {
		return nil, err
	}
	return ads, nil
}

// ByFilter retrieves ads based on filter criteria.
func (r *AdRepositoryImpl) ByFilter(ctx context.Context, filter models.AdFilter, orderBy string, limit, offset int) ([]*models.Ad, error) {
	db := r.getDB(ctx)
	var ads []*models.Ad
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&ads).Error
	if err != nil {
		return nil, err
	}
	return ads, nil
}

// Count returns the number of ads matching the filter.
func (r *AdRepositoryImpl) Count(ctx context.Context, filter models.AdFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	var ad models.Ad
	query := r.applyFilter(db.Model(&ad), filter)
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any ad matching the filter exists.
func (r *AdRepositoryImpl) Exists(ctx context.Context, filter models.AdFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *AdRepositoryImpl) applyFilter(db *gorm.DB, filter models.AdFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Category != nil {
		db = db.Where("? = ANY(categories)", *filter.Category)
	}
	return db
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/videostreampro/adcore/models"
	"github.com/videostreampro/adcore/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ImpressionRepositoryImpl implements ImpressionRepository, grounded on
// the teacher's transaction_repository.go shape (append-mostly,
// status-driven rows, ByFilter/applyFilter convention).
type ImpressionRepositoryImpl struct {
	*BaseRepository[models.Impression, models.ImpressionFilter]
}

// NewImpressionRepository creates a new impression repository.
func NewImpressionRepository(db *gorm.DB) ImpressionRepository {
	return &ImpressionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Impression, models.ImpressionFilter](db),
	}
}

// ByID retrieves an impression by ID.
func (r *ImpressionRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Impression, error) {
	db := r.getDB(ctx)
	var impression models.Impression
	err := db.Last(&impression, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &impression, nil
}

// ByIDForUpdate locks the impression row within the caller's transaction,
// so the confirm flow's read-check-transition sequence is atomic.
func (r *ImpressionRepositoryImpl) ByIDForUpdate(ctx context.Context, id uint) (*models.Impression, error) {
	db := r.getDB(ctx)
	var impression models.Impression
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&impression, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &impression, nil
}

// ByUUID retrieves an impression by UUID.
func (r *ImpressionRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Impression, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}
	filter := models.ImpressionFilter{UUID: &parsedUUID}
	impressions, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}
	if len(impressions) == 0 {
		return nil, nil
	}
	return impressions[0], nil
}

// ByToken retrieves an impression by its opaque token string, the primary
// lookup path for both serve-time rewrite and confirm-time resolution
// (spec §4.2/§4.8).
func (r *ImpressionRepositoryImpl) ByToken(ctx context.Context, token string) (*models.Impression, error) {
	db := r.getDB(ctx)
	var impression models.Impression
	err := db.Where("token = ?", token).Last(&impression).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &impression, nil
}

// Update persists changes to an impression, typically a status
// transition.
func (r *ImpressionRepositoryImpl) Update(ctx context.Context, impression *models.Impression) error {
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
	impression.UpdatedAt = &now
	err = db.Save(impression).Error
	return err
}

// ExpireOlderThan transitions reserved/served impressions whose ExpiresAt
// is before cutoff to expired, in bounded batches, for the background
// sweep spec §4.2 describes. Returns the number of rows affected.
func (r *ImpressionRepositoryImpl) ExpireOlderThan(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	db := r.getDB(ctx)

	var ids []uint
	if err := db.Model(&models.Impression{}).
		Where("status IN ?", []models.ImpressionStatus{models.ImpressionStatusReserved, models.ImpressionStatusServed}).
		Where("expires_at < ?", cutoff).
		Limit(batchSize).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := db.Model(&models.Impression{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":     models.ImpressionStatusExpired,
			"updated_at": utils.UTCNow(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ByFilter retrieves impressions based on filter criteria.
func (r *ImpressionRepositoryImpl) ByFilter(ctx context.Context, filter models.ImpressionFilter, orderBy string, limit, offset int) ([]*models.Impression, error) {
	db := r.getDB(ctx)
	var impressions []*models.Impression
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

	err := query.Find(&impressions).Error
	if err != nil {
		return nil, err
	}
	return impressions, nil
}

// Count returns the number of impressions matching the filter.
func (r *ImpressionRepositoryImpl) Count(ctx context.Context, filter models.ImpressionFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	var impression models.Impression
	query := r.applyFilter(db.Model(&impression), filter)
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any impression matching the filter exists.
func (r *ImpressionRepositoryImpl) Exists(ctx context.Context, filter models.ImpressionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ImpressionRepositoryImpl) applyFilter(db *gorm.DB, filter models.ImpressionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Token != nil {
		db = db.Where("token = ?", *filter.Token)
	}
	if filter.AdID != nil {
		db = db.Where("ad_id = ?", *filter.AdID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.ViewerID != nil {
		db = db.Where("viewer_id = ?", *filter.ViewerID)
	}
	if filter.AnonID != nil {
		db = db.Where("anon_id = ?", *filter.AnonID)
	}
	if filter.ExpiresBefore != nil {
		db = db.Where("expires_at < ?", *filter.ExpiresBefore)
	}
	return db
}
